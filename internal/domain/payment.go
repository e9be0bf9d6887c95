package domain

// PaymentMethod is how a document settles money.
type PaymentMethod string

const (
	// PaymentCash settles immediately against the vault
	PaymentCash PaymentMethod = "cash"

	// PaymentCredit settles against the partner balance
	PaymentCredit PaymentMethod = "credit"
)

// IsValid reports whether the payment method is known.
func (p PaymentMethod) IsValid() bool {
	return p == PaymentCash || p == PaymentCredit
}
