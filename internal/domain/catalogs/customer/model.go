// Package customer provides the Customer catalog.
// Customers carry a running debt balance checked against a credit limit.
package customer

import (
	"context"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/entity"
	"pharmacore/internal/core/types"
)

// Customer represents a registered pharmacy customer.
// Walk-in customers are not catalog rows; sale invoices carry their name.
type Customer struct {
	entity.Catalog

	// Phone is the primary contact phone
	Phone *string `db:"phone" json:"phone,omitempty"`

	// Balance is the outstanding debt in minor units.
	// Positive balance means the customer owes the pharmacy.
	Balance types.MinorUnits `db:"balance" json:"balance"`

	// CreditLimit caps the debt a customer may accumulate.
	// Zero means unlimited credit.
	CreditLimit types.MinorUnits `db:"credit_limit" json:"creditLimit"`
}

// NewCustomer creates a new Customer with required fields.
func NewCustomer(code, name string) *Customer {
	return &Customer{
		Catalog: entity.NewCatalog(code, name),
	}
}

// Validate implements entity.Validatable interface.
func (c *Customer) Validate(ctx context.Context) error {
	if err := c.Catalog.Validate(ctx); err != nil {
		return err
	}

	if c.CreditLimit.IsNegative() {
		return apperror.NewValidation("credit limit cannot be negative").
			WithDetail("field", "creditLimit")
	}

	return nil
}

// HasCreditLimit reports whether debt is capped.
func (c *Customer) HasCreditLimit() bool {
	return c.CreditLimit.IsPositive()
}

// CheckCredit verifies that adding 'attempted' debt stays within the limit.
func (c *Customer) CheckCredit(attempted types.MinorUnits) error {
	if !c.HasCreditLimit() {
		return nil
	}
	if c.Balance+attempted > c.CreditLimit {
		return apperror.NewCreditLimitExceeded(c.ID.String(), c.CreditLimit, c.Balance, attempted)
	}
	return nil
}
