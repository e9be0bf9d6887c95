// Package purchase_return provides the PurchaseReturn document: sending
// received stock back to the supplier against an approved purchase invoice.
package purchase_return

import (
	"context"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/entity"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain"
	"pharmacore/internal/domain/posting"
)

// PurchaseReturn reverses part of an approved purchase invoice.
// Only untouched batches can go back: a batch that has sold anything
// stays in the pharmacy.
type PurchaseReturn struct {
	entity.Document

	// OriginInvoiceID is the purchase invoice being returned against
	OriginInvoiceID id.ID `db:"origin_invoice_id" json:"originInvoiceId"`

	// SupplierID copied from the origin invoice
	SupplierID id.ID `db:"supplier_id" json:"supplierId"`

	// PaymentMethod mirrors the origin: cash refunds into the vault,
	// credit reduces supplier debt
	PaymentMethod domain.PaymentMethod `db:"payment_method" json:"paymentMethod"`

	// Amount (calculated from lines, at purchase prices)
	Amount types.MinorUnits `db:"amount" json:"amount"`

	// Table part
	Lines []ReturnLine `db:"-" json:"lines"`
}

// ReturnLine is one batch going back to the supplier.
type ReturnLine struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	MedicineID        id.ID            `db:"medicine_id" json:"medicineId"`
	BatchID           id.ID            `db:"batch_id" json:"batchId"`
	Quantity          types.Quantity   `db:"quantity" json:"quantity"`
	UnitPurchasePrice types.MinorUnits `db:"unit_purchase_price" json:"unitPurchasePrice"`
	Amount            types.MinorUnits `db:"amount" json:"amount"`
}

// NewPurchaseReturn creates a new draft return against an origin invoice.
func NewPurchaseReturn(originInvoiceID id.ID) *PurchaseReturn {
	return &PurchaseReturn{
		Document:        entity.NewDocument(),
		OriginInvoiceID: originInvoiceID,
		Lines:           make([]ReturnLine, 0),
	}
}

// AddLine appends a return line and recalculates the total.
func (r *PurchaseReturn) AddLine(medicineID, batchID id.ID, quantity types.Quantity, unitPurchasePrice types.MinorUnits) {
	r.Lines = append(r.Lines, ReturnLine{
		LineID:            id.New(),
		LineNo:            len(r.Lines) + 1,
		MedicineID:        medicineID,
		BatchID:           batchID,
		Quantity:          quantity,
		UnitPurchasePrice: unitPurchasePrice,
		Amount:            lineAmount(quantity, unitPurchasePrice),
	})
	r.RecalculateTotals()
}

// RecalculateTotals recomputes the amount from lines.
func (r *PurchaseReturn) RecalculateTotals() {
	r.Amount = 0
	for i := range r.Lines {
		line := &r.Lines[i]
		line.Amount = lineAmount(line.Quantity, line.UnitPurchasePrice)
		r.Amount += line.Amount
	}
}

// Validate implements entity.Validatable.
func (r *PurchaseReturn) Validate(ctx context.Context) error {
	if err := r.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(r.OriginInvoiceID) {
		return apperror.NewValidation("origin invoice is required").
			WithDetail("field", "originInvoiceId")
	}

	if !r.PaymentMethod.IsValid() {
		return apperror.NewValidation("invalid payment method").
			WithDetail("field", "paymentMethod").
			WithDetail("value", string(r.PaymentMethod))
	}

	if len(r.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for i, line := range r.Lines {
		if id.IsNil(line.BatchID) {
			return apperror.NewValidation("batch is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if !line.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}

// GetDocumentType implements posting.Transitionable.
func (r *PurchaseReturn) GetDocumentType() string { return "PurchaseReturn" }

func lineAmount(qty types.Quantity, unitPrice types.MinorUnits) types.MinorUnits {
	return types.MinorUnits(qty.Int64Scaled() * int64(unitPrice) / types.QuantityScale)
}

var _ posting.Transitionable = (*PurchaseReturn)(nil)
