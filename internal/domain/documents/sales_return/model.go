// Package sales_return provides the SalesReturn document: a customer
// bringing sold goods back against an approved sale invoice.
package sales_return

import (
	"context"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/entity"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain"
	"pharmacore/internal/domain/posting"
)

// SalesReturn reverses part of an approved sale invoice.
// Every line references a concrete origin invoice line; the returnable
// quantity is capped by the origin line's remaining_qty_to_return.
type SalesReturn struct {
	entity.Document

	// OriginInvoiceID is the sale invoice being returned against
	OriginInvoiceID id.ID `db:"origin_invoice_id" json:"originInvoiceId"`

	// CustomerID / CustomerName copied from the origin invoice
	CustomerID   *id.ID `db:"customer_id" json:"customerId,omitempty"`
	CustomerName string `db:"customer_name" json:"customerName,omitempty"`

	// PaymentMethod mirrors the origin: cash refunds from the vault,
	// credit reduces customer debt
	PaymentMethod domain.PaymentMethod `db:"payment_method" json:"paymentMethod"`

	// Totals (calculated from lines)
	Amount types.MinorUnits `db:"amount" json:"amount"`
	Cost   types.MinorUnits `db:"cost" json:"cost"`
	Profit types.MinorUnits `db:"profit" json:"profit"`

	// Table part
	Lines []ReturnLine `db:"-" json:"lines"`
}

// ReturnLine is one returned slice of an origin invoice line.
type ReturnLine struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	// OriginLineID is the sale invoice line this return draws down
	OriginLineID id.ID `db:"origin_line_id" json:"originLineId"`

	MedicineID id.ID            `db:"medicine_id" json:"medicineId"`
	BatchID    id.ID            `db:"batch_id" json:"batchId"`
	Quantity   types.Quantity   `db:"quantity" json:"quantity"`
	UnitPrice  types.MinorUnits `db:"unit_price" json:"unitPrice"`
	UnitCost   types.MinorUnits `db:"unit_cost" json:"unitCost"`
	Amount     types.MinorUnits `db:"amount" json:"amount"`
}

// NewSalesReturn creates a new draft return against an origin invoice.
func NewSalesReturn(originInvoiceID id.ID) *SalesReturn {
	return &SalesReturn{
		Document:        entity.NewDocument(),
		OriginInvoiceID: originInvoiceID,
		Lines:           make([]ReturnLine, 0),
	}
}

// AddLine appends a return line and recalculates totals.
// Price and cost come from the origin line so the reversal stays exact.
func (r *SalesReturn) AddLine(originLineID, medicineID, batchID id.ID, quantity types.Quantity, unitPrice, unitCost types.MinorUnits) {
	r.Lines = append(r.Lines, ReturnLine{
		LineID:       id.New(),
		LineNo:       len(r.Lines) + 1,
		OriginLineID: originLineID,
		MedicineID:   medicineID,
		BatchID:      batchID,
		Quantity:     quantity,
		UnitPrice:    unitPrice,
		UnitCost:     unitCost,
		Amount:       lineAmount(quantity, unitPrice),
	})
	r.RecalculateTotals()
}

// RecalculateTotals recomputes amount, cost and profit from lines.
func (r *SalesReturn) RecalculateTotals() {
	r.Amount = 0
	r.Cost = 0
	for i := range r.Lines {
		line := &r.Lines[i]
		line.Amount = lineAmount(line.Quantity, line.UnitPrice)
		r.Amount += line.Amount
		r.Cost += lineAmount(line.Quantity, line.UnitCost)
	}
	r.Profit = r.Amount - r.Cost
}

// Validate implements entity.Validatable.
func (r *SalesReturn) Validate(ctx context.Context) error {
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
		if id.IsNil(line.OriginLineID) {
			return apperror.NewValidation("origin line is required").
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
func (r *SalesReturn) GetDocumentType() string { return "SalesReturn" }

func lineAmount(qty types.Quantity, unitPrice types.MinorUnits) types.MinorUnits {
	return types.MinorUnits(qty.Int64Scaled() * int64(unitPrice) / types.QuantityScale)
}

var _ posting.Transitionable = (*SalesReturn)(nil)
