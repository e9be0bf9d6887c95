// Package sale_invoice provides the SaleInvoice document.
package sale_invoice

import (
	"context"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/entity"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain"
	"pharmacore/internal/domain/posting"
)

// SaleInvoice represents a customer sale.
//
// Lines in a draft are requests (medicine + quantity, optional pinned
// batch); approval replaces them with concrete per-batch allocations.
type SaleInvoice struct {
	entity.Document

	// CustomerID references a registered customer; nil for walk-in sales
	CustomerID *id.ID `db:"customer_id" json:"customerId,omitempty"`

	// CustomerName is required for walk-in sales (no catalog row)
	CustomerName string `db:"customer_name" json:"customerName,omitempty"`

	// PaymentMethod: cash hits the vault, credit hits the customer balance
	PaymentMethod domain.PaymentMethod `db:"payment_method" json:"paymentMethod"`

	// Totals (calculated from lines)
	Amount types.MinorUnits `db:"amount" json:"amount"`
	Cost   types.MinorUnits `db:"cost" json:"cost"`
	Profit types.MinorUnits `db:"profit" json:"profit"`

	// Table part
	Lines []SaleLine `db:"-" json:"lines"`
}

// SaleLine is one invoice line. BatchID is nil on draft request lines and
// set once allocation pins the line to a batch.
type SaleLine struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	MedicineID id.ID            `db:"medicine_id" json:"medicineId"`
	BatchID    *id.ID           `db:"batch_id" json:"batchId,omitempty"`
	Quantity   types.Quantity   `db:"quantity" json:"quantity"`
	UnitPrice  types.MinorUnits `db:"unit_price" json:"unitPrice"`
	UnitCost   types.MinorUnits `db:"unit_cost" json:"unitCost"`
	Amount     types.MinorUnits `db:"amount" json:"amount"`

	// RemainingQtyToReturn caps how much of this line sales returns may
	// still take back. Set to Quantity at approval.
	RemainingQtyToReturn types.Quantity `db:"remaining_qty_to_return" json:"remainingQtyToReturn"`
}

// NewSaleInvoice creates a new draft sale invoice.
func NewSaleInvoice(customerID *id.ID, paymentMethod domain.PaymentMethod) *SaleInvoice {
	return &SaleInvoice{
		Document:      entity.NewDocument(),
		CustomerID:    customerID,
		PaymentMethod: paymentMethod,
		Lines:         make([]SaleLine, 0),
	}
}

// IsWalkIn reports whether the sale has no registered customer.
func (s *SaleInvoice) IsWalkIn() bool {
	return s.CustomerID == nil || id.IsNil(*s.CustomerID)
}

// AddLine appends a request line. A zero unitPrice means "use the batch
// sale price at allocation". preferredBatch pins allocation to a batch.
func (s *SaleInvoice) AddLine(medicineID id.ID, quantity types.Quantity, unitPrice types.MinorUnits, preferredBatch *id.ID) {
	s.Lines = append(s.Lines, SaleLine{
		LineID:     id.New(),
		LineNo:     len(s.Lines) + 1,
		MedicineID: medicineID,
		BatchID:    preferredBatch,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		Amount:     lineAmount(quantity, unitPrice),
	})
	s.RecalculateTotals()
}

// ReplaceLines swaps in concrete allocation lines and recalculates totals.
func (s *SaleInvoice) ReplaceLines(lines []SaleLine) {
	for i := range lines {
		lines[i].LineNo = i + 1
		if id.IsNil(lines[i].LineID) {
			lines[i].LineID = id.New()
		}
	}
	s.Lines = lines
	s.RecalculateTotals()
}

// RecalculateTotals recomputes amount, cost and profit from lines.
func (s *SaleInvoice) RecalculateTotals() {
	s.Amount = 0
	s.Cost = 0
	for i := range s.Lines {
		line := &s.Lines[i]
		line.Amount = lineAmount(line.Quantity, line.UnitPrice)
		s.Amount += line.Amount
		s.Cost += lineAmount(line.Quantity, line.UnitCost)
	}
	s.Profit = s.Amount - s.Cost
}

// Validate implements entity.Validatable.
func (s *SaleInvoice) Validate(ctx context.Context) error {
	if err := s.Document.Validate(ctx); err != nil {
		return err
	}

	if !s.PaymentMethod.IsValid() {
		return apperror.NewValidation("invalid payment method").
			WithDetail("field", "paymentMethod").
			WithDetail("value", string(s.PaymentMethod))
	}

	// Walk-in customers have no credit: the sale must be cash and must
	// carry a name for the receipt.
	if s.IsWalkIn() {
		if s.CustomerName == "" {
			return apperror.NewValidation("walk-in sale requires a customer name").
				WithDetail("field", "customerName")
		}
		if s.PaymentMethod != domain.PaymentCash {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule, "walk-in customers can only pay cash").
				WithDetail("field", "paymentMethod")
		}
	}

	if len(s.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for i, line := range s.Lines {
		if id.IsNil(line.MedicineID) {
			return apperror.NewValidation("medicine is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if !line.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.UnitPrice.IsNegative() {
			return apperror.NewValidation("unit price cannot be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}

// GetDocumentType implements posting.Transitionable.
func (s *SaleInvoice) GetDocumentType() string { return "SaleInvoice" }

// lineAmount converts a scaled quantity times a per-unit minor price.
func lineAmount(qty types.Quantity, unitPrice types.MinorUnits) types.MinorUnits {
	return types.MinorUnits(qty.Int64Scaled() * int64(unitPrice) / types.QuantityScale)
}

var _ posting.Transitionable = (*SaleInvoice)(nil)
