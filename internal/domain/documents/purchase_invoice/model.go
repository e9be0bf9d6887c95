// Package purchase_invoice provides the PurchaseInvoice document.
package purchase_invoice

import (
	"context"
	"time"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/entity"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain"
	"pharmacore/internal/domain/posting"
)

// PurchaseInvoice represents stock received from a supplier.
// Approval creates one batch per line.
type PurchaseInvoice struct {
	entity.Document

	// SupplierID references the supplier catalog
	SupplierID id.ID `db:"supplier_id" json:"supplierId"`

	// PaymentMethod: cash pays from the vault, credit adds supplier debt
	PaymentMethod domain.PaymentMethod `db:"payment_method" json:"paymentMethod"`

	// Amount is the total purchase value (calculated from lines)
	Amount types.MinorUnits `db:"amount" json:"amount"`

	// Table part
	Lines []PurchaseLine `db:"-" json:"lines"`
}

// PurchaseLine is one received lot. BatchID is set at approval when the
// batch row is created.
type PurchaseLine struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	MedicineID        id.ID            `db:"medicine_id" json:"medicineId"`
	BatchID           *id.ID           `db:"batch_id" json:"batchId,omitempty"`
	Barcode           *string          `db:"barcode" json:"barcode,omitempty"`
	Quantity          types.Quantity   `db:"quantity" json:"quantity"`
	UnitPurchasePrice types.MinorUnits `db:"unit_purchase_price" json:"unitPurchasePrice"`
	UnitSalePrice     types.MinorUnits `db:"unit_sale_price" json:"unitSalePrice"`
	ExpiryDate        time.Time        `db:"expiry_date" json:"expiryDate"`
	Amount            types.MinorUnits `db:"amount" json:"amount"`
}

// NewPurchaseInvoice creates a new draft purchase invoice.
func NewPurchaseInvoice(supplierID id.ID, paymentMethod domain.PaymentMethod) *PurchaseInvoice {
	return &PurchaseInvoice{
		Document:      entity.NewDocument(),
		SupplierID:    supplierID,
		PaymentMethod: paymentMethod,
		Lines:         make([]PurchaseLine, 0),
	}
}

// AddLine appends a received lot and recalculates totals.
func (p *PurchaseInvoice) AddLine(medicineID id.ID, quantity types.Quantity, purchasePrice, salePrice types.MinorUnits, expiryDate time.Time, barcode *string) {
	p.Lines = append(p.Lines, PurchaseLine{
		LineID:            id.New(),
		LineNo:            len(p.Lines) + 1,
		MedicineID:        medicineID,
		Barcode:           barcode,
		Quantity:          quantity,
		UnitPurchasePrice: purchasePrice,
		UnitSalePrice:     salePrice,
		ExpiryDate:        expiryDate,
		Amount:            lineAmount(quantity, purchasePrice),
	})
	p.RecalculateTotals()
}

// RecalculateTotals recomputes the invoice amount from lines.
func (p *PurchaseInvoice) RecalculateTotals() {
	p.Amount = 0
	for i := range p.Lines {
		line := &p.Lines[i]
		line.Amount = lineAmount(line.Quantity, line.UnitPurchasePrice)
		p.Amount += line.Amount
	}
}

// Validate implements entity.Validatable.
func (p *PurchaseInvoice) Validate(ctx context.Context) error {
	if err := p.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(p.SupplierID) {
		return apperror.NewValidation("supplier is required").
			WithDetail("field", "supplierId")
	}

	if !p.PaymentMethod.IsValid() {
		return apperror.NewValidation("invalid payment method").
			WithDetail("field", "paymentMethod").
			WithDetail("value", string(p.PaymentMethod))
	}

	if len(p.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for i, line := range p.Lines {
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
		if line.UnitPurchasePrice.IsNegative() || line.UnitSalePrice.IsNegative() {
			return apperror.NewValidation("prices cannot be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.ExpiryDate.IsZero() {
			return apperror.NewValidation("expiry date is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}

// GetDocumentType implements posting.Transitionable.
func (p *PurchaseInvoice) GetDocumentType() string { return "PurchaseInvoice" }

func lineAmount(qty types.Quantity, unitPrice types.MinorUnits) types.MinorUnits {
	return types.MinorUnits(qty.Int64Scaled() * int64(unitPrice) / types.QuantityScale)
}

var _ posting.Transitionable = (*PurchaseInvoice)(nil)
