// Package batches provides the batch inventory: the mutable per-batch view
// of stock with remaining/sold quantities, expiry and status.
package batches

import (
	"context"
	"time"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/entity"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
)

// BatchStatus is the operational state of a batch.
type BatchStatus string

const (
	StatusActive      BatchStatus = "active"
	StatusExpired     BatchStatus = "expired"
	StatusDamaged     BatchStatus = "damaged"
	StatusQuarantined BatchStatus = "quarantined"
	StatusScrapped    BatchStatus = "scrapped"
	StatusEmpty       BatchStatus = "empty"
)

const (
	// SellableMinDays is the minimum days to expiry for a batch to be sold.
	SellableMinDays = 3

	// NearExpiryDays marks the window in which below-cost sales are allowed.
	NearExpiryDays = 21
)

// Batch represents a received lot of one medicine.
// RemainingQuantity is the authoritative operational stock number; the
// movement ledger is the audit trail beside it.
type Batch struct {
	entity.BaseDocument

	// MedicineID references the medicine this batch holds
	MedicineID id.ID `db:"medicine_id" json:"medicineId"`

	// Barcode overrides the medicine barcode for this lot, if printed
	Barcode *string `db:"barcode" json:"barcode,omitempty"`

	// Quantity is the total quantity received into this batch
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// RemainingQuantity is what is still on the shelf
	RemainingQuantity types.Quantity `db:"remaining_quantity" json:"remainingQuantity"`

	// SoldQuantity is what left through sales
	SoldQuantity types.Quantity `db:"sold_quantity" json:"soldQuantity"`

	// UnitPurchasePrice in minor units
	UnitPurchasePrice types.MinorUnits `db:"unit_purchase_price" json:"unitPurchasePrice"`

	// UnitSalePrice in minor units
	UnitSalePrice types.MinorUnits `db:"unit_sale_price" json:"unitSalePrice"`

	// ExpiryDate is the lot expiry date
	ExpiryDate time.Time `db:"expiry_date" json:"expiryDate"`

	// Status drives sellability and the scrap/expiry flows
	Status BatchStatus `db:"status" json:"status"`
}

// NewBatch creates a new active batch for a received quantity.
func NewBatch(medicineID id.ID, quantity types.Quantity, purchasePrice, salePrice types.MinorUnits, expiryDate time.Time) *Batch {
	return &Batch{
		BaseDocument:      entity.NewBaseDocument(),
		MedicineID:        medicineID,
		Quantity:          quantity,
		RemainingQuantity: quantity,
		UnitPurchasePrice: purchasePrice,
		UnitSalePrice:     salePrice,
		ExpiryDate:        expiryDate,
		Status:            StatusActive,
	}
}

// Validate implements entity.Validatable interface.
func (b *Batch) Validate(ctx context.Context) error {
	if id.IsNil(b.MedicineID) {
		return apperror.NewValidation("medicine is required").
			WithDetail("field", "medicineId")
	}
	if !b.Quantity.IsPositive() {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity")
	}
	if b.RemainingQuantity.IsNegative() {
		return apperror.NewValidation("remaining quantity cannot be negative").
			WithDetail("field", "remainingQuantity")
	}
	if b.SoldQuantity+b.RemainingQuantity > b.Quantity {
		return apperror.NewValidation("sold plus remaining cannot exceed batch quantity").
			WithDetail("field", "remainingQuantity")
	}
	if b.UnitPurchasePrice.IsNegative() || b.UnitSalePrice.IsNegative() {
		return apperror.NewValidation("batch prices cannot be negative")
	}
	if b.ExpiryDate.IsZero() {
		return apperror.NewValidation("expiry date is required").
			WithDetail("field", "expiryDate")
	}
	if !isValidBatchStatus(b.Status) {
		return apperror.NewValidation("invalid batch status").
			WithDetail("field", "status").
			WithDetail("value", string(b.Status))
	}
	return nil
}

// IsExpired reports whether the batch is past its expiry date at asOf.
func (b *Batch) IsExpired(asOf time.Time) bool {
	return b.ExpiryDate.Before(truncateDay(asOf))
}

// DaysToExpiry returns whole days until expiry (negative when past).
func (b *Batch) DaysToExpiry(asOf time.Time) int {
	return int(b.ExpiryDate.Sub(truncateDay(asOf)).Hours() / 24)
}

// IsSellable reports whether the batch may satisfy a sale at asOf:
// stock remains, the batch is active, and expiry is far enough away.
func (b *Batch) IsSellable(asOf time.Time) bool {
	return b.RemainingQuantity.IsPositive() &&
		b.Status == StatusActive &&
		b.DaysToExpiry(asOf) >= SellableMinDays
}

// IsNearExpiry reports whether the batch is inside the clearance window
// where selling below cost is permitted.
func (b *Batch) IsNearExpiry(asOf time.Time) bool {
	return b.DaysToExpiry(asOf) <= NearExpiryDays
}

// ResidualValue is the purchase value of the stock still on the shelf.
func (b *Batch) ResidualValue() types.MinorUnits {
	// Quantity is scaled 1e4, price is per whole unit.
	return types.MinorUnits(int64(b.RemainingQuantity) * int64(b.UnitPurchasePrice) / types.QuantityScale)
}

// Reserve takes quantity out for a sale: remaining down, sold up.
func (b *Batch) Reserve(qty types.Quantity) error {
	if !qty.IsPositive() {
		return apperror.NewValidation("reserve quantity must be positive")
	}
	if b.RemainingQuantity < qty {
		return apperror.NewInsufficientStock(b.MedicineID.String(), qty, b.RemainingQuantity, qty-b.RemainingQuantity)
	}
	b.RemainingQuantity -= qty
	b.SoldQuantity += qty
	if b.RemainingQuantity.IsZero() && b.Status == StatusActive {
		b.Status = StatusEmpty
	}
	return nil
}

// Release puts sold quantity back (sales return or cancelled sale).
func (b *Batch) Release(qty types.Quantity) error {
	if !qty.IsPositive() {
		return apperror.NewValidation("release quantity must be positive")
	}
	if b.SoldQuantity < qty {
		return apperror.NewOverReturn(b.ID.String(), qty, b.SoldQuantity).
			WithDetail("batch_id", b.ID.String())
	}
	b.SoldQuantity -= qty
	b.RemainingQuantity += qty
	if b.Status == StatusEmpty {
		b.Status = StatusActive
	}
	return nil
}

// TakeOut removes quantity from the batch entirely (purchase return):
// both remaining and total shrink, keeping sold + remaining <= quantity.
func (b *Batch) TakeOut(qty types.Quantity) error {
	if !qty.IsPositive() {
		return apperror.NewValidation("take-out quantity must be positive")
	}
	if b.RemainingQuantity < qty {
		return apperror.NewInsufficientStock(b.MedicineID.String(), qty, b.RemainingQuantity, qty-b.RemainingQuantity)
	}
	b.RemainingQuantity -= qty
	b.Quantity -= qty
	if b.RemainingQuantity.IsZero() && b.Status == StatusActive {
		b.Status = StatusEmpty
	}
	return nil
}

// PutBack restores quantity removed by TakeOut (cancelled purchase return).
func (b *Batch) PutBack(qty types.Quantity) error {
	if !qty.IsPositive() {
		return apperror.NewValidation("put-back quantity must be positive")
	}
	b.RemainingQuantity += qty
	b.Quantity += qty
	if b.Status == StatusEmpty {
		b.Status = StatusActive
	}
	return nil
}

func isValidBatchStatus(s BatchStatus) bool {
	switch s {
	case StatusActive, StatusExpired, StatusDamaged, StatusQuarantined, StatusScrapped, StatusEmpty:
		return true
	}
	return false
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
