// Package entity provides core domain entities.
package entity

import (
	"time"

	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
)

// MovementType classifies a stock ledger entry.
type MovementType string

const (
	MovementPurchase       MovementType = "purchase"
	MovementSale           MovementType = "sale"
	MovementPurchaseReturn MovementType = "purchase_return"
	MovementSalesReturn    MovementType = "sales_return"
	MovementDamage         MovementType = "damage"
	MovementAdjustment     MovementType = "adjustment"
	MovementExpiry         MovementType = "expiry"
)

// Movement is a single immutable row in the stock ledger.
// Movements are append-only: they are never updated or deleted.
// Reversing a document appends sign-flipped movements referencing the
// originals via ReversalOf.
type Movement struct {
	// LineID is the unique identifier for this ledger line (UUIDv7)
	LineID id.ID `db:"line_id" json:"lineId"`

	// MedicineID is the medicine this movement affects
	MedicineID id.ID `db:"medicine_id" json:"medicineId"`

	// BatchID is the affected batch, nil for batch-less adjustments
	BatchID *id.ID `db:"batch_id" json:"batchId,omitempty"`

	// Type classifies the movement
	Type MovementType `db:"movement_type" json:"movementType"`

	// Quantity is signed: receipts positive, expenses negative
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// ReferenceType is the document type that recorded this movement
	// (e.g. "SaleInvoice", "PurchaseInvoice")
	ReferenceType string `db:"reference_type" json:"referenceType"`

	// ReferenceID is the document that recorded this movement
	ReferenceID id.ID `db:"reference_id" json:"referenceId"`

	// ReversalOf points at the ledger line this movement compensates
	ReversalOf *id.ID `db:"reversal_of" json:"reversalOf,omitempty"`

	// CreatedBy is the user who triggered the movement
	CreatedBy string `db:"created_by" json:"createdBy,omitempty"`

	// Notes is free-form context (scrap reason, adjustment note)
	Notes string `db:"notes" json:"notes,omitempty"`

	// CreatedAt is when the movement was recorded
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewMovement creates a new ledger movement with generated LineID.
func NewMovement(
	medicineID id.ID,
	batchID *id.ID,
	movementType MovementType,
	quantity types.Quantity,
	referenceType string,
	referenceID id.ID,
) Movement {
	return Movement{
		LineID:        id.New(),
		MedicineID:    medicineID,
		BatchID:       batchID,
		Type:          movementType,
		Quantity:      quantity,
		ReferenceType: referenceType,
		ReferenceID:   referenceID,
		CreatedAt:     time.Now().UTC(),
	}
}

// Reversal builds the compensating movement: same dimensions, negated
// quantity, linked back to the original line.
func (m Movement) Reversal(referenceType string, referenceID id.ID) Movement {
	original := m.LineID
	rev := NewMovement(m.MedicineID, m.BatchID, m.Type, m.Quantity.Neg(), referenceType, referenceID)
	rev.ReversalOf = &original
	return rev
}

// IsReceipt reports whether the movement increases stock.
func (m Movement) IsReceipt() bool {
	return m.Quantity.IsPositive()
}
