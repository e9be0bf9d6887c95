// Package allocation provides the batch allocation engine for sales:
// preferred batch first, then FEFO greedy split across sellable batches.
package allocation

import (
	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain/batches"
)

// Request asks for a quantity of one medicine.
type Request struct {
	// MedicineID is the medicine to allocate
	MedicineID id.ID

	// Quantity is the total requested quantity
	Quantity types.Quantity

	// PreferredBatchID pins allocation to start from a specific batch
	// (cashier scanned a box). Nil lets FEFO decide everything.
	PreferredBatchID *id.ID

	// UnitPrice overrides the batch sale price when positive
	UnitPrice types.MinorUnits
}

// Line is one allocated slice of a batch.
type Line struct {
	BatchID  id.ID
	Quantity types.Quantity

	// UnitPrice is the request price, or the batch sale price when the
	// request carried none
	UnitPrice types.MinorUnits

	// UnitCost is the batch purchase price (for profit accounting)
	UnitCost types.MinorUnits
}

// Engine splits allocation requests across batches.
// The engine is pure: candidates must already be loaded, locked and
// filtered to sellable batches in FEFO order (expiry_date ASC, id ASC).
type Engine struct{}

// NewEngine creates an allocation engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Allocate fills the request from candidates, preferred batch first, then
// in candidate (FEFO) order. Fails atomically with InsufficientStock when
// the candidates cannot cover the full quantity - no partial allocations.
func (e *Engine) Allocate(candidates []*batches.Batch, req Request) ([]Line, error) {
	if !req.Quantity.IsPositive() {
		return nil, apperror.NewValidation("allocation quantity must be positive").
			WithDetail("medicine_id", req.MedicineID.String())
	}

	ordered := candidates
	if req.PreferredBatchID != nil {
		ordered = promotePreferred(candidates, *req.PreferredBatchID)
	}

	var lines []Line
	remaining := req.Quantity
	for _, batch := range ordered {
		if !remaining.IsPositive() {
			break
		}
		if !batch.RemainingQuantity.IsPositive() {
			continue
		}

		take := remaining
		if batch.RemainingQuantity < take {
			take = batch.RemainingQuantity
		}

		unitPrice := req.UnitPrice
		if !unitPrice.IsPositive() {
			unitPrice = batch.UnitSalePrice
		}

		lines = append(lines, Line{
			BatchID:   batch.ID,
			Quantity:  take,
			UnitPrice: unitPrice,
			UnitCost:  batch.UnitPurchasePrice,
		})
		remaining -= take
	}

	if remaining.IsPositive() {
		available := req.Quantity - remaining
		return nil, apperror.NewInsufficientStock(req.MedicineID.String(), req.Quantity, available, remaining)
	}

	return lines, nil
}

// promotePreferred moves the preferred batch to the front, keeping the
// FEFO order of the rest.
func promotePreferred(candidates []*batches.Batch, preferred id.ID) []*batches.Batch {
	ordered := make([]*batches.Batch, 0, len(candidates))
	for _, b := range candidates {
		if b.ID == preferred {
			ordered = append(ordered, b)
		}
	}
	for _, b := range candidates {
		if b.ID != preferred {
			ordered = append(ordered, b)
		}
	}
	return ordered
}
