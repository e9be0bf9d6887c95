package batches

import (
	"context"
	"time"

	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
)

// Repository defines operations for batch persistence.
type Repository interface {
	// Create inserts a new batch
	Create(ctx context.Context, batch *Batch) error

	// GetByID retrieves a batch
	GetByID(ctx context.Context, id id.ID) (*Batch, error)

	// GetForUpdate retrieves a batch with row lock.
	// Every quantity or status mutation must go through this lock.
	GetForUpdate(ctx context.Context, id id.ID) (*Batch, error)

	// Update persists batch changes (with optimistic locking)
	Update(ctx context.Context, batch *Batch) error

	// ListByMedicine returns all batches of a medicine
	ListByMedicine(ctx context.Context, medicineID id.ID) ([]*Batch, error)

	// ListSellableForUpdate returns sellable batches of a medicine in FEFO
	// order (expiry_date ASC, id ASC), locked for allocation.
	// Sellable: remaining > 0, status active, expiry at least
	// SellableMinDays away from asOf.
	ListSellableForUpdate(ctx context.Context, medicineID id.ID, asOf time.Time) ([]*Batch, error)

	// TotalRemainingByMedicine sums remaining quantity across batches
	TotalRemainingByMedicine(ctx context.Context, medicineIDs []id.ID) (map[id.ID]types.Quantity, error)

	// ListExpiredActive returns active batches whose expiry is before asOf
	ListExpiredActive(ctx context.Context, asOf time.Time) ([]*Batch, error)
}
