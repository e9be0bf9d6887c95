// Package ledger provides the append-only stock movement ledger.
package ledger

import (
	"context"
	"time"

	"pharmacore/internal/core/entity"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
)

// Repository defines operations for the movement ledger.
// The ledger is append-only: there are no update or delete operations.
type Repository interface {
	// CreateMovements batch inserts movements (used during document approval)
	CreateMovements(ctx context.Context, movements []entity.Movement) error

	// GetByDocument retrieves all movements recorded by a document
	GetByDocument(ctx context.Context, referenceID id.ID) ([]entity.Movement, error)

	// ListUnreversed retrieves movements of a document that have not been
	// compensated yet (no later movement points at them via reversal_of)
	ListUnreversed(ctx context.Context, referenceID id.ID) ([]entity.Movement, error)

	// CurrentBalance sums signed quantities for a medicine, optionally
	// narrowed to one batch. Advisory only - the batch row is authoritative.
	CurrentBalance(ctx context.Context, medicineID id.ID, batchID *id.ID) (types.Quantity, error)

	// GetMovementHistory returns movement history for a medicine
	GetMovementHistory(ctx context.Context, medicineID id.ID, filter MovementFilter) ([]entity.Movement, error)
}

// MovementFilter for filtering movement history.
type MovementFilter struct {
	BatchID  *id.ID
	Type     *entity.MovementType
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}
