package supplier

import (
	"context"

	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain"
)

// Repository defines the interface for Supplier persistence.
type Repository interface {
	domain.CatalogRepository[*Supplier]

	// GetForUpdate retrieves supplier with row lock (for balance changes).
	GetForUpdate(ctx context.Context, id id.ID) (*Supplier, error)

	// AdjustBalance applies a signed delta to the supplier balance.
	// Caller must hold the row lock via GetForUpdate.
	AdjustBalance(ctx context.Context, id id.ID, delta types.MinorUnits) error
}
