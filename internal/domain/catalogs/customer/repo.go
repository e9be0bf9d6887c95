package customer

import (
	"context"

	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain"
)

// Repository defines the interface for Customer persistence.
type Repository interface {
	domain.CatalogRepository[*Customer]

	// GetForUpdate retrieves customer with row lock (for balance changes).
	GetForUpdate(ctx context.Context, id id.ID) (*Customer, error)

	// AdjustBalance applies a signed delta to the customer balance.
	// Caller must hold the row lock via GetForUpdate.
	AdjustBalance(ctx context.Context, id id.ID, delta types.MinorUnits) error
}
