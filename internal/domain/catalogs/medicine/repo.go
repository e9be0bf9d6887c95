package medicine

import (
	"context"

	"pharmacore/internal/domain"
)

// Repository defines the interface for Medicine persistence.
type Repository interface {
	domain.CatalogRepository[*Medicine]

	// FindByBarcode retrieves medicine by barcode.
	FindByBarcode(ctx context.Context, barcode string) (*Medicine, error)
}
