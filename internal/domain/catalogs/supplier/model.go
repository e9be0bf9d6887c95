// Package supplier provides the Supplier catalog.
// Suppliers carry a running balance of what the pharmacy owes them.
package supplier

import (
	"context"

	"pharmacore/internal/core/entity"
	"pharmacore/internal/core/types"
)

// Supplier represents a wholesale supplier.
type Supplier struct {
	entity.Catalog

	// Phone is the primary contact phone
	Phone *string `db:"phone" json:"phone,omitempty"`

	// ContactPerson is the primary contact name
	ContactPerson *string `db:"contact_person" json:"contactPerson,omitempty"`

	// Balance is the outstanding amount owed to the supplier in minor units.
	// Positive balance means the pharmacy owes the supplier.
	Balance types.MinorUnits `db:"balance" json:"balance"`
}

// NewSupplier creates a new Supplier with required fields.
func NewSupplier(code, name string) *Supplier {
	return &Supplier{
		Catalog: entity.NewCatalog(code, name),
	}
}

// Validate implements entity.Validatable interface.
func (s *Supplier) Validate(ctx context.Context) error {
	return s.Catalog.Validate(ctx)
}
