// Package medicine provides the Medicine catalog.
// Medicines are the products tracked by the batch inventory.
package medicine

import (
	"context"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/entity"
	"pharmacore/internal/core/types"
)

// Medicine represents a product sold by the pharmacy.
// Stock is tracked per batch; the catalog row carries defaults only.
type Medicine struct {
	entity.Catalog

	// Barcode is the product barcode (EAN-13, etc.)
	Barcode *string `db:"barcode" json:"barcode,omitempty"`

	// Manufacturer is the producing company name
	Manufacturer *string `db:"manufacturer" json:"manufacturer,omitempty"`

	// Description is a detailed description
	Description *string `db:"description" json:"description,omitempty"`

	// MinAlertQuantity triggers a low-stock alert when total remaining
	// stock across batches drops below it. Zero disables the alert.
	MinAlertQuantity types.Quantity `db:"min_alert_quantity" json:"minAlertQuantity"`

	// DefaultPurchasePrice pre-fills purchase invoice lines
	DefaultPurchasePrice types.MinorUnits `db:"default_purchase_price" json:"defaultPurchasePrice"`

	// DefaultSalePrice pre-fills new batch sale prices
	DefaultSalePrice types.MinorUnits `db:"default_sale_price" json:"defaultSalePrice"`

	// Attributes holds free-form properties (dosage form, prescription
	// flag, storage conditions) without schema changes
	Attributes entity.Attributes `db:"attributes" json:"attributes,omitempty"`
}

// NewMedicine creates a new Medicine with required fields.
func NewMedicine(code, name string) *Medicine {
	return &Medicine{
		Catalog: entity.NewCatalog(code, name),
	}
}

// Validate implements entity.Validatable interface.
func (m *Medicine) Validate(ctx context.Context) error {
	// Base catalog validation
	if err := m.Catalog.Validate(ctx); err != nil {
		return err
	}

	if m.MinAlertQuantity.IsNegative() {
		return apperror.NewValidation("minimum alert quantity cannot be negative").
			WithDetail("field", "minAlertQuantity")
	}

	if m.DefaultPurchasePrice.IsNegative() {
		return apperror.NewValidation("default purchase price cannot be negative").
			WithDetail("field", "defaultPurchasePrice")
	}

	if m.DefaultSalePrice.IsNegative() {
		return apperror.NewValidation("default sale price cannot be negative").
			WithDetail("field", "defaultSalePrice")
	}

	return nil
}

// HasAlertThreshold reports whether low-stock alerts are enabled.
func (m *Medicine) HasAlertThreshold() bool {
	return m.MinAlertQuantity.IsPositive()
}
