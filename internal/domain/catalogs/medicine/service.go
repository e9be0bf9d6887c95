package medicine

import (
	"context"
	"fmt"
	"time"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/numerator"
	"pharmacore/internal/domain"
)

// Service provides business logic for Medicine catalog.
// Uses composition with domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Medicine]
	repo      Repository
	numerator numerator.Generator
}

// NewService creates a new Medicine service.
// TxManager is obtained from context.
func NewService(
	repo Repository,
	numerator numerator.Generator,
) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Medicine]{
		Repo:       repo,
		TxManager:  nil, // Will be obtained from context
		Numerator:  numerator,
		EntityName: "medicine",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      numerator,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)
	base.Hooks().OnBeforeUpdate(svc.prepareForUpdate)

	return svc
}

// prepareForCreate handles code generation and uniqueness checks.
func (s *Service) prepareForCreate(ctx context.Context, med *Medicine) error {
	// Generate code if not provided
	if med.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("MED"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		med.Code = code
	}

	return s.checkBarcodeUnique(ctx, med)
}

// prepareForUpdate handles uniqueness checks.
func (s *Service) prepareForUpdate(ctx context.Context, med *Medicine) error {
	return s.checkBarcodeUnique(ctx, med)
}

func (s *Service) checkBarcodeUnique(ctx context.Context, med *Medicine) error {
	if med.Barcode == nil || *med.Barcode == "" {
		return nil
	}
	exists, err := s.checkBarcodeExists(ctx, *med.Barcode, med.ID)
	if err != nil {
		return err
	}
	if exists {
		return apperror.NewConflict("medicine with this barcode already exists").
			WithDetail("barcode", med.Barcode)
	}
	return nil
}

// --- Entity-specific methods ---

// FindByBarcode retrieves medicine by barcode.
func (s *Service) FindByBarcode(ctx context.Context, barcode string) (*Medicine, error) {
	return s.repo.FindByBarcode(ctx, barcode)
}

// checkBarcodeExists checks if barcode is already used by another medicine.
func (s *Service) checkBarcodeExists(ctx context.Context, barcode string, excludeID id.ID) (bool, error) {
	existing, err := s.repo.FindByBarcode(ctx, barcode)
	if err != nil {
		if apperror.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return existing.ID != excludeID, nil
}
