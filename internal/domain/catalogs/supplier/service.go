package supplier

import (
	"context"
	"fmt"
	"time"

	"pharmacore/internal/core/id"
	"pharmacore/internal/core/numerator"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain"
)

// Service provides business logic for Supplier catalog.
// Uses composition with domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Supplier]
	repo      Repository
	numerator numerator.Generator
}

// NewService creates a new Supplier service.
// TxManager is obtained from context.
func NewService(
	repo Repository,
	numerator numerator.Generator,
) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Supplier]{
		Repo:       repo,
		TxManager:  nil, // Will be obtained from context
		Numerator:  numerator,
		EntityName: "supplier",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      numerator,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)

	return svc
}

// prepareForCreate handles code generation before create.
func (s *Service) prepareForCreate(ctx context.Context, sup *Supplier) error {
	if sup.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("SUP"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		sup.Code = code
	}
	return nil
}

// --- Balance operations ---
// Must be called inside a transaction; rely on GetForUpdate row locks.

// AddDebt increases the amount owed to the supplier (credit purchase).
func (s *Service) AddDebt(ctx context.Context, supplierID id.ID, amount types.MinorUnits) error {
	if _, err := s.repo.GetForUpdate(ctx, supplierID); err != nil {
		return err
	}
	return s.repo.AdjustBalance(ctx, supplierID, amount)
}

// ReduceDebt decreases the amount owed to the supplier (payment or return).
func (s *Service) ReduceDebt(ctx context.Context, supplierID id.ID, amount types.MinorUnits) error {
	if _, err := s.repo.GetForUpdate(ctx, supplierID); err != nil {
		return err
	}
	return s.repo.AdjustBalance(ctx, supplierID, amount.Neg())
}
