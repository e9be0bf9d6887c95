package customer

import (
	"context"
	"fmt"
	"time"

	"pharmacore/internal/core/id"
	"pharmacore/internal/core/numerator"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain"
)

// Service provides business logic for Customer catalog.
// Uses composition with domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Customer]
	repo      Repository
	numerator numerator.Generator
}

// NewService creates a new Customer service.
// TxManager is obtained from context.
func NewService(
	repo Repository,
	numerator numerator.Generator,
) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Customer]{
		Repo:       repo,
		TxManager:  nil, // Will be obtained from context
		Numerator:  numerator,
		EntityName: "customer",
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
func (s *Service) prepareForCreate(ctx context.Context, cust *Customer) error {
	if cust.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("CUS"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		cust.Code = code
	}
	return nil
}

// --- Balance operations ---
// These run inside an ambient transaction (document approval) and rely on
// GetForUpdate row locks. They are not exposed over HTTP directly.

// AddDebt increases customer debt after a credit-limit check.
// Must be called inside a transaction.
func (s *Service) AddDebt(ctx context.Context, customerID id.ID, amount types.MinorUnits) error {
	cust, err := s.repo.GetForUpdate(ctx, customerID)
	if err != nil {
		return err
	}
	if err := cust.CheckCredit(amount); err != nil {
		return err
	}
	return s.repo.AdjustBalance(ctx, customerID, amount)
}

// ReduceDebt decreases customer debt (payment or credit return).
// Must be called inside a transaction.
func (s *Service) ReduceDebt(ctx context.Context, customerID id.ID, amount types.MinorUnits) error {
	if _, err := s.repo.GetForUpdate(ctx, customerID); err != nil {
		return err
	}
	return s.repo.AdjustBalance(ctx, customerID, amount.Neg())
}

// RestoreDebt re-applies debt removed by a cancelled credit return.
// Unlike AddDebt it skips the credit-limit check: reversals must not fail
// on a limit the original sale already passed.
func (s *Service) RestoreDebt(ctx context.Context, customerID id.ID, amount types.MinorUnits) error {
	if _, err := s.repo.GetForUpdate(ctx, customerID); err != nil {
		return err
	}
	return s.repo.AdjustBalance(ctx, customerID, amount)
}
