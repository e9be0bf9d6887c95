// Package ledger provides the append-only stock movement ledger service.
package ledger

import (
	"context"
	"fmt"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/entity"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/security"
	"pharmacore/internal/core/types"
	"pharmacore/pkg/logger"
)

// Service provides business operations for the movement ledger.
// Transactions are managed by the caller (the workflow engine).
type Service struct {
	repo Repository
}

// NewService creates a new ledger service.
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
	}
}

// Record appends movements to the ledger.
// Called during document approval within a transaction.
func (s *Service) Record(ctx context.Context, movements []entity.Movement) error {
	if len(movements) == 0 {
		return nil
	}

	for i := range movements {
		m := &movements[i]
		if m.Quantity.IsZero() {
			return apperror.NewValidation(fmt.Sprintf("movement %d: quantity must be non-zero", i))
		}
		if id.IsNil(m.ReferenceID) {
			return apperror.NewValidation(fmt.Sprintf("movement %d: reference_id is required", i))
		}
		if m.CreatedBy == "" {
			m.CreatedBy = security.GetUserID(ctx)
		}
	}

	if err := s.repo.CreateMovements(ctx, movements); err != nil {
		return fmt.Errorf("create movements: %w", err)
	}

	logger.Info(ctx, "recorded ledger movements",
		"count", len(movements),
		"reference_id", movements[0].ReferenceID,
	)

	return nil
}

// ReverseDocument appends equal-and-opposite movements for every
// not-yet-reversed movement of the document. The ledger never deletes rows;
// cancellation and unapproval compensate instead.
//
// Returns the reversal movements so the caller can undo batch quantities.
// Reversing a document twice is an invalid state.
func (s *Service) ReverseDocument(ctx context.Context, referenceType string, referenceID id.ID, notes string) ([]entity.Movement, error) {
	originals, err := s.repo.ListUnreversed(ctx, referenceID)
	if err != nil {
		return nil, fmt.Errorf("list unreversed movements: %w", err)
	}
	if len(originals) == 0 {
		return nil, apperror.NewInvalidState("document movements are already reversed").
			WithDetail("reference_id", referenceID.String())
	}

	reversals := make([]entity.Movement, 0, len(originals))
	for _, m := range originals {
		rev := m.Reversal(referenceType, referenceID)
		rev.Notes = notes
		reversals = append(reversals, rev)
	}

	if err := s.Record(ctx, reversals); err != nil {
		return nil, err
	}

	logger.Info(ctx, "reversed document movements",
		"reference_id", referenceID,
		"count", len(reversals),
	)

	return reversals, nil
}

// GetByDocument retrieves all movements recorded by a document.
func (s *Service) GetByDocument(ctx context.Context, referenceID id.ID) ([]entity.Movement, error) {
	return s.repo.GetByDocument(ctx, referenceID)
}

// CurrentBalance recomputes stock for a medicine from the ledger.
// Advisory: the batch row carries the authoritative remaining quantity,
// this sum exists for reconciliation.
func (s *Service) CurrentBalance(ctx context.Context, medicineID id.ID, batchID *id.ID) (types.Quantity, error) {
	return s.repo.CurrentBalance(ctx, medicineID, batchID)
}

// GetMovementHistory returns movement history for a medicine.
func (s *Service) GetMovementHistory(ctx context.Context, medicineID id.ID, filter MovementFilter) ([]entity.Movement, error) {
	return s.repo.GetMovementHistory(ctx, medicineID, filter)
}
