package batches

import (
	"context"
	"fmt"
	"time"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/entity"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/tx"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain/account"
	"pharmacore/internal/domain/ledger"
	"pharmacore/pkg/logger"
)

// ScrapReason classifies why a batch is written off.
type ScrapReason string

const (
	ScrapDamaged     ScrapReason = "damaged"
	ScrapQuarantined ScrapReason = "quarantined"
	ScrapExpired     ScrapReason = "expired"
)

// Service provides business operations for the batch inventory.
type Service struct {
	repo   Repository
	ledger *ledger.Service
	vault  *account.Service
}

// NewService creates a new batch inventory service.
func NewService(repo Repository, ledgerSvc *ledger.Service, vault *account.Service) *Service {
	return &Service{
		repo:   repo,
		ledger: ledgerSvc,
		vault:  vault,
	}
}

// GetByID retrieves a batch.
func (s *Service) GetByID(ctx context.Context, batchID id.ID) (*Batch, error) {
	return s.repo.GetByID(ctx, batchID)
}

// ListByMedicine returns all batches of a medicine.
func (s *Service) ListByMedicine(ctx context.Context, medicineID id.ID) ([]*Batch, error) {
	return s.repo.ListByMedicine(ctx, medicineID)
}

// TotalRemaining sums remaining quantity across a medicine's batches.
func (s *Service) TotalRemaining(ctx context.Context, medicineID id.ID) (types.Quantity, error) {
	totals, err := s.repo.TotalRemainingByMedicine(ctx, []id.ID{medicineID})
	if err != nil {
		return 0, err
	}
	return totals[medicineID], nil
}

// MarkStatus transitions a batch to the given status without touching stock.
// Used for quarantine and manual status corrections.
func (s *Service) MarkStatus(ctx context.Context, batchID id.ID, status BatchStatus) error {
	if !isValidBatchStatus(status) {
		return apperror.NewValidation("invalid batch status").
			WithDetail("value", string(status))
	}

	txm, err := tx.FromContext(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	return txm.RunInTransaction(ctx, func(ctx context.Context) error {
		batch, err := s.repo.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		batch.Status = status
		return s.repo.Update(ctx, batch)
	})
}

// Scrap writes off the remaining stock of a batch.
//
// The residual purchase value is refunded to the vault only when the batch
// has not expired yet (the supplier takes damaged stock back); an expired
// write-off is absorbed as a loss.
func (s *Service) Scrap(ctx context.Context, batchID id.ID, reason ScrapReason, note string) error {
	txm, err := tx.FromContext(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	return txm.RunInTransaction(ctx, func(ctx context.Context) error {
		batch, err := s.repo.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if batch.Status == StatusScrapped {
			return apperror.NewInvalidState("batch is already scrapped").
				WithDetail("batch_id", batchID.String())
		}
		if !batch.RemainingQuantity.IsPositive() {
			return apperror.NewInvalidState("batch has no remaining stock to scrap").
				WithDetail("batch_id", batchID.String())
		}

		now := time.Now().UTC()
		qty := batch.RemainingQuantity
		residual := batch.ResidualValue()
		expired := batch.IsExpired(now)

		batch.RemainingQuantity = 0
		batch.Status = StatusScrapped
		if err := s.repo.Update(ctx, batch); err != nil {
			return fmt.Errorf("update batch: %w", err)
		}

		movementType := entity.MovementDamage
		if expired || reason == ScrapExpired {
			movementType = entity.MovementExpiry
		}
		bID := batch.ID
		movement := entity.NewMovement(batch.MedicineID, &bID, movementType, qty.Neg(), "BatchScrap", batch.ID)
		movement.Notes = note
		if err := s.ledger.Record(ctx, []entity.Movement{movement}); err != nil {
			return err
		}

		if !expired && residual.IsPositive() {
			if err := s.vault.Deposit(ctx, residual, "BatchScrap", batch.ID, "supplier refund for scrapped batch"); err != nil {
				return err
			}
		}

		logger.Info(ctx, "batch scrapped",
			"batch_id", batchID,
			"reason", string(reason),
			"quantity", qty,
			"refunded", !expired && residual.IsPositive(),
		)
		return nil
	})
}

// SweepExpired marks active batches past their expiry date as expired and
// reports ledger/batch reconciliation discrepancies. The sweep corrects
// status only; writing stock off stays an explicit scrap.
func (s *Service) SweepExpired(ctx context.Context, asOf time.Time) (int, error) {
	txm, err := tx.FromContext(ctx)
	if err != nil {
		return 0, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	var swept int
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		expired, err := s.repo.ListExpiredActive(ctx, asOf)
		if err != nil {
			return fmt.Errorf("list expired batches: %w", err)
		}

		for _, stale := range expired {
			batch, err := s.repo.GetForUpdate(ctx, stale.ID)
			if err != nil {
				return err
			}
			if batch.Status != StatusActive || !batch.IsExpired(asOf) {
				continue // raced with a concurrent transition
			}
			batch.Status = StatusExpired
			if err := s.repo.Update(ctx, batch); err != nil {
				return fmt.Errorf("mark batch expired: %w", err)
			}
			swept++

			s.reconcile(ctx, batch)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if swept > 0 {
		logger.Info(ctx, "expired batch sweep finished", "swept", swept)
	}
	return swept, nil
}

// reconcile compares the authoritative batch remaining quantity against the
// ledger sum and logs (does not fix) any divergence.
func (s *Service) reconcile(ctx context.Context, batch *Batch) {
	bID := batch.ID
	ledgerQty, err := s.ledger.CurrentBalance(ctx, batch.MedicineID, &bID)
	if err != nil {
		logger.Warn(ctx, "batch reconciliation failed",
			"batch_id", batch.ID,
			"error", err,
		)
		return
	}
	if ledgerQty != batch.RemainingQuantity {
		logger.Warn(ctx, "batch diverges from ledger",
			"batch_id", batch.ID,
			"medicine_id", batch.MedicineID,
			"batch_remaining", batch.RemainingQuantity,
			"ledger_balance", ledgerQty,
		)
	}
}
