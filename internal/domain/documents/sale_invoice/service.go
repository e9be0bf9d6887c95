package sale_invoice

import (
	"context"
	"fmt"
	"time"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/entity"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/numerator"
	"pharmacore/internal/core/tx"
	"pharmacore/internal/domain"
	"pharmacore/internal/domain/account"
	"pharmacore/internal/domain/alerts"
	"pharmacore/internal/domain/allocation"
	"pharmacore/internal/domain/audit"
	"pharmacore/internal/domain/batches"
	"pharmacore/internal/domain/catalogs/customer"
	"pharmacore/internal/domain/ledger"
	"pharmacore/internal/domain/posting"
	"pharmacore/pkg/logger"
)

// Service provides business operations for sale invoices.
type Service struct {
	repo      Repository
	engine    *posting.Engine
	numerator numerator.Generator
	txManager tx.Manager // Optional. If nil, obtained from context.

	batches   batches.Repository
	allocator *allocation.Engine
	ledger    *ledger.Service
	vault     *account.Service
	customers *customer.Service
	alerts    *alerts.Service
}

// ServiceConfig wires the sale invoice service dependencies.
type ServiceConfig struct {
	Repo      Repository
	Engine    *posting.Engine
	Numerator numerator.Generator
	TxManager tx.Manager // Optional - falls back to context

	Batches   batches.Repository
	Allocator *allocation.Engine
	Ledger    *ledger.Service
	Vault     *account.Service
	Customers *customer.Service
	Alerts    *alerts.Service
}

// NewService creates a new sale invoice service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:      cfg.Repo,
		engine:    cfg.Engine,
		numerator: cfg.Numerator,
		txManager: cfg.TxManager,
		batches:   cfg.Batches,
		allocator: cfg.Allocator,
		ledger:    cfg.Ledger,
		vault:     cfg.Vault,
		customers: cfg.Customers,
		alerts:    cfg.Alerts,
	}
}

func (s *Service) getTxManager(ctx context.Context) (tx.Manager, error) {
	if s.txManager != nil {
		return s.txManager, nil
	}
	return tx.FromContext(ctx)
}

// Create creates a new draft sale invoice.
func (s *Service) Create(ctx context.Context, doc *SaleInvoice) error {
	if err := doc.Validate(ctx); err != nil {
		return err
	}
	audit.EnrichCreatedByDirect(ctx, &doc.CreatedBy, &doc.UpdatedBy)

	if doc.Number == "" {
		cfg := numerator.DefaultConfig(NumberPrefix)
		number, err := s.numerator.GetNextNumber(ctx, cfg, &numerator.Options{Strategy: NumeratorStrategy}, time.Now())
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		doc.Number = number
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "sale invoice created", "id", doc.ID, "number", doc.Number)
	return nil
}

// GetByID retrieves a sale invoice with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*SaleInvoice, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	lines, err := s.repo.GetLines(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	doc.Lines = lines

	return doc, nil
}

// Update updates a draft sale invoice.
func (s *Service) Update(ctx context.Context, doc *SaleInvoice) error {
	if err := doc.CanModify(); err != nil {
		return err
	}
	if err := doc.Validate(ctx); err != nil {
		return err
	}
	audit.EnrichUpdatedByDirect(ctx, &doc.UpdatedBy)

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	return txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
}

// Delete soft-deletes a draft sale invoice.
func (s *Service) Delete(ctx context.Context, docID id.ID) error {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return err
	}
	if err := doc.CanModify(); err != nil {
		return err
	}
	return s.repo.Delete(ctx, docID)
}

// List retrieves sale invoices with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*SaleInvoice], error) {
	return s.repo.List(ctx, filter)
}

// Approve allocates stock, records movements and money, and flips the
// invoice to approved. One transaction; the low-stock alert refresh runs
// after commit.
func (s *Service) Approve(ctx context.Context, docID id.ID) error {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return err
	}
	if err := doc.Validate(ctx); err != nil {
		return err
	}

	persist := func(ctx context.Context) error {
		if err := s.repo.Update(ctx, doc); err != nil {
			return err
		}
		return s.repo.SaveLines(ctx, doc.ID, doc.Lines)
	}

	err = s.engine.Approve(ctx, doc,
		func(ctx context.Context) error { return s.applyApprove(ctx, doc) },
		persist,
	)
	if err != nil {
		return err
	}

	s.alerts.RefreshAsync(ctx, lineMedicineIDs(doc.Lines))
	return nil
}

// Cancel reverses all effects of an approved invoice.
// Blocked while non-cancelled sales returns reference it.
func (s *Service) Cancel(ctx context.Context, docID id.ID) error {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return err
	}

	dependent, err := s.repo.HasDependentReturns(ctx, docID)
	if err != nil {
		return fmt.Errorf("check dependent returns: %w", err)
	}
	if dependent {
		return apperror.NewHasDependentReturns(docID.String())
	}

	persist := func(ctx context.Context) error {
		if err := s.repo.Update(ctx, doc); err != nil {
			return err
		}
		return s.repo.SaveLines(ctx, doc.ID, doc.Lines)
	}

	return s.engine.Cancel(ctx, doc,
		func(ctx context.Context) error { return s.undoEffects(ctx, doc, "cancel") },
		persist,
	)
}

// Unapprove reverses all effects and returns the invoice to draft so it
// can be edited and approved again.
func (s *Service) Unapprove(ctx context.Context, docID id.ID) error {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return err
	}

	dependent, err := s.repo.HasDependentReturns(ctx, docID)
	if err != nil {
		return fmt.Errorf("check dependent returns: %w", err)
	}
	if dependent {
		return apperror.NewHasDependentReturns(docID.String())
	}

	persist := func(ctx context.Context) error {
		if err := s.repo.Update(ctx, doc); err != nil {
			return err
		}
		return s.repo.SaveLines(ctx, doc.ID, doc.Lines)
	}

	return s.engine.Unapprove(ctx, doc,
		func(ctx context.Context) error { return s.undoEffects(ctx, doc, "unapprove") },
		persist,
	)
}

// applyApprove performs the business effects of approval inside the
// workflow transaction: allocation, batch reservation, ledger movements,
// and the money leg.
func (s *Service) applyApprove(ctx context.Context, doc *SaleInvoice) error {
	now := time.Now().UTC()

	var allocated []SaleLine
	for _, line := range doc.Lines {
		// Requery per line: earlier lines of the same invoice may have
		// drained batches of the same medicine.
		candidates, err := s.batches.ListSellableForUpdate(ctx, line.MedicineID, now)
		if err != nil {
			return fmt.Errorf("load sellable batches: %w", err)
		}

		byID := make(map[id.ID]*batches.Batch, len(candidates))
		for _, b := range candidates {
			byID[b.ID] = b
		}

		parts, err := s.allocator.Allocate(candidates, allocation.Request{
			MedicineID:       line.MedicineID,
			Quantity:         line.Quantity,
			PreferredBatchID: line.BatchID,
			UnitPrice:        line.UnitPrice,
		})
		if err != nil {
			return err
		}

		for _, part := range parts {
			batch := byID[part.BatchID]

			// Selling below cost is blocked outside the clearance window.
			if part.UnitPrice < part.UnitCost && !batch.IsNearExpiry(now) {
				return apperror.NewBelowCostSale(line.MedicineID.String(), part.UnitPrice, part.UnitCost)
			}

			if err := batch.Reserve(part.Quantity); err != nil {
				return err
			}
			if err := s.batches.Update(ctx, batch); err != nil {
				return fmt.Errorf("update batch %s: %w", batch.ID, err)
			}

			batchID := part.BatchID
			allocated = append(allocated, SaleLine{
				LineID:               id.New(),
				MedicineID:           line.MedicineID,
				BatchID:              &batchID,
				Quantity:             part.Quantity,
				UnitPrice:            part.UnitPrice,
				UnitCost:             part.UnitCost,
				RemainingQtyToReturn: part.Quantity,
			})
		}
	}

	doc.ReplaceLines(allocated)

	movements := make([]entity.Movement, 0, len(allocated))
	for _, line := range doc.Lines {
		movements = append(movements,
			entity.NewMovement(line.MedicineID, line.BatchID, entity.MovementSale, line.Quantity.Neg(), doc.GetDocumentType(), doc.ID))
	}
	if err := s.ledger.Record(ctx, movements); err != nil {
		return err
	}

	if doc.PaymentMethod == domain.PaymentCash {
		return s.vault.Deposit(ctx, doc.Amount, doc.GetDocumentType(), doc.ID, "cash sale "+doc.Number)
	}
	return s.customers.AddDebt(ctx, *doc.CustomerID, doc.Amount)
}

// undoEffects appends compensating movements and reverts batch and money
// effects. Used by both cancel and unapprove.
func (s *Service) undoEffects(ctx context.Context, doc *SaleInvoice, action string) error {
	reversals, err := s.ledger.ReverseDocument(ctx, doc.GetDocumentType(), doc.ID, action+" "+doc.Number)
	if err != nil {
		return err
	}

	for _, rev := range reversals {
		if rev.BatchID == nil {
			continue
		}
		batch, err := s.batches.GetForUpdate(ctx, *rev.BatchID)
		if err != nil {
			return err
		}
		if err := batch.Release(rev.Quantity); err != nil {
			return err
		}
		if err := s.batches.Update(ctx, batch); err != nil {
			return fmt.Errorf("update batch %s: %w", batch.ID, err)
		}
	}

	if doc.Amount.IsPositive() {
		if doc.PaymentMethod == domain.PaymentCash {
			if err := s.vault.Withdraw(ctx, doc.Amount, doc.GetDocumentType(), doc.ID, action+" refund "+doc.Number); err != nil {
				return err
			}
		} else {
			if err := s.customers.ReduceDebt(ctx, *doc.CustomerID, doc.Amount); err != nil {
				return err
			}
		}
	}

	// Nothing is returnable from a reversed sale.
	for i := range doc.Lines {
		doc.Lines[i].RemainingQtyToReturn = 0
	}
	return nil
}

func lineMedicineIDs(lines []SaleLine) []id.ID {
	seen := make(map[id.ID]struct{}, len(lines))
	ids := make([]id.ID, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.MedicineID]; ok {
			continue
		}
		seen[line.MedicineID] = struct{}{}
		ids = append(ids, line.MedicineID)
	}
	return ids
}
