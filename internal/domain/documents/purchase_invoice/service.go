package purchase_invoice

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
	"pharmacore/internal/domain/audit"
	"pharmacore/internal/domain/batches"
	"pharmacore/internal/domain/catalogs/supplier"
	"pharmacore/internal/domain/ledger"
	"pharmacore/internal/domain/posting"
	"pharmacore/pkg/logger"
)

// Service provides business operations for purchase invoices.
type Service struct {
	repo      Repository
	engine    *posting.Engine
	numerator numerator.Generator
	txManager tx.Manager // Optional. If nil, obtained from context.

	batches   batches.Repository
	ledger    *ledger.Service
	vault     *account.Service
	suppliers *supplier.Service
}

// ServiceConfig wires the purchase invoice service dependencies.
type ServiceConfig struct {
	Repo      Repository
	Engine    *posting.Engine
	Numerator numerator.Generator
	TxManager tx.Manager // Optional - falls back to context

	Batches   batches.Repository
	Ledger    *ledger.Service
	Vault     *account.Service
	Suppliers *supplier.Service
}

// NewService creates a new purchase invoice service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:      cfg.Repo,
		engine:    cfg.Engine,
		numerator: cfg.Numerator,
		txManager: cfg.TxManager,
		batches:   cfg.Batches,
		ledger:    cfg.Ledger,
		vault:     cfg.Vault,
		suppliers: cfg.Suppliers,
	}
}

func (s *Service) getTxManager(ctx context.Context) (tx.Manager, error) {
	if s.txManager != nil {
		return s.txManager, nil
	}
	return tx.FromContext(ctx)
}

// Create creates a new draft purchase invoice.
func (s *Service) Create(ctx context.Context, doc *PurchaseInvoice) error {
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

	logger.Info(ctx, "purchase invoice created", "id", doc.ID, "number", doc.Number)
	return nil
}

// GetByID retrieves a purchase invoice with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*PurchaseInvoice, error) {
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

// Update updates a draft purchase invoice.
func (s *Service) Update(ctx context.Context, doc *PurchaseInvoice) error {
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

// Delete soft-deletes a draft purchase invoice.
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

// List retrieves purchase invoices with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*PurchaseInvoice], error) {
	return s.repo.List(ctx, filter)
}

// Approve pays the supplier, creates one batch per line, records purchase
// movements and flips the invoice to approved. One transaction.
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

	return s.engine.Approve(ctx, doc,
		func(ctx context.Context) error { return s.applyApprove(ctx, doc) },
		persist,
	)
}

// Cancel reverses all effects of an approved invoice.
// Blocked while non-cancelled purchase returns reference it; fails with
// InsufficientStock if part of the received stock was already sold.
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
		func(ctx context.Context) error { return s.undoEffects(ctx, doc) },
		persist,
	)
}

// applyApprove performs the business effects of approval inside the
// workflow transaction.
func (s *Service) applyApprove(ctx context.Context, doc *PurchaseInvoice) error {
	doc.RecalculateTotals()

	// Money first: a cash purchase the vault cannot cover must fail
	// before any stock appears.
	if doc.PaymentMethod == domain.PaymentCash {
		if err := s.vault.Withdraw(ctx, doc.Amount, doc.GetDocumentType(), doc.ID, "cash purchase "+doc.Number); err != nil {
			return err
		}
	} else {
		if err := s.suppliers.AddDebt(ctx, doc.SupplierID, doc.Amount); err != nil {
			return err
		}
	}

	movements := make([]entity.Movement, 0, len(doc.Lines))
	for i := range doc.Lines {
		line := &doc.Lines[i]

		batch := batches.NewBatch(line.MedicineID, line.Quantity, line.UnitPurchasePrice, line.UnitSalePrice, line.ExpiryDate)
		batch.Barcode = line.Barcode
		if err := batch.Validate(ctx); err != nil {
			return err
		}
		if err := s.batches.Create(ctx, batch); err != nil {
			return fmt.Errorf("create batch: %w", err)
		}

		batchID := batch.ID
		line.BatchID = &batchID
		movements = append(movements,
			entity.NewMovement(line.MedicineID, &batchID, entity.MovementPurchase, line.Quantity, doc.GetDocumentType(), doc.ID))
	}

	return s.ledger.Record(ctx, movements)
}

// undoEffects appends compensating movements, drains the created batches
// and reverts the money leg.
func (s *Service) undoEffects(ctx context.Context, doc *PurchaseInvoice) error {
	reversals, err := s.ledger.ReverseDocument(ctx, doc.GetDocumentType(), doc.ID, "cancel "+doc.Number)
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
		// Reversal of a receipt is negative; take that much back out.
		if err := batch.TakeOut(rev.Quantity.Abs()); err != nil {
			return err
		}
		if err := s.batches.Update(ctx, batch); err != nil {
			return fmt.Errorf("update batch %s: %w", batch.ID, err)
		}
	}

	if doc.Amount.IsPositive() {
		if doc.PaymentMethod == domain.PaymentCash {
			if err := s.vault.Deposit(ctx, doc.Amount, doc.GetDocumentType(), doc.ID, "cancel purchase "+doc.Number); err != nil {
				return err
			}
		} else {
			if err := s.suppliers.ReduceDebt(ctx, doc.SupplierID, doc.Amount); err != nil {
				return err
			}
		}
	}

	return nil
}
