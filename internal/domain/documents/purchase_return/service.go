package purchase_return

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
	"pharmacore/internal/domain/documents/purchase_invoice"
	"pharmacore/internal/domain/ledger"
	"pharmacore/internal/domain/posting"
	"pharmacore/pkg/logger"
)

// Service provides business operations for purchase returns.
type Service struct {
	repo      Repository
	engine    *posting.Engine
	numerator numerator.Generator
	txManager tx.Manager // Optional. If nil, obtained from context.

	purchases purchase_invoice.Repository
	batches   batches.Repository
	ledger    *ledger.Service
	vault     *account.Service
	suppliers *supplier.Service
}

// ServiceConfig wires the purchase return service dependencies.
type ServiceConfig struct {
	Repo      Repository
	Engine    *posting.Engine
	Numerator numerator.Generator
	TxManager tx.Manager // Optional - falls back to context

	Purchases purchase_invoice.Repository
	Batches   batches.Repository
	Ledger    *ledger.Service
	Vault     *account.Service
	Suppliers *supplier.Service
}

// NewService creates a new purchase return service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:      cfg.Repo,
		engine:    cfg.Engine,
		numerator: cfg.Numerator,
		txManager: cfg.TxManager,
		purchases: cfg.Purchases,
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

// Create creates a new draft purchase return. Supplier, payment method
// and line prices are copied from the origin invoice.
func (s *Service) Create(ctx context.Context, doc *PurchaseReturn) error {
	origin, err := s.purchases.GetByID(ctx, doc.OriginInvoiceID)
	if err != nil {
		return err
	}
	if origin.Status != entity.StatusApproved {
		return apperror.NewInvalidState("returns can only reference approved invoices").
			WithDetail("originStatus", string(origin.Status))
	}

	originLines, err := s.purchases.GetLines(ctx, doc.OriginInvoiceID)
	if err != nil {
		return fmt.Errorf("get origin lines: %w", err)
	}

	doc.SupplierID = origin.SupplierID
	doc.PaymentMethod = origin.PaymentMethod

	byBatch := make(map[id.ID]*purchase_invoice.PurchaseLine, len(originLines))
	for i := range originLines {
		if originLines[i].BatchID != nil {
			byBatch[*originLines[i].BatchID] = &originLines[i]
		}
	}
	for i := range doc.Lines {
		line := &doc.Lines[i]
		ol, ok := byBatch[line.BatchID]
		if !ok {
			return apperror.NewValidation("batch was not received by the origin invoice").
				WithDetail("batchId", line.BatchID)
		}
		line.MedicineID = ol.MedicineID
		line.UnitPurchasePrice = ol.UnitPurchasePrice
	}
	doc.RecalculateTotals()

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

	logger.Info(ctx, "purchase return created", "id", doc.ID, "number", doc.Number, "origin", doc.OriginInvoiceID)
	return nil
}

// GetByID retrieves a purchase return with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*PurchaseReturn, error) {
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

// Update updates a draft purchase return.
func (s *Service) Update(ctx context.Context, doc *PurchaseReturn) error {
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

// Delete soft-deletes a draft purchase return.
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

// List retrieves purchase returns with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*PurchaseReturn], error) {
	return s.repo.List(ctx, filter)
}

// Approve takes the returned quantities out of their batches, settles the
// money leg with the supplier and flips the return to approved.
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

// Cancel reverses all effects of an approved return: stock comes back
// into the batches and the money leg is undone.
func (s *Service) Cancel(ctx context.Context, docID id.ID) error {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return err
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
// workflow transaction. A batch that has sold anything cannot go back:
// the sold units belong to customers now.
func (s *Service) applyApprove(ctx context.Context, doc *PurchaseReturn) error {
	doc.RecalculateTotals()

	movements := make([]entity.Movement, 0, len(doc.Lines))
	for i := range doc.Lines {
		line := &doc.Lines[i]

		batch, err := s.batches.GetForUpdate(ctx, line.BatchID)
		if err != nil {
			return err
		}
		if batch.SoldQuantity.IsPositive() {
			return apperror.NewInvalidState("batch has sales and cannot be returned to the supplier").
				WithDetail("batchId", batch.ID).
				WithDetail("soldQuantity", batch.SoldQuantity)
		}
		if err := batch.TakeOut(line.Quantity); err != nil {
			return err
		}
		if err := s.batches.Update(ctx, batch); err != nil {
			return fmt.Errorf("update batch %s: %w", batch.ID, err)
		}

		batchID := line.BatchID
		movements = append(movements,
			entity.NewMovement(line.MedicineID, &batchID, entity.MovementPurchaseReturn, line.Quantity.Neg(), doc.GetDocumentType(), doc.ID))
	}

	if err := s.ledger.Record(ctx, movements); err != nil {
		return err
	}

	if doc.Amount.IsPositive() {
		if doc.PaymentMethod == domain.PaymentCash {
			return s.vault.Deposit(ctx, doc.Amount, doc.GetDocumentType(), doc.ID, "supplier refund "+doc.Number)
		}
		return s.suppliers.ReduceDebt(ctx, doc.SupplierID, doc.Amount)
	}
	return nil
}

// undoEffects appends compensating movements, puts the stock back into
// the batches and re-establishes the money position.
func (s *Service) undoEffects(ctx context.Context, doc *PurchaseReturn) error {
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
		// Reversal of a return issue is positive; receive it back.
		if err := batch.PutBack(rev.Quantity); err != nil {
			return err
		}
		if err := s.batches.Update(ctx, batch); err != nil {
			return fmt.Errorf("update batch %s: %w", batch.ID, err)
		}
	}

	if doc.Amount.IsPositive() {
		if doc.PaymentMethod == domain.PaymentCash {
			return s.vault.Withdraw(ctx, doc.Amount, doc.GetDocumentType(), doc.ID, "cancel return "+doc.Number)
		}
		return s.suppliers.AddDebt(ctx, doc.SupplierID, doc.Amount)
	}
	return nil
}
