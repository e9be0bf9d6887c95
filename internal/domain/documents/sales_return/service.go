package sales_return

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
	"pharmacore/internal/domain/catalogs/customer"
	"pharmacore/internal/domain/documents/sale_invoice"
	"pharmacore/internal/domain/ledger"
	"pharmacore/internal/domain/posting"
	"pharmacore/pkg/logger"
)

// Service provides business operations for sales returns.
type Service struct {
	repo      Repository
	engine    *posting.Engine
	numerator numerator.Generator
	txManager tx.Manager // Optional. If nil, obtained from context.

	sales     sale_invoice.Repository
	batches   batches.Repository
	ledger    *ledger.Service
	vault     *account.Service
	customers *customer.Service
}

// ServiceConfig wires the sales return service dependencies.
type ServiceConfig struct {
	Repo      Repository
	Engine    *posting.Engine
	Numerator numerator.Generator
	TxManager tx.Manager // Optional - falls back to context

	Sales     sale_invoice.Repository
	Batches   batches.Repository
	Ledger    *ledger.Service
	Vault     *account.Service
	Customers *customer.Service
}

// NewService creates a new sales return service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:      cfg.Repo,
		engine:    cfg.Engine,
		numerator: cfg.Numerator,
		txManager: cfg.TxManager,
		sales:     cfg.Sales,
		batches:   cfg.Batches,
		ledger:    cfg.Ledger,
		vault:     cfg.Vault,
		customers: cfg.Customers,
	}
}

func (s *Service) getTxManager(ctx context.Context) (tx.Manager, error) {
	if s.txManager != nil {
		return s.txManager, nil
	}
	return tx.FromContext(ctx)
}

// Create creates a new draft sales return. Customer, payment method and
// line prices are copied from the origin invoice so the reversal is exact.
func (s *Service) Create(ctx context.Context, doc *SalesReturn) error {
	origin, err := s.sales.GetByID(ctx, doc.OriginInvoiceID)
	if err != nil {
		return err
	}
	if origin.Status != entity.StatusApproved {
		return apperror.NewInvalidState("returns can only reference approved invoices").
			WithDetail("originStatus", string(origin.Status))
	}

	originLines, err := s.sales.GetLines(ctx, doc.OriginInvoiceID)
	if err != nil {
		return fmt.Errorf("get origin lines: %w", err)
	}

	doc.CustomerID = origin.CustomerID
	doc.CustomerName = origin.CustomerName
	doc.PaymentMethod = origin.PaymentMethod

	byID := originLinesByID(originLines)
	for i := range doc.Lines {
		line := &doc.Lines[i]
		ol, ok := byID[line.OriginLineID]
		if ok {
			line.MedicineID = ol.MedicineID
			if ol.BatchID != nil {
				line.BatchID = *ol.BatchID
			}
			line.UnitPrice = ol.UnitPrice
			line.UnitCost = ol.UnitCost
		}
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

	logger.Info(ctx, "sales return created", "id", doc.ID, "number", doc.Number, "origin", doc.OriginInvoiceID)
	return nil
}

// GetByID retrieves a sales return with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*SalesReturn, error) {
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

// Update updates a draft sales return.
func (s *Service) Update(ctx context.Context, doc *SalesReturn) error {
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

// Delete soft-deletes a draft sales return.
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

// List retrieves sales returns with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*SalesReturn], error) {
	return s.repo.List(ctx, filter)
}

// Approve puts the returned quantities back into their batches, draws down
// the origin invoice return caps, refunds the money leg and flips the
// return to approved. One transaction.
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

// Cancel reverses all effects of an approved return: stock goes back out
// of the batches, origin return caps are restored, money is re-collected.
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
// workflow transaction. The origin invoice is locked first so concurrent
// returns against the same invoice serialize on its row.
func (s *Service) applyApprove(ctx context.Context, doc *SalesReturn) error {
	origin, err := s.sales.GetForUpdate(ctx, doc.OriginInvoiceID)
	if err != nil {
		return err
	}
	if origin.Status != entity.StatusApproved {
		return apperror.NewInvalidState("origin invoice is not approved").
			WithDetail("originStatus", string(origin.Status))
	}

	originLines, err := s.sales.GetLines(ctx, doc.OriginInvoiceID)
	if err != nil {
		return fmt.Errorf("get origin lines: %w", err)
	}
	byID := originLinesByID(originLines)

	movements := make([]entity.Movement, 0, len(doc.Lines))
	for i := range doc.Lines {
		line := &doc.Lines[i]

		ol, ok := byID[line.OriginLineID]
		if !ok {
			return apperror.NewValidation("origin line does not belong to the origin invoice").
				WithDetail("originLineId", line.OriginLineID)
		}
		if line.Quantity > ol.RemainingQtyToReturn {
			return apperror.NewOverReturn(ol.LineID.String(), line.Quantity, ol.RemainingQtyToReturn)
		}

		// Re-pin to the origin allocation regardless of what the draft held.
		line.MedicineID = ol.MedicineID
		if ol.BatchID == nil {
			return apperror.NewInvalidState("origin line has no batch allocation").
				WithDetail("originLineId", ol.LineID)
		}
		line.BatchID = *ol.BatchID
		line.UnitPrice = ol.UnitPrice
		line.UnitCost = ol.UnitCost

		batch, err := s.batches.GetForUpdate(ctx, line.BatchID)
		if err != nil {
			return err
		}
		if err := batch.Release(line.Quantity); err != nil {
			return err
		}
		if err := s.batches.Update(ctx, batch); err != nil {
			return fmt.Errorf("update batch %s: %w", batch.ID, err)
		}

		ol.RemainingQtyToReturn -= line.Quantity

		batchID := line.BatchID
		movements = append(movements,
			entity.NewMovement(line.MedicineID, &batchID, entity.MovementSalesReturn, line.Quantity, doc.GetDocumentType(), doc.ID))
	}
	doc.RecalculateTotals()

	if err := s.ledger.Record(ctx, movements); err != nil {
		return err
	}

	// The origin header shrinks by exactly what this return takes back.
	origin.Amount -= doc.Amount
	origin.Cost -= doc.Cost
	origin.Profit -= doc.Profit
	if err := s.sales.Update(ctx, origin); err != nil {
		return fmt.Errorf("update origin invoice: %w", err)
	}
	if err := s.sales.SaveLines(ctx, origin.ID, originLines); err != nil {
		return fmt.Errorf("save origin lines: %w", err)
	}

	if doc.Amount.IsPositive() {
		if doc.PaymentMethod == domain.PaymentCash {
			return s.vault.Withdraw(ctx, doc.Amount, doc.GetDocumentType(), doc.ID, "refund "+doc.Number)
		}
		return s.customers.ReduceDebt(ctx, *doc.CustomerID, doc.Amount)
	}
	return nil
}

// undoEffects appends compensating movements, takes the returned stock
// back out of the batches and restores the origin invoice.
func (s *Service) undoEffects(ctx context.Context, doc *SalesReturn) error {
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
		// Reversal of a return receipt is negative; sell that much again.
		if err := batch.Reserve(rev.Quantity.Abs()); err != nil {
			return err
		}
		if err := s.batches.Update(ctx, batch); err != nil {
			return fmt.Errorf("update batch %s: %w", batch.ID, err)
		}
	}

	origin, err := s.sales.GetForUpdate(ctx, doc.OriginInvoiceID)
	if err != nil {
		return err
	}
	originLines, err := s.sales.GetLines(ctx, doc.OriginInvoiceID)
	if err != nil {
		return fmt.Errorf("get origin lines: %w", err)
	}
	byID := originLinesByID(originLines)

	for _, line := range doc.Lines {
		if ol, ok := byID[line.OriginLineID]; ok {
			ol.RemainingQtyToReturn += line.Quantity
		}
	}
	origin.Amount += doc.Amount
	origin.Cost += doc.Cost
	origin.Profit += doc.Profit
	if err := s.sales.Update(ctx, origin); err != nil {
		return fmt.Errorf("update origin invoice: %w", err)
	}
	if err := s.sales.SaveLines(ctx, origin.ID, originLines); err != nil {
		return fmt.Errorf("save origin lines: %w", err)
	}

	if doc.Amount.IsPositive() {
		if doc.PaymentMethod == domain.PaymentCash {
			return s.vault.Deposit(ctx, doc.Amount, doc.GetDocumentType(), doc.ID, "cancel return "+doc.Number)
		}
		// The origin sale already passed its credit check; restoring the
		// debt must not fail on the limit.
		return s.customers.RestoreDebt(ctx, *doc.CustomerID, doc.Amount)
	}
	return nil
}

func originLinesByID(lines []sale_invoice.SaleLine) map[id.ID]*sale_invoice.SaleLine {
	byID := make(map[id.ID]*sale_invoice.SaleLine, len(lines))
	for i := range lines {
		byID[lines[i].LineID] = &lines[i]
	}
	return byID
}
