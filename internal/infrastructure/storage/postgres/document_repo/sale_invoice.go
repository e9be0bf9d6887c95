package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"pharmacore/internal/core/entity"
	"pharmacore/internal/core/id"
	"pharmacore/internal/domain"
	"pharmacore/internal/domain/documents/sale_invoice"
	"pharmacore/internal/infrastructure/storage/postgres"
)

const (
	saleInvoicesTable     = "doc_sale_invoices"
	saleInvoiceLinesTable = "doc_sale_invoice_lines"
)

// SaleInvoiceRepo implements sale_invoice.Repository.
type SaleInvoiceRepo struct {
	*BaseDocumentRepo[*sale_invoice.SaleInvoice]
}

// NewSaleInvoiceRepo creates a new sale invoice repository.
func NewSaleInvoiceRepo() *SaleInvoiceRepo {
	return &SaleInvoiceRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[*sale_invoice.SaleInvoice](
			saleInvoicesTable,
			postgres.ExtractDBColumns[sale_invoice.SaleInvoice](),
			func() *sale_invoice.SaleInvoice { return &sale_invoice.SaleInvoice{} },
		),
	}
}

func (r *SaleInvoiceRepo) GetLines(ctx context.Context, docID id.ID) ([]sale_invoice.SaleLine, error) {
	q := r.Builder().
		Select(
			"line_id", "line_no", "medicine_id", "batch_id",
			"quantity", "unit_price", "unit_cost", "amount", "remaining_qty_to_return",
		).
		From(saleInvoiceLinesTable).
		Where(squirrel.Eq{"document_id": docID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []sale_invoice.SaleLine
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}

	return lines, nil
}

func (r *SaleInvoiceRepo) SaveLines(ctx context.Context, docID id.ID, lines []sale_invoice.SaleLine) error {
	querier := r.getTxManager(ctx).GetQuerier(ctx)

	deleteSQL := "DELETE FROM " + saleInvoiceLinesTable + " WHERE document_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, docID); err != nil {
		return fmt.Errorf("delete existing lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(saleInvoiceLinesTable).
		Columns(
			"line_id", "document_id", "line_no", "medicine_id", "batch_id",
			"quantity", "unit_price", "unit_cost", "amount", "remaining_qty_to_return",
		)

	for _, line := range lines {
		q = q.Values(
			line.LineID, docID, line.LineNo, line.MedicineID, line.BatchID,
			line.Quantity, line.UnitPrice, line.UnitCost, line.Amount, line.RemainingQtyToReturn,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}

	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}

	return nil
}

func (r *SaleInvoiceRepo) List(ctx context.Context, filter sale_invoice.ListFilter) (domain.ListResult[*sale_invoice.SaleInvoice], error) {
	result := domain.ListResult[*sale_invoice.SaleInvoice]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect(ctx)

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}

	if filter.CustomerID != nil {
		q = q.Where(squirrel.Eq{"customer_id": *filter.CustomerID})
	}

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}

	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.DateFrom})
	}

	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.DateTo})
	}

	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"number": searchPattern},
			squirrel.ILike{"customer_name": searchPattern},
		})
	}

	countQ := r.Builder().Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	orderBy := "date DESC"
	if filter.OrderBy != "" {
		orderBy = filter.OrderBy
	}
	q = q.OrderBy(orderBy)

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("select: %w", err)
	}

	return result, nil
}

// HasDependentReturns reports whether any non-cancelled sales return
// references the invoice.
func (r *SaleInvoiceRepo) HasDependentReturns(ctx context.Context, invoiceID id.ID) (bool, error) {
	q := r.Builder().
		Select("1").
		From(salesReturnsTable).
		Where(squirrel.Eq{"origin_invoice_id": invoiceID}).
		Where(squirrel.NotEq{"status": entity.StatusCancelled}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	var one int
	err = querier.QueryRow(ctx, sql, args...).Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check dependent returns: %w", err)
	}
	return true, nil
}
