package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmacore/internal/core/id"
	"pharmacore/internal/domain"
	"pharmacore/internal/domain/documents/sales_return"
	"pharmacore/internal/infrastructure/storage/postgres"
)

const (
	salesReturnsTable     = "doc_sales_returns"
	salesReturnLinesTable = "doc_sales_return_lines"
)

// SalesReturnRepo implements sales_return.Repository.
type SalesReturnRepo struct {
	*BaseDocumentRepo[*sales_return.SalesReturn]
}

// NewSalesReturnRepo creates a new sales return repository.
func NewSalesReturnRepo() *SalesReturnRepo {
	return &SalesReturnRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[*sales_return.SalesReturn](
			salesReturnsTable,
			postgres.ExtractDBColumns[sales_return.SalesReturn](),
			func() *sales_return.SalesReturn { return &sales_return.SalesReturn{} },
		),
	}
}

func (r *SalesReturnRepo) GetLines(ctx context.Context, docID id.ID) ([]sales_return.ReturnLine, error) {
	q := r.Builder().
		Select(
			"line_id", "line_no", "origin_line_id", "medicine_id", "batch_id",
			"quantity", "unit_price", "unit_cost", "amount",
		).
		From(salesReturnLinesTable).
		Where(squirrel.Eq{"document_id": docID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []sales_return.ReturnLine
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}

	return lines, nil
}

func (r *SalesReturnRepo) SaveLines(ctx context.Context, docID id.ID, lines []sales_return.ReturnLine) error {
	querier := r.getTxManager(ctx).GetQuerier(ctx)

	deleteSQL := "DELETE FROM " + salesReturnLinesTable + " WHERE document_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, docID); err != nil {
		return fmt.Errorf("delete existing lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(salesReturnLinesTable).
		Columns(
			"line_id", "document_id", "line_no", "origin_line_id", "medicine_id", "batch_id",
			"quantity", "unit_price", "unit_cost", "amount",
		)

	for _, line := range lines {
		q = q.Values(
			line.LineID, docID, line.LineNo, line.OriginLineID, line.MedicineID, line.BatchID,
			line.Quantity, line.UnitPrice, line.UnitCost, line.Amount,
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

func (r *SalesReturnRepo) List(ctx context.Context, filter sales_return.ListFilter) (domain.ListResult[*sales_return.SalesReturn], error) {
	result := domain.ListResult[*sales_return.SalesReturn]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect(ctx)

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}

	if filter.OriginInvoiceID != nil {
		q = q.Where(squirrel.Eq{"origin_invoice_id": *filter.OriginInvoiceID})
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
		q = q.Where(squirrel.ILike{"number": "%" + filter.Search + "%"})
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
