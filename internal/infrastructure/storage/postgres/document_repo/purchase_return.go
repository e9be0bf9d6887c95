package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmacore/internal/core/id"
	"pharmacore/internal/domain"
	"pharmacore/internal/domain/documents/purchase_return"
	"pharmacore/internal/infrastructure/storage/postgres"
)

const (
	purchaseReturnsTable     = "doc_purchase_returns"
	purchaseReturnLinesTable = "doc_purchase_return_lines"
)

// PurchaseReturnRepo implements purchase_return.Repository.
type PurchaseReturnRepo struct {
	*BaseDocumentRepo[*purchase_return.PurchaseReturn]
}

// NewPurchaseReturnRepo creates a new purchase return repository.
func NewPurchaseReturnRepo() *PurchaseReturnRepo {
	return &PurchaseReturnRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[*purchase_return.PurchaseReturn](
			purchaseReturnsTable,
			postgres.ExtractDBColumns[purchase_return.PurchaseReturn](),
			func() *purchase_return.PurchaseReturn { return &purchase_return.PurchaseReturn{} },
		),
	}
}

func (r *PurchaseReturnRepo) GetLines(ctx context.Context, docID id.ID) ([]purchase_return.ReturnLine, error) {
	q := r.Builder().
		Select(
			"line_id", "line_no", "medicine_id", "batch_id",
			"quantity", "unit_purchase_price", "amount",
		).
		From(purchaseReturnLinesTable).
		Where(squirrel.Eq{"document_id": docID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []purchase_return.ReturnLine
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}

	return lines, nil
}

func (r *PurchaseReturnRepo) SaveLines(ctx context.Context, docID id.ID, lines []purchase_return.ReturnLine) error {
	querier := r.getTxManager(ctx).GetQuerier(ctx)

	deleteSQL := "DELETE FROM " + purchaseReturnLinesTable + " WHERE document_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, docID); err != nil {
		return fmt.Errorf("delete existing lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(purchaseReturnLinesTable).
		Columns(
			"line_id", "document_id", "line_no", "medicine_id", "batch_id",
			"quantity", "unit_purchase_price", "amount",
		)

	for _, line := range lines {
		q = q.Values(
			line.LineID, docID, line.LineNo, line.MedicineID, line.BatchID,
			line.Quantity, line.UnitPurchasePrice, line.Amount,
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

func (r *PurchaseReturnRepo) List(ctx context.Context, filter purchase_return.ListFilter) (domain.ListResult[*purchase_return.PurchaseReturn], error) {
	result := domain.ListResult[*purchase_return.PurchaseReturn]{
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

	if filter.SupplierID != nil {
		q = q.Where(squirrel.Eq{"supplier_id": *filter.SupplierID})
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
