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
	"pharmacore/internal/domain/documents/purchase_invoice"
	"pharmacore/internal/infrastructure/storage/postgres"
)

const (
	purchaseInvoicesTable     = "doc_purchase_invoices"
	purchaseInvoiceLinesTable = "doc_purchase_invoice_lines"
)

// PurchaseInvoiceRepo implements purchase_invoice.Repository.
type PurchaseInvoiceRepo struct {
	*BaseDocumentRepo[*purchase_invoice.PurchaseInvoice]
}

// NewPurchaseInvoiceRepo creates a new purchase invoice repository.
func NewPurchaseInvoiceRepo() *PurchaseInvoiceRepo {
	return &PurchaseInvoiceRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[*purchase_invoice.PurchaseInvoice](
			purchaseInvoicesTable,
			postgres.ExtractDBColumns[purchase_invoice.PurchaseInvoice](),
			func() *purchase_invoice.PurchaseInvoice { return &purchase_invoice.PurchaseInvoice{} },
		),
	}
}

func (r *PurchaseInvoiceRepo) GetLines(ctx context.Context, docID id.ID) ([]purchase_invoice.PurchaseLine, error) {
	q := r.Builder().
		Select(
			"line_id", "line_no", "medicine_id", "batch_id", "barcode",
			"quantity", "unit_purchase_price", "unit_sale_price", "expiry_date", "amount",
		).
		From(purchaseInvoiceLinesTable).
		Where(squirrel.Eq{"document_id": docID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []purchase_invoice.PurchaseLine
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}

	return lines, nil
}

func (r *PurchaseInvoiceRepo) SaveLines(ctx context.Context, docID id.ID, lines []purchase_invoice.PurchaseLine) error {
	querier := r.getTxManager(ctx).GetQuerier(ctx)

	deleteSQL := "DELETE FROM " + purchaseInvoiceLinesTable + " WHERE document_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, docID); err != nil {
		return fmt.Errorf("delete existing lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(purchaseInvoiceLinesTable).
		Columns(
			"line_id", "document_id", "line_no", "medicine_id", "batch_id", "barcode",
			"quantity", "unit_purchase_price", "unit_sale_price", "expiry_date", "amount",
		)

	for _, line := range lines {
		q = q.Values(
			line.LineID, docID, line.LineNo, line.MedicineID, line.BatchID, line.Barcode,
			line.Quantity, line.UnitPurchasePrice, line.UnitSalePrice, line.ExpiryDate, line.Amount,
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

func (r *PurchaseInvoiceRepo) List(ctx context.Context, filter purchase_invoice.ListFilter) (domain.ListResult[*purchase_invoice.PurchaseInvoice], error) {
	result := domain.ListResult[*purchase_invoice.PurchaseInvoice]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect(ctx)

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
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

// HasDependentReturns reports whether any non-cancelled purchase return
// references the invoice.
func (r *PurchaseInvoiceRepo) HasDependentReturns(ctx context.Context, invoiceID id.ID) (bool, error) {
	q := r.Builder().
		Select("1").
		From(purchaseReturnsTable).
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
