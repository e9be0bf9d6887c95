// Package batch_repo provides the PostgreSQL implementation of the batch
// inventory repository.
package batch_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain/batches"
	"pharmacore/internal/infrastructure/storage/postgres"
)

const batchesTable = "batches"

// BatchRepo implements batches.Repository.
type BatchRepo struct {
	builder    squirrel.StatementBuilderType
	selectCols []string
}

// NewBatchRepo creates a new batch repository.
func NewBatchRepo() *BatchRepo {
	return &BatchRepo{
		builder:    squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		selectCols: postgres.ExtractDBColumns[batches.Batch](),
	}
}

// getTxManager retrieves TxManager from context.
func (r *BatchRepo) getTxManager(ctx context.Context) *postgres.TxManager {
	return postgres.MustGetTxManager(ctx)
}

func (r *BatchRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder.Select(r.selectCols...).From(batchesTable)
}

// Create inserts a new batch.
func (r *BatchRepo) Create(ctx context.Context, batch *batches.Batch) error {
	data := postgres.StructToMap(batch)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in entity")
	}

	filteredData := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if val, ok := data[col]; ok {
			filteredData[col] = val
		}
	}

	q := r.builder.Insert(batchesTable).SetMap(filteredData)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	return nil
}

// GetByID retrieves a batch.
func (r *BatchRepo) GetByID(ctx context.Context, batchID id.ID) (*batches.Batch, error) {
	return r.get(ctx, batchID, "")
}

// GetForUpdate retrieves a batch with row lock.
func (r *BatchRepo) GetForUpdate(ctx context.Context, batchID id.ID) (*batches.Batch, error) {
	return r.get(ctx, batchID, "FOR UPDATE")
}

func (r *BatchRepo) get(ctx context.Context, batchID id.ID, suffix string) (*batches.Batch, error) {
	q := r.baseSelect().Where(squirrel.Eq{"id": batchID})
	if suffix != "" {
		q = q.Suffix(suffix)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	batch := &batches.Batch{}
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, batch, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("batch", batchID.String())
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}

	return batch, nil
}

// Update persists batch changes with optimistic locking.
func (r *BatchRepo) Update(ctx context.Context, batch *batches.Batch) error {
	data := postgres.StructToMap(batch)

	version, ok := data["version"].(int)
	if !ok {
		return fmt.Errorf("batch has no 'version' field or it is not an int")
	}

	filteredData := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if col == "id" || col == "version" || col == "created_at" || col == "created_by" {
			continue
		}
		if val, ok := data[col]; ok {
			filteredData[col] = val
		}
	}

	q := r.builder.Update(batchesTable).
		SetMap(filteredData).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": batch.ID}).
		Where(squirrel.Eq{"version": version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("batch", batch.ID)
	}

	return nil
}

// ListByMedicine returns all batches of a medicine, FEFO-ordered.
func (r *BatchRepo) ListByMedicine(ctx context.Context, medicineID id.ID) ([]*batches.Batch, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"medicine_id": medicineID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("expiry_date ASC", "id ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*batches.Batch
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}

	return items, nil
}

// ListSellableForUpdate returns sellable batches of a medicine in FEFO
// order, locked for allocation. The FEFO order (expiry_date, id) is also
// the lock acquisition order, which keeps concurrent allocations of the
// same medicine deadlock-free.
func (r *BatchRepo) ListSellableForUpdate(ctx context.Context, medicineID id.ID, asOf time.Time) ([]*batches.Batch, error) {
	minExpiry := sellableCutoff(asOf)

	q := r.baseSelect().
		Where(squirrel.Eq{"medicine_id": medicineID}).
		Where(squirrel.Eq{"status": batches.StatusActive}).
		Where(squirrel.Gt{"remaining_quantity": 0}).
		Where(squirrel.GtOrEq{"expiry_date": minExpiry}).
		OrderBy("expiry_date ASC", "id ASC").
		Suffix("FOR UPDATE")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*batches.Batch
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list sellable batches: %w", err)
	}

	return items, nil
}

// sellableCutoff is the earliest expiry date the sellable query accepts.
// asOf is truncated to the day so the SQL predicate matches
// Batch.IsSellable, which counts whole days: a batch expiring exactly
// SellableMinDays from today stays sellable regardless of time of day.
func sellableCutoff(asOf time.Time) time.Time {
	y, m, d := asOf.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, batches.SellableMinDays)
}

// TotalRemainingByMedicine sums remaining quantity across batches.
func (r *BatchRepo) TotalRemainingByMedicine(ctx context.Context, medicineIDs []id.ID) (map[id.ID]types.Quantity, error) {
	totals := make(map[id.ID]types.Quantity, len(medicineIDs))
	if len(medicineIDs) == 0 {
		return totals, nil
	}

	q := r.builder.Select("medicine_id", "COALESCE(SUM(remaining_quantity), 0)").
		From(batchesTable).
		Where(squirrel.Eq{"medicine_id": medicineIDs}).
		Where(squirrel.Eq{"status": batches.StatusActive}).
		Where(squirrel.Eq{"deletion_mark": false}).
		GroupBy("medicine_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	rows, err := querier.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("total remaining: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var medicineID id.ID
		var totalScaled int64
		if err := rows.Scan(&medicineID, &totalScaled); err != nil {
			return nil, fmt.Errorf("scan total: %w", err)
		}
		totals[medicineID] = types.NewQuantityFromInt64Scaled(totalScaled)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate totals: %w", err)
	}

	return totals, nil
}

// ListExpiredActive returns active batches whose expiry is before asOf.
func (r *BatchRepo) ListExpiredActive(ctx context.Context, asOf time.Time) ([]*batches.Batch, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"status": batches.StatusActive}).
		Where(squirrel.Lt{"expiry_date": asOf}).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("expiry_date ASC", "id ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*batches.Batch
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list expired batches: %w", err)
	}

	return items, nil
}

// Ensure interface compliance.
var _ batches.Repository = (*BatchRepo)(nil)
