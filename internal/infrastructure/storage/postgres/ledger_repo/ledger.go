// Package ledger_repo provides the PostgreSQL implementation of the
// append-only stock movement ledger.
package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"pharmacore/internal/core/entity"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain/ledger"
	"pharmacore/internal/infrastructure/storage/postgres"
)

const movementsTable = "ledger_movements"

var movementColumns = []string{
	"line_id", "medicine_id", "batch_id", "movement_type", "quantity",
	"reference_type", "reference_id", "reversal_of",
	"created_by", "notes", "created_at",
}

// LedgerRepo implements ledger.Repository.
// The table is append-only: no UPDATE or DELETE is ever issued here.
type LedgerRepo struct {
	builder squirrel.StatementBuilderType
}

// NewLedgerRepo creates a new ledger repository.
func NewLedgerRepo() *LedgerRepo {
	return &LedgerRepo{
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// getTxManager retrieves TxManager from context.
func (r *LedgerRepo) getTxManager(ctx context.Context) *postgres.TxManager {
	return postgres.MustGetTxManager(ctx)
}

// CreateMovements batch inserts movements.
func (r *LedgerRepo) CreateMovements(ctx context.Context, movements []entity.Movement) error {
	if len(movements) == 0 {
		return nil
	}

	// Fast path: COPY when inside a transaction.
	txm := r.getTxManager(ctx)
	if tx := txm.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(txm)
		rows := make([][]any, 0, len(movements))
		for _, m := range movements {
			rows = append(rows, []any{
				m.LineID, m.MedicineID, m.BatchID, m.Type, m.Quantity,
				m.ReferenceType, m.ReferenceID, m.ReversalOf,
				m.CreatedBy, m.Notes, m.CreatedAt,
			})
		}
		if _, err := inserter.CopyFromSlice(ctx, movementsTable, movementColumns, rows); err != nil {
			return fmt.Errorf("copy movements: %w", err)
		}
		return nil
	}

	// Fallback: non-transactional insert (slower). Prefer calling CreateMovements within tx.
	q := r.builder.Insert(movementsTable).Columns(movementColumns...)
	for _, m := range movements {
		q = q.Values(
			m.LineID, m.MedicineID, m.BatchID, m.Type, m.Quantity,
			m.ReferenceType, m.ReferenceID, m.ReversalOf,
			m.CreatedBy, m.Notes, m.CreatedAt,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movements: %w", err)
	}

	return nil
}

// GetByDocument retrieves all movements recorded by a document.
func (r *LedgerRepo) GetByDocument(ctx context.Context, referenceID id.ID) ([]entity.Movement, error) {
	q := r.builder.Select(movementColumns...).
		From(movementsTable).
		Where(squirrel.Eq{"reference_id": referenceID}).
		OrderBy("created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []entity.Movement
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}

	return movements, nil
}

// ListUnreversed retrieves movements of a document that no later movement
// compensates via reversal_of.
func (r *LedgerRepo) ListUnreversed(ctx context.Context, referenceID id.ID) ([]entity.Movement, error) {
	sql := fmt.Sprintf(`
		SELECT %s
		FROM %s m
		WHERE m.reference_id = $1
		  AND m.reversal_of IS NULL
		  AND NOT EXISTS (
			SELECT 1 FROM %s rev WHERE rev.reversal_of = m.line_id
		  )
		ORDER BY m.created_at
	`, prefixedColumns("m"), movementsTable, movementsTable)

	var movements []entity.Movement
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, referenceID); err != nil {
		return nil, fmt.Errorf("select unreversed: %w", err)
	}

	return movements, nil
}

// CurrentBalance sums signed quantities for a medicine, optionally
// narrowed to one batch.
func (r *LedgerRepo) CurrentBalance(ctx context.Context, medicineID id.ID, batchID *id.ID) (types.Quantity, error) {
	q := r.builder.Select("COALESCE(SUM(quantity), 0)").
		From(movementsTable).
		Where(squirrel.Eq{"medicine_id": medicineID})

	if batchID != nil {
		q = q.Where(squirrel.Eq{"batch_id": *batchID})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var balanceScaled int64
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	err = querier.QueryRow(ctx, sql, args...).Scan(&balanceScaled)
	if err != nil && err != pgx.ErrNoRows {
		return 0, fmt.Errorf("current balance: %w", err)
	}

	return types.NewQuantityFromInt64Scaled(balanceScaled), nil
}

// GetMovementHistory returns movement history for a medicine.
func (r *LedgerRepo) GetMovementHistory(ctx context.Context, medicineID id.ID, filter ledger.MovementFilter) ([]entity.Movement, error) {
	q := r.builder.Select(movementColumns...).
		From(movementsTable).
		Where(squirrel.Eq{"medicine_id": medicineID})

	if filter.BatchID != nil {
		q = q.Where(squirrel.Eq{"batch_id": *filter.BatchID})
	}

	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"movement_type": *filter.Type})
	}

	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}

	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.ToDate})
	}

	q = q.OrderBy("created_at DESC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []entity.Movement
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}

	return movements, nil
}

func prefixedColumns(alias string) string {
	out := ""
	for i, col := range movementColumns {
		if i > 0 {
			out += ", "
		}
		out += alias + "." + col
	}
	return out
}

// Ensure interface compliance.
var _ ledger.Repository = (*LedgerRepo)(nil)
