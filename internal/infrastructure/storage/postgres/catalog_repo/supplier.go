package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain/catalogs/supplier"
	"pharmacore/internal/infrastructure/storage/postgres"
)

const supplierTable = "cat_suppliers"

// SupplierRepo implements supplier.Repository.
type SupplierRepo struct {
	*BaseCatalogRepo[*supplier.Supplier]
}

// NewSupplierRepo creates a new supplier repository.
func NewSupplierRepo() *SupplierRepo {
	return &SupplierRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[*supplier.Supplier](
			supplierTable,
			postgres.ExtractDBColumns[supplier.Supplier](),
			func() *supplier.Supplier { return &supplier.Supplier{} },
		),
	}
}

// AdjustBalance atomically shifts the supplier balance by delta.
// The caller is expected to hold the row lock (GetForUpdate).
func (r *SupplierRepo) AdjustBalance(ctx context.Context, supplierID id.ID, delta types.MinorUnits) error {
	q := r.Builder().
		Update(supplierTable).
		Set("balance", squirrel.Expr("balance + ?", delta)).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": supplierID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build adjust balance: %w", err)
	}

	result, err := r.getTxManager(ctx).GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("adjust supplier balance: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("supplier", supplierID.String())
	}
	return nil
}
