package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain/catalogs/customer"
	"pharmacore/internal/infrastructure/storage/postgres"
)

const customerTable = "cat_customers"

// CustomerRepo implements customer.Repository.
type CustomerRepo struct {
	*BaseCatalogRepo[*customer.Customer]
}

// NewCustomerRepo creates a new customer repository.
func NewCustomerRepo() *CustomerRepo {
	return &CustomerRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[*customer.Customer](
			customerTable,
			postgres.ExtractDBColumns[customer.Customer](),
			func() *customer.Customer { return &customer.Customer{} },
		),
	}
}

// AdjustBalance atomically shifts the customer balance by delta.
// The caller is expected to hold the row lock (GetForUpdate).
func (r *CustomerRepo) AdjustBalance(ctx context.Context, customerID id.ID, delta types.MinorUnits) error {
	q := r.Builder().
		Update(customerTable).
		Set("balance", squirrel.Expr("balance + ?", delta)).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": customerID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build adjust balance: %w", err)
	}

	result, err := r.getTxManager(ctx).GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("adjust customer balance: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("customer", customerID.String())
	}
	return nil
}
