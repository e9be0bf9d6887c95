// Package account_repo provides the PostgreSQL implementation of the
// money account repository.
package account_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain/account"
	"pharmacore/internal/infrastructure/storage/postgres"
)

const (
	accountsTable     = "acc_accounts"
	transactionsTable = "acc_transactions"
)

// AccountRepo implements account.Repository.
// The transaction log is append-only.
type AccountRepo struct {
	builder squirrel.StatementBuilderType
}

// NewAccountRepo creates a new account repository.
func NewAccountRepo() *AccountRepo {
	return &AccountRepo{
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// getTxManager retrieves TxManager from context.
func (r *AccountRepo) getTxManager(ctx context.Context) *postgres.TxManager {
	return postgres.MustGetTxManager(ctx)
}

// GetVault retrieves the vault account without locking.
func (r *AccountRepo) GetVault(ctx context.Context) (*account.Account, error) {
	return r.getByCode(ctx, account.VaultCode, "")
}

// GetVaultForUpdate retrieves the vault account with row lock.
func (r *AccountRepo) GetVaultForUpdate(ctx context.Context) (*account.Account, error) {
	return r.getByCode(ctx, account.VaultCode, "FOR UPDATE")
}

func (r *AccountRepo) getByCode(ctx context.Context, code string, suffix string) (*account.Account, error) {
	q := r.builder.Select(postgres.ExtractDBColumns[account.Account]()...).
		From(accountsTable).
		Where(squirrel.Eq{"code": code})
	if suffix != "" {
		q = q.Suffix(suffix)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	acc := &account.Account{}
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, acc, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("account", code)
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	return acc, nil
}

// AdjustBalance applies a signed delta to the account balance.
// Caller must hold the row lock via GetVaultForUpdate.
func (r *AccountRepo) AdjustBalance(ctx context.Context, accountID id.ID, delta types.MinorUnits) error {
	q := r.builder.Update(accountsTable).
		Set("balance", squirrel.Expr("balance + ?", delta)).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": accountID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build adjust balance: %w", err)
	}

	result, err := r.getTxManager(ctx).GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("account", accountID.String())
	}
	return nil
}

// CreateTransaction appends a transaction row.
func (r *AccountRepo) CreateTransaction(ctx context.Context, tx *account.Transaction) error {
	q := r.builder.Insert(transactionsTable).
		Columns(
			"id", "account_id", "tx_type", "amount",
			"reference_type", "reference_id", "description",
			"created_by", "created_at",
		).
		Values(
			tx.ID, tx.AccountID, tx.Type, tx.Amount,
			tx.ReferenceType, tx.ReferenceID, tx.Description,
			tx.CreatedBy, tx.CreatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	return nil
}

// ListTransactions returns the transaction log for an account.
func (r *AccountRepo) ListTransactions(ctx context.Context, accountID id.ID, filter account.TransactionFilter) ([]account.Transaction, error) {
	q := r.builder.Select(
		"id", "account_id", "tx_type", "amount",
		"reference_type", "reference_id", "description",
		"created_by", "created_at",
	).From(transactionsTable).
		Where(squirrel.Eq{"account_id": accountID})

	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"tx_type": *filter.Type})
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

	var txs []account.Transaction
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &txs, sql, args...); err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}

	return txs, nil
}

// Ensure interface compliance.
var _ account.Repository = (*AccountRepo)(nil)
