package account

import (
	"context"
	"time"

	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
)

// Repository defines operations for accounts and the transaction log.
// Transactions are append-only.
type Repository interface {
	// GetVault retrieves the vault account without locking (balance reads)
	GetVault(ctx context.Context) (*Account, error)

	// GetVaultForUpdate retrieves the vault account with row lock.
	// Every balance mutation must go through this lock.
	GetVaultForUpdate(ctx context.Context) (*Account, error)

	// AdjustBalance applies a signed delta to the account balance.
	// Caller must hold the row lock via GetVaultForUpdate.
	AdjustBalance(ctx context.Context, accountID id.ID, delta types.MinorUnits) error

	// CreateTransaction appends a transaction row
	CreateTransaction(ctx context.Context, tx *Transaction) error

	// ListTransactions returns the transaction log for an account
	ListTransactions(ctx context.Context, accountID id.ID, filter TransactionFilter) ([]Transaction, error)
}

// TransactionFilter for filtering the transaction log.
type TransactionFilter struct {
	Type     *TransactionType
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}
