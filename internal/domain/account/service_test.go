package account

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/entity"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
)

// memAccountRepo is an in-memory vault with an append-only log.
type memAccountRepo struct {
	vault Account
	log   []Transaction
}

func newMemAccountRepo(balance types.MinorUnits) *memAccountRepo {
	return &memAccountRepo{
		vault: Account{
			BaseEntity: entity.NewBaseEntity(),
			Code:       VaultCode,
			Name:       "Cash Vault",
			Balance:    balance,
		},
	}
}

func (r *memAccountRepo) GetVault(ctx context.Context) (*Account, error) {
	v := r.vault
	return &v, nil
}

func (r *memAccountRepo) GetVaultForUpdate(ctx context.Context) (*Account, error) {
	return r.GetVault(ctx)
}

func (r *memAccountRepo) AdjustBalance(ctx context.Context, accountID id.ID, delta types.MinorUnits) error {
	r.vault.Balance += delta
	return nil
}

func (r *memAccountRepo) CreateTransaction(ctx context.Context, tx *Transaction) error {
	r.log = append(r.log, *tx)
	return nil
}

func (r *memAccountRepo) ListTransactions(ctx context.Context, accountID id.ID, filter TransactionFilter) ([]Transaction, error) {
	return r.log, nil
}

func TestDeposit(t *testing.T) {
	repo := newMemAccountRepo(0)
	svc := NewService(repo)
	ctx := context.Background()

	err := svc.Deposit(ctx, 5000, "SaleInvoice", id.New(), "cash sale SI-1")
	require.NoError(t, err)

	balance, err := svc.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.MinorUnits(5000), balance)

	require.Len(t, repo.log, 1)
	assert.Equal(t, TxIncome, repo.log[0].Type)
	assert.Equal(t, types.MinorUnits(5000), repo.log[0].Amount)
	assert.Equal(t, "SaleInvoice", repo.log[0].ReferenceType)
}

func TestDeposit_RejectsNonPositiveAmount(t *testing.T) {
	svc := NewService(newMemAccountRepo(0))

	err := svc.Deposit(context.Background(), 0, "SaleInvoice", id.New(), "")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	err = svc.Deposit(context.Background(), types.MinorUnits(-100), "SaleInvoice", id.New(), "")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestWithdraw(t *testing.T) {
	repo := newMemAccountRepo(10000)
	svc := NewService(repo)
	ctx := context.Background()

	err := svc.Withdraw(ctx, 4000, "PurchaseInvoice", id.New(), "cash purchase PI-1")
	require.NoError(t, err)

	balance, err := svc.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.MinorUnits(6000), balance)

	require.Len(t, repo.log, 1)
	assert.Equal(t, TxExpense, repo.log[0].Type)
	assert.Equal(t, types.MinorUnits(-4000), repo.log[0].SignedAmount())
}

func TestWithdraw_InsufficientFunds(t *testing.T) {
	repo := newMemAccountRepo(1000)
	svc := NewService(repo)

	err := svc.Withdraw(context.Background(), 5000, "PurchaseInvoice", id.New(), "")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientFunds))

	// Balance untouched, nothing logged.
	balance, err := svc.Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.MinorUnits(1000), balance)
	assert.Empty(t, repo.log)
}

func TestWithdraw_ExactBalanceAllowed(t *testing.T) {
	repo := newMemAccountRepo(1000)
	svc := NewService(repo)

	err := svc.Withdraw(context.Background(), 1000, "PurchaseInvoice", id.New(), "")
	require.NoError(t, err)

	balance, err := svc.Balance(context.Background())
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestTransactionValidate(t *testing.T) {
	ctx := context.Background()

	tx := NewTransaction(id.New(), TxIncome, 100, "SaleInvoice", id.New())
	assert.NoError(t, tx.Validate(ctx))

	tx.Type = "transfer"
	assert.True(t, apperror.HasCode(tx.Validate(ctx), apperror.CodeValidation))

	tx = NewTransaction(id.New(), TxExpense, 0, "SaleInvoice", id.New())
	assert.True(t, apperror.HasCode(tx.Validate(ctx), apperror.CodeValidation))
}
