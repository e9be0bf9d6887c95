package account

import (
	"context"
	"fmt"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/security"
	"pharmacore/internal/core/types"
	"pharmacore/pkg/logger"
)

// Service provides business operations for the vault account.
// Transactions are managed by the caller (the workflow engine).
type Service struct {
	repo Repository
}

// NewService creates a new account service.
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
	}
}

// Deposit adds money to the vault and logs an income transaction.
// Must be called inside a transaction.
func (s *Service) Deposit(ctx context.Context, amount types.MinorUnits, referenceType string, referenceID id.ID, description string) error {
	if !amount.IsPositive() {
		return apperror.NewValidation("deposit amount must be positive").
			WithDetail("amount", amount)
	}

	vault, err := s.repo.GetVaultForUpdate(ctx)
	if err != nil {
		return fmt.Errorf("lock vault: %w", err)
	}

	if err := s.repo.AdjustBalance(ctx, vault.ID, amount); err != nil {
		return fmt.Errorf("adjust vault balance: %w", err)
	}

	tx := NewTransaction(vault.ID, TxIncome, amount, referenceType, referenceID)
	tx.Description = description
	tx.CreatedBy = security.GetUserID(ctx)
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return fmt.Errorf("log income transaction: %w", err)
	}

	logger.Info(ctx, "vault deposit",
		"amount", amount,
		"reference_id", referenceID,
	)
	return nil
}

// Withdraw removes money from the vault and logs an expense transaction.
// Fails with InsufficientFunds if the balance cannot cover the amount.
// Must be called inside a transaction.
func (s *Service) Withdraw(ctx context.Context, amount types.MinorUnits, referenceType string, referenceID id.ID, description string) error {
	if !amount.IsPositive() {
		return apperror.NewValidation("withdrawal amount must be positive").
			WithDetail("amount", amount)
	}

	vault, err := s.repo.GetVaultForUpdate(ctx)
	if err != nil {
		return fmt.Errorf("lock vault: %w", err)
	}

	if vault.Balance < amount {
		return apperror.NewInsufficientFunds(amount, vault.Balance)
	}

	if err := s.repo.AdjustBalance(ctx, vault.ID, amount.Neg()); err != nil {
		return fmt.Errorf("adjust vault balance: %w", err)
	}

	tx := NewTransaction(vault.ID, TxExpense, amount, referenceType, referenceID)
	tx.Description = description
	tx.CreatedBy = security.GetUserID(ctx)
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return fmt.Errorf("log expense transaction: %w", err)
	}

	logger.Info(ctx, "vault withdrawal",
		"amount", amount,
		"reference_id", referenceID,
	)
	return nil
}

// Balance returns the current vault balance.
func (s *Service) Balance(ctx context.Context) (types.MinorUnits, error) {
	vault, err := s.repo.GetVault(ctx)
	if err != nil {
		return 0, err
	}
	return vault.Balance, nil
}

// ListTransactions returns the vault transaction log.
func (s *Service) ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error) {
	vault, err := s.repo.GetVault(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListTransactions(ctx, vault.ID, filter)
}
