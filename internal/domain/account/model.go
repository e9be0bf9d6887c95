// Package account provides the money ledger: the cash vault account and
// its income/expense transaction log.
package account

import (
	"context"
	"time"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/entity"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
)

// VaultCode is the code of the singleton cash vault account.
const VaultCode = "VAULT"

// Account represents a money account. In practice there is a single vault
// row; the type stays generic so the schema can grow more accounts.
type Account struct {
	entity.BaseEntity

	// Code identifies the account (unique)
	Code string `db:"code" json:"code"`

	// Name is the display name
	Name string `db:"name" json:"name"`

	// Balance in minor units
	Balance types.MinorUnits `db:"balance" json:"balance"`
}

// TransactionType classifies a money transaction.
type TransactionType string

const (
	TxIncome  TransactionType = "income"
	TxExpense TransactionType = "expense"
)

// Transaction is a single immutable row in the money transaction log.
type Transaction struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	// AccountID is the account this transaction affects
	AccountID id.ID `db:"account_id" json:"accountId"`

	// Type classifies the transaction
	Type TransactionType `db:"tx_type" json:"txType"`

	// Amount is always positive; direction comes from Type
	Amount types.MinorUnits `db:"amount" json:"amount"`

	// ReferenceType is the document type that caused this transaction
	ReferenceType string `db:"reference_type" json:"referenceType"`

	// ReferenceID is the causing document
	ReferenceID id.ID `db:"reference_id" json:"referenceId"`

	// Description is free-form context
	Description string `db:"description" json:"description,omitempty"`

	// CreatedBy is the user who triggered the transaction
	CreatedBy string `db:"created_by" json:"createdBy,omitempty"`

	// CreatedAt is when the transaction was recorded
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewTransaction creates a transaction row with generated ID.
func NewTransaction(accountID id.ID, txType TransactionType, amount types.MinorUnits, referenceType string, referenceID id.ID) *Transaction {
	return &Transaction{
		ID:            id.New(),
		AccountID:     accountID,
		Type:          txType,
		Amount:        amount,
		ReferenceType: referenceType,
		ReferenceID:   referenceID,
		CreatedAt:     time.Now().UTC(),
	}
}

// Validate implements entity.Validatable interface.
func (t *Transaction) Validate(ctx context.Context) error {
	if t.Type != TxIncome && t.Type != TxExpense {
		return apperror.NewValidation("invalid transaction type").
			WithDetail("field", "txType").
			WithDetail("value", string(t.Type))
	}
	if !t.Amount.IsPositive() {
		return apperror.NewValidation("amount must be positive").
			WithDetail("field", "amount")
	}
	return nil
}

// SignedAmount returns the balance delta this transaction applies.
func (t *Transaction) SignedAmount() types.MinorUnits {
	if t.Type == TxExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}
