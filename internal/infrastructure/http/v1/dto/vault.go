package dto

import (
	"time"

	"pharmacore/internal/core/types"
	"pharmacore/internal/domain/account"
)

// --- Request DTOs ---

// VaultOperationRequest deposits to or withdraws from the vault outside
// of document flow (owner drawings, cash injections).
type VaultOperationRequest struct {
	Amount      types.MinorUnits `json:"amount" binding:"required,gt=0"`
	Description string           `json:"description,omitempty"`
}

// --- Response DTOs ---

type VaultBalanceResponse struct {
	Balance types.MinorUnits `json:"balance"`
}

type TransactionResponse struct {
	ID            string           `json:"id"`
	AccountID     string           `json:"accountId"`
	Type          string           `json:"txType"`
	Amount        types.MinorUnits `json:"amount"`
	ReferenceType string           `json:"referenceType"`
	ReferenceID   string           `json:"referenceId"`
	Description   string           `json:"description,omitempty"`
	CreatedBy     string           `json:"createdBy,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
}

func FromTransaction(tx account.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:            tx.ID.String(),
		AccountID:     tx.AccountID.String(),
		Type:          string(tx.Type),
		Amount:        tx.Amount,
		ReferenceType: tx.ReferenceType,
		ReferenceID:   tx.ReferenceID.String(),
		Description:   tx.Description,
		CreatedBy:     tx.CreatedBy,
		CreatedAt:     tx.CreatedAt,
	}
}

func FromTransactions(items []account.Transaction) []TransactionResponse {
	resp := make([]TransactionResponse, len(items))
	for i, tx := range items {
		resp[i] = FromTransaction(tx)
	}
	return resp
}
