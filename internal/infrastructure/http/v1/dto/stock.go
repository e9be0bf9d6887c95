package dto

import (
	"time"

	"pharmacore/internal/core/entity"
	"pharmacore/internal/core/types"
)

// --- Response DTOs for the Stock Ledger ---

// StockBalanceResponse is the ledger balance of one medicine, optionally
// narrowed to a single batch.
type StockBalanceResponse struct {
	MedicineID string         `json:"medicineId"`
	BatchID    *string        `json:"batchId,omitempty"`
	Balance    types.Quantity `json:"balance"`
}

// MovementResponse is one stock ledger line.
type MovementResponse struct {
	LineID        string         `json:"lineId"`
	MedicineID    string         `json:"medicineId"`
	BatchID       *string        `json:"batchId,omitempty"`
	MovementType  string         `json:"movementType"`
	Quantity      types.Quantity `json:"quantity"`
	ReferenceType string         `json:"referenceType"`
	ReferenceID   string         `json:"referenceId"`
	ReversalOf    *string        `json:"reversalOf,omitempty"`
	CreatedBy     string         `json:"createdBy,omitempty"`
	Notes         string         `json:"notes,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// FromMovement converts a ledger line to a response DTO.
func FromMovement(m entity.Movement) MovementResponse {
	resp := MovementResponse{
		LineID:        m.LineID.String(),
		MedicineID:    m.MedicineID.String(),
		MovementType:  string(m.Type),
		Quantity:      m.Quantity,
		ReferenceType: m.ReferenceType,
		ReferenceID:   m.ReferenceID.String(),
		CreatedBy:     m.CreatedBy,
		Notes:         m.Notes,
		CreatedAt:     m.CreatedAt,
	}
	if m.BatchID != nil {
		s := m.BatchID.String()
		resp.BatchID = &s
	}
	if m.ReversalOf != nil {
		s := m.ReversalOf.String()
		resp.ReversalOf = &s
	}
	return resp
}

// FromMovements converts a slice of ledger lines.
func FromMovements(items []entity.Movement) []MovementResponse {
	resp := make([]MovementResponse, len(items))
	for i, m := range items {
		resp[i] = FromMovement(m)
	}
	return resp
}

// MovementListResponse represents a list of ledger lines.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
}
