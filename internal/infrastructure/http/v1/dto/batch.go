package dto

import (
	"time"

	"pharmacore/internal/core/types"
	"pharmacore/internal/domain/batches"
)

// --- Request DTOs ---

type ScrapBatchRequest struct {
	Reason string `json:"reason" binding:"required,oneof=damaged quarantined expired"`
	Note   string `json:"note,omitempty"`
}

// --- Response DTOs ---

type BatchResponse struct {
	ID                string           `json:"id"`
	MedicineID        string           `json:"medicineId"`
	Barcode           *string          `json:"barcode,omitempty"`
	Quantity          types.Quantity   `json:"quantity"`
	RemainingQuantity types.Quantity   `json:"remainingQuantity"`
	SoldQuantity      types.Quantity   `json:"soldQuantity"`
	UnitPurchasePrice types.MinorUnits `json:"unitPurchasePrice"`
	UnitSalePrice     types.MinorUnits `json:"unitSalePrice"`
	ExpiryDate        time.Time        `json:"expiryDate"`
	Status            string           `json:"status"`
	DaysToExpiry      int              `json:"daysToExpiry"`
	Sellable          bool             `json:"sellable"`
	Version           int              `json:"version"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

func FromBatch(b *batches.Batch, asOf time.Time) *BatchResponse {
	return &BatchResponse{
		ID:                b.ID.String(),
		MedicineID:        b.MedicineID.String(),
		Barcode:           b.Barcode,
		Quantity:          b.Quantity,
		RemainingQuantity: b.RemainingQuantity,
		SoldQuantity:      b.SoldQuantity,
		UnitPurchasePrice: b.UnitPurchasePrice,
		UnitSalePrice:     b.UnitSalePrice,
		ExpiryDate:        b.ExpiryDate,
		Status:            string(b.Status),
		DaysToExpiry:      b.DaysToExpiry(asOf),
		Sellable:          b.IsSellable(asOf),
		Version:           b.Version,
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}
}

func FromBatches(items []*batches.Batch, asOf time.Time) []*BatchResponse {
	resp := make([]*BatchResponse, len(items))
	for i, b := range items {
		resp[i] = FromBatch(b, asOf)
	}
	return resp
}
