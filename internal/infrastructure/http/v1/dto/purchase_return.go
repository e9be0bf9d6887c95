package dto

import (
	"time"

	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain/documents/purchase_return"
)

// --- Request DTOs ---

// CreatePurchaseReturnRequest creates a return against an approved
// purchase. Lines reference batches received by the origin invoice.
type CreatePurchaseReturnRequest struct {
	Number          string                      `json:"number,omitempty"`
	Date            time.Time                   `json:"date,omitempty"`
	OriginInvoiceID string                      `json:"originInvoiceId" binding:"required"`
	Comment         string                      `json:"comment,omitempty"`
	Lines           []PurchaseReturnLineRequest `json:"lines" binding:"required,min=1,dive"`
}

type PurchaseReturnLineRequest struct {
	BatchID  string         `json:"batchId" binding:"required"`
	Quantity types.Quantity `json:"quantity" binding:"required"`
}

func (r *CreatePurchaseReturnRequest) ToEntity() *purchase_return.PurchaseReturn {
	originID, _ := id.Parse(r.OriginInvoiceID)

	doc := purchase_return.NewPurchaseReturn(originID)
	doc.Number = r.Number
	if !r.Date.IsZero() {
		doc.Date = r.Date
	}
	doc.Comment = r.Comment

	for _, line := range r.Lines {
		batchID, _ := id.Parse(line.BatchID)
		doc.AddLine(id.Nil(), batchID, line.Quantity, 0)
	}

	return doc
}

type UpdatePurchaseReturnRequest struct {
	Number  *string                     `json:"number,omitempty"`
	Date    *time.Time                  `json:"date,omitempty"`
	Comment *string                     `json:"comment,omitempty"`
	Lines   []PurchaseReturnLineRequest `json:"lines,omitempty"`
}

func (r *UpdatePurchaseReturnRequest) ApplyTo(doc *purchase_return.PurchaseReturn) {
	if r.Number != nil {
		doc.Number = *r.Number
	}
	if r.Date != nil {
		doc.Date = *r.Date
	}
	if r.Comment != nil {
		doc.Comment = *r.Comment
	}

	if r.Lines != nil {
		doc.Lines = make([]purchase_return.ReturnLine, 0, len(r.Lines))
		for _, line := range r.Lines {
			batchID, _ := id.Parse(line.BatchID)
			doc.AddLine(id.Nil(), batchID, line.Quantity, 0)
		}
	}
}

// --- Response DTOs ---

type PurchaseReturnResponse struct {
	DocumentResponse
	OriginInvoiceID string                       `json:"originInvoiceId"`
	SupplierID      string                       `json:"supplierId"`
	PaymentMethod   string                       `json:"paymentMethod"`
	Amount          types.MinorUnits             `json:"amount"`
	Lines           []PurchaseReturnLineResponse `json:"lines,omitempty"`
}

type PurchaseReturnLineResponse struct {
	LineID            string           `json:"lineId"`
	LineNo            int              `json:"lineNo"`
	MedicineID        string           `json:"medicineId"`
	BatchID           string           `json:"batchId"`
	Quantity          types.Quantity   `json:"quantity"`
	UnitPurchasePrice types.MinorUnits `json:"unitPurchasePrice"`
	Amount            types.MinorUnits `json:"amount"`
}

func FromPurchaseReturn(doc *purchase_return.PurchaseReturn) *PurchaseReturnResponse {
	resp := &PurchaseReturnResponse{
		DocumentResponse: FromDocument(doc.Document),
		OriginInvoiceID:  doc.OriginInvoiceID.String(),
		SupplierID:       doc.SupplierID.String(),
		PaymentMethod:    string(doc.PaymentMethod),
		Amount:           doc.Amount,
	}

	resp.Lines = make([]PurchaseReturnLineResponse, len(doc.Lines))
	for i, line := range doc.Lines {
		resp.Lines[i] = PurchaseReturnLineResponse{
			LineID:            line.LineID.String(),
			LineNo:            line.LineNo,
			MedicineID:        line.MedicineID.String(),
			BatchID:           line.BatchID.String(),
			Quantity:          line.Quantity,
			UnitPurchasePrice: line.UnitPurchasePrice,
			Amount:            line.Amount,
		}
	}

	return resp
}
