package dto

import (
	"time"

	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain/documents/sales_return"
)

// --- Request DTOs ---

// CreateSalesReturnRequest creates a return against an approved sale.
// Lines reference origin invoice lines; prices and batches are pinned
// from the origin by the service.
type CreateSalesReturnRequest struct {
	Number          string                   `json:"number,omitempty"`
	Date            time.Time                `json:"date,omitempty"`
	OriginInvoiceID string                   `json:"originInvoiceId" binding:"required"`
	Comment         string                   `json:"comment,omitempty"`
	Lines           []SalesReturnLineRequest `json:"lines" binding:"required,min=1,dive"`
}

type SalesReturnLineRequest struct {
	OriginLineID string         `json:"originLineId" binding:"required"`
	Quantity     types.Quantity `json:"quantity" binding:"required"`
}

func (r *CreateSalesReturnRequest) ToEntity() *sales_return.SalesReturn {
	originID, _ := id.Parse(r.OriginInvoiceID)

	doc := sales_return.NewSalesReturn(originID)
	doc.Number = r.Number
	if !r.Date.IsZero() {
		doc.Date = r.Date
	}
	doc.Comment = r.Comment

	for _, line := range r.Lines {
		originLineID, _ := id.Parse(line.OriginLineID)
		doc.AddLine(originLineID, id.Nil(), id.Nil(), line.Quantity, 0, 0)
	}

	return doc
}

type UpdateSalesReturnRequest struct {
	Number  *string                  `json:"number,omitempty"`
	Date    *time.Time               `json:"date,omitempty"`
	Comment *string                  `json:"comment,omitempty"`
	Lines   []SalesReturnLineRequest `json:"lines,omitempty"`
}

func (r *UpdateSalesReturnRequest) ApplyTo(doc *sales_return.SalesReturn) {
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
		doc.Lines = make([]sales_return.ReturnLine, 0, len(r.Lines))
		for _, line := range r.Lines {
			originLineID, _ := id.Parse(line.OriginLineID)
			doc.AddLine(originLineID, id.Nil(), id.Nil(), line.Quantity, 0, 0)
		}
	}
}

// --- Response DTOs ---

type SalesReturnResponse struct {
	DocumentResponse
	OriginInvoiceID string                    `json:"originInvoiceId"`
	CustomerID      *string                   `json:"customerId,omitempty"`
	CustomerName    string                    `json:"customerName,omitempty"`
	PaymentMethod   string                    `json:"paymentMethod"`
	Amount          types.MinorUnits          `json:"amount"`
	Cost            types.MinorUnits          `json:"cost"`
	Profit          types.MinorUnits          `json:"profit"`
	Lines           []SalesReturnLineResponse `json:"lines,omitempty"`
}

type SalesReturnLineResponse struct {
	LineID       string           `json:"lineId"`
	LineNo       int              `json:"lineNo"`
	OriginLineID string           `json:"originLineId"`
	MedicineID   string           `json:"medicineId"`
	BatchID      string           `json:"batchId"`
	Quantity     types.Quantity   `json:"quantity"`
	UnitPrice    types.MinorUnits `json:"unitPrice"`
	UnitCost     types.MinorUnits `json:"unitCost"`
	Amount       types.MinorUnits `json:"amount"`
}

func FromSalesReturn(doc *sales_return.SalesReturn) *SalesReturnResponse {
	resp := &SalesReturnResponse{
		DocumentResponse: FromDocument(doc.Document),
		OriginInvoiceID:  doc.OriginInvoiceID.String(),
		CustomerName:     doc.CustomerName,
		PaymentMethod:    string(doc.PaymentMethod),
		Amount:           doc.Amount,
		Cost:             doc.Cost,
		Profit:           doc.Profit,
	}

	if doc.CustomerID != nil {
		s := doc.CustomerID.String()
		resp.CustomerID = &s
	}

	resp.Lines = make([]SalesReturnLineResponse, len(doc.Lines))
	for i, line := range doc.Lines {
		resp.Lines[i] = SalesReturnLineResponse{
			LineID:       line.LineID.String(),
			LineNo:       line.LineNo,
			OriginLineID: line.OriginLineID.String(),
			MedicineID:   line.MedicineID.String(),
			BatchID:      line.BatchID.String(),
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPrice,
			UnitCost:     line.UnitCost,
			Amount:       line.Amount,
		}
	}

	return resp
}
