package dto

import (
	"time"

	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain"
	"pharmacore/internal/domain/documents/sale_invoice"
)

// --- Request DTOs ---

type CreateSaleInvoiceRequest struct {
	Number        string                  `json:"number,omitempty"`
	Date          time.Time               `json:"date,omitempty"`
	CustomerID    *string                 `json:"customerId,omitempty"`
	CustomerName  string                  `json:"customerName,omitempty"`
	PaymentMethod string                  `json:"paymentMethod" binding:"required"`
	Comment       string                  `json:"comment,omitempty"`
	Lines         []SaleLineRequest       `json:"lines" binding:"required,min=1,dive"`
}

type SaleLineRequest struct {
	MedicineID string           `json:"medicineId" binding:"required"`
	BatchID    *string          `json:"batchId,omitempty"`
	Quantity   types.Quantity   `json:"quantity" binding:"required"`
	UnitPrice  types.MinorUnits `json:"unitPrice,omitempty"`
}

func (r *CreateSaleInvoiceRequest) ToEntity() *sale_invoice.SaleInvoice {
	var customerID *id.ID
	if r.CustomerID != nil && *r.CustomerID != "" {
		parsed, _ := id.Parse(*r.CustomerID)
		customerID = &parsed
	}

	doc := sale_invoice.NewSaleInvoice(customerID, domain.PaymentMethod(r.PaymentMethod))
	doc.Number = r.Number
	if !r.Date.IsZero() {
		doc.Date = r.Date
	}
	doc.CustomerName = r.CustomerName
	doc.Comment = r.Comment

	for _, line := range r.Lines {
		medicineID, _ := id.Parse(line.MedicineID)
		var batchID *id.ID
		if line.BatchID != nil && *line.BatchID != "" {
			parsed, _ := id.Parse(*line.BatchID)
			batchID = &parsed
		}
		doc.AddLine(medicineID, line.Quantity, line.UnitPrice, batchID)
	}

	return doc
}

type UpdateSaleInvoiceRequest struct {
	Number        *string           `json:"number,omitempty"`
	Date          *time.Time        `json:"date,omitempty"`
	CustomerID    *string           `json:"customerId,omitempty"`
	CustomerName  *string           `json:"customerName,omitempty"`
	PaymentMethod *string           `json:"paymentMethod,omitempty"`
	Comment       *string           `json:"comment,omitempty"`
	Lines         []SaleLineRequest `json:"lines,omitempty"`
}

func (r *UpdateSaleInvoiceRequest) ApplyTo(doc *sale_invoice.SaleInvoice) {
	if r.Number != nil {
		doc.Number = *r.Number
	}
	if r.Date != nil {
		doc.Date = *r.Date
	}
	if r.CustomerID != nil {
		if *r.CustomerID == "" {
			doc.CustomerID = nil
		} else {
			parsed, _ := id.Parse(*r.CustomerID)
			doc.CustomerID = &parsed
		}
	}
	if r.CustomerName != nil {
		doc.CustomerName = *r.CustomerName
	}
	if r.PaymentMethod != nil {
		doc.PaymentMethod = domain.PaymentMethod(*r.PaymentMethod)
	}
	if r.Comment != nil {
		doc.Comment = *r.Comment
	}

	if r.Lines != nil {
		doc.Lines = make([]sale_invoice.SaleLine, 0, len(r.Lines))
		for _, line := range r.Lines {
			medicineID, _ := id.Parse(line.MedicineID)
			var batchID *id.ID
			if line.BatchID != nil && *line.BatchID != "" {
				parsed, _ := id.Parse(*line.BatchID)
				batchID = &parsed
			}
			doc.AddLine(medicineID, line.Quantity, line.UnitPrice, batchID)
		}
	}
}

// --- Response DTOs ---

type SaleInvoiceResponse struct {
	DocumentResponse
	CustomerID    *string            `json:"customerId,omitempty"`
	CustomerName  string             `json:"customerName,omitempty"`
	PaymentMethod string             `json:"paymentMethod"`
	Amount        types.MinorUnits   `json:"amount"`
	Cost          types.MinorUnits   `json:"cost"`
	Profit        types.MinorUnits   `json:"profit"`
	Lines         []SaleLineResponse `json:"lines,omitempty"`
}

type SaleLineResponse struct {
	LineID               string           `json:"lineId"`
	LineNo               int              `json:"lineNo"`
	MedicineID           string           `json:"medicineId"`
	BatchID              *string          `json:"batchId,omitempty"`
	Quantity             types.Quantity   `json:"quantity"`
	UnitPrice            types.MinorUnits `json:"unitPrice"`
	UnitCost             types.MinorUnits `json:"unitCost"`
	Amount               types.MinorUnits `json:"amount"`
	RemainingQtyToReturn types.Quantity   `json:"remainingQtyToReturn"`
}

func FromSaleInvoice(doc *sale_invoice.SaleInvoice) *SaleInvoiceResponse {
	resp := &SaleInvoiceResponse{
		DocumentResponse: FromDocument(doc.Document),
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

	resp.Lines = make([]SaleLineResponse, len(doc.Lines))
	for i, line := range doc.Lines {
		resp.Lines[i] = SaleLineResponse{
			LineID:               line.LineID.String(),
			LineNo:               line.LineNo,
			MedicineID:           line.MedicineID.String(),
			Quantity:             line.Quantity,
			UnitPrice:            line.UnitPrice,
			UnitCost:             line.UnitCost,
			Amount:               line.Amount,
			RemainingQtyToReturn: line.RemainingQtyToReturn,
		}
		if line.BatchID != nil {
			s := line.BatchID.String()
			resp.Lines[i].BatchID = &s
		}
	}

	return resp
}
