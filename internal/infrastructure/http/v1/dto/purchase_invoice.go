package dto

import (
	"time"

	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain"
	"pharmacore/internal/domain/documents/purchase_invoice"
)

// --- Request DTOs ---

type CreatePurchaseInvoiceRequest struct {
	Number        string                `json:"number,omitempty"`
	Date          time.Time             `json:"date,omitempty"`
	SupplierID    string                `json:"supplierId" binding:"required"`
	PaymentMethod string                `json:"paymentMethod" binding:"required"`
	Comment       string                `json:"comment,omitempty"`
	Lines         []PurchaseLineRequest `json:"lines" binding:"required,min=1,dive"`
}

type PurchaseLineRequest struct {
	MedicineID        string           `json:"medicineId" binding:"required"`
	Barcode           *string          `json:"barcode,omitempty"`
	Quantity          types.Quantity   `json:"quantity" binding:"required"`
	UnitPurchasePrice types.MinorUnits `json:"unitPurchasePrice" binding:"gte=0"`
	UnitSalePrice     types.MinorUnits `json:"unitSalePrice" binding:"gte=0"`
	ExpiryDate        time.Time        `json:"expiryDate" binding:"required"`
}

func (r *CreatePurchaseInvoiceRequest) ToEntity() *purchase_invoice.PurchaseInvoice {
	supplierID, _ := id.Parse(r.SupplierID)

	doc := purchase_invoice.NewPurchaseInvoice(supplierID, domain.PaymentMethod(r.PaymentMethod))
	doc.Number = r.Number
	if !r.Date.IsZero() {
		doc.Date = r.Date
	}
	doc.Comment = r.Comment

	for _, line := range r.Lines {
		medicineID, _ := id.Parse(line.MedicineID)
		doc.AddLine(medicineID, line.Quantity, line.UnitPurchasePrice, line.UnitSalePrice, line.ExpiryDate, line.Barcode)
	}

	return doc
}

type UpdatePurchaseInvoiceRequest struct {
	Number        *string               `json:"number,omitempty"`
	Date          *time.Time            `json:"date,omitempty"`
	SupplierID    *string               `json:"supplierId,omitempty"`
	PaymentMethod *string               `json:"paymentMethod,omitempty"`
	Comment       *string               `json:"comment,omitempty"`
	Lines         []PurchaseLineRequest `json:"lines,omitempty"`
}

func (r *UpdatePurchaseInvoiceRequest) ApplyTo(doc *purchase_invoice.PurchaseInvoice) {
	if r.Number != nil {
		doc.Number = *r.Number
	}
	if r.Date != nil {
		doc.Date = *r.Date
	}
	if r.SupplierID != nil {
		supplierID, _ := id.Parse(*r.SupplierID)
		doc.SupplierID = supplierID
	}
	if r.PaymentMethod != nil {
		doc.PaymentMethod = domain.PaymentMethod(*r.PaymentMethod)
	}
	if r.Comment != nil {
		doc.Comment = *r.Comment
	}

	if r.Lines != nil {
		doc.Lines = make([]purchase_invoice.PurchaseLine, 0, len(r.Lines))
		for _, line := range r.Lines {
			medicineID, _ := id.Parse(line.MedicineID)
			doc.AddLine(medicineID, line.Quantity, line.UnitPurchasePrice, line.UnitSalePrice, line.ExpiryDate, line.Barcode)
		}
	}
}

// --- Response DTOs ---

type PurchaseInvoiceResponse struct {
	DocumentResponse
	SupplierID    string                 `json:"supplierId"`
	PaymentMethod string                 `json:"paymentMethod"`
	Amount        types.MinorUnits       `json:"amount"`
	Lines         []PurchaseLineResponse `json:"lines,omitempty"`
}

type PurchaseLineResponse struct {
	LineID            string           `json:"lineId"`
	LineNo            int              `json:"lineNo"`
	MedicineID        string           `json:"medicineId"`
	BatchID           *string          `json:"batchId,omitempty"`
	Barcode           *string          `json:"barcode,omitempty"`
	Quantity          types.Quantity   `json:"quantity"`
	UnitPurchasePrice types.MinorUnits `json:"unitPurchasePrice"`
	UnitSalePrice     types.MinorUnits `json:"unitSalePrice"`
	ExpiryDate        time.Time        `json:"expiryDate"`
	Amount            types.MinorUnits `json:"amount"`
}

func FromPurchaseInvoice(doc *purchase_invoice.PurchaseInvoice) *PurchaseInvoiceResponse {
	resp := &PurchaseInvoiceResponse{
		DocumentResponse: FromDocument(doc.Document),
		SupplierID:       doc.SupplierID.String(),
		PaymentMethod:    string(doc.PaymentMethod),
		Amount:           doc.Amount,
	}

	resp.Lines = make([]PurchaseLineResponse, len(doc.Lines))
	for i, line := range doc.Lines {
		resp.Lines[i] = PurchaseLineResponse{
			LineID:            line.LineID.String(),
			LineNo:            line.LineNo,
			MedicineID:        line.MedicineID.String(),
			Barcode:           line.Barcode,
			Quantity:          line.Quantity,
			UnitPurchasePrice: line.UnitPurchasePrice,
			UnitSalePrice:     line.UnitSalePrice,
			ExpiryDate:        line.ExpiryDate,
			Amount:            line.Amount,
		}
		if line.BatchID != nil {
			s := line.BatchID.String()
			resp.Lines[i].BatchID = &s
		}
	}

	return resp
}
