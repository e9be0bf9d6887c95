package dto

import (
	"pharmacore/internal/core/entity"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain/catalogs/medicine"
)

// --- Request DTOs ---

type CreateMedicineRequest struct {
	Code                 string           `json:"code,omitempty"`
	Name                 string           `json:"name" binding:"required"`
	Barcode              *string          `json:"barcode,omitempty"`
	Manufacturer         *string          `json:"manufacturer,omitempty"`
	Description          *string          `json:"description,omitempty"`
	MinAlertQuantity     types.Quantity   `json:"minAlertQuantity,omitempty"`
	DefaultPurchasePrice types.MinorUnits  `json:"defaultPurchasePrice,omitempty"`
	DefaultSalePrice     types.MinorUnits  `json:"defaultSalePrice,omitempty"`
	Attributes           entity.Attributes `json:"attributes,omitempty"`
}

func (r *CreateMedicineRequest) ToEntity() *medicine.Medicine {
	med := medicine.NewMedicine(r.Code, r.Name)
	med.Barcode = r.Barcode
	med.Manufacturer = r.Manufacturer
	med.Description = r.Description
	med.MinAlertQuantity = r.MinAlertQuantity
	med.DefaultPurchasePrice = r.DefaultPurchasePrice
	med.DefaultSalePrice = r.DefaultSalePrice
	med.Attributes = r.Attributes
	return med
}

type UpdateMedicineRequest struct {
	Code                 *string           `json:"code,omitempty"`
	Name                 *string           `json:"name,omitempty"`
	Barcode              *string           `json:"barcode,omitempty"`
	Manufacturer         *string           `json:"manufacturer,omitempty"`
	Description          *string           `json:"description,omitempty"`
	MinAlertQuantity     *types.Quantity   `json:"minAlertQuantity,omitempty"`
	DefaultPurchasePrice *types.MinorUnits `json:"defaultPurchasePrice,omitempty"`
	DefaultSalePrice     *types.MinorUnits `json:"defaultSalePrice,omitempty"`
	Attributes           entity.Attributes `json:"attributes,omitempty"`
	Version              int               `json:"version" binding:"required,min=1"`
}

func (r *UpdateMedicineRequest) ApplyTo(med *medicine.Medicine) *medicine.Medicine {
	if r.Code != nil {
		med.Code = *r.Code
	}
	if r.Name != nil {
		med.Name = *r.Name
	}
	if r.Barcode != nil {
		med.Barcode = r.Barcode
	}
	if r.Manufacturer != nil {
		med.Manufacturer = r.Manufacturer
	}
	if r.Description != nil {
		med.Description = r.Description
	}
	if r.MinAlertQuantity != nil {
		med.MinAlertQuantity = *r.MinAlertQuantity
	}
	if r.DefaultPurchasePrice != nil {
		med.DefaultPurchasePrice = *r.DefaultPurchasePrice
	}
	if r.DefaultSalePrice != nil {
		med.DefaultSalePrice = *r.DefaultSalePrice
	}
	if r.Attributes != nil {
		med.Attributes = r.Attributes
	}
	med.Version = r.Version
	return med
}

// --- Response DTOs ---

type MedicineResponse struct {
	CatalogResponse
	Barcode              *string          `json:"barcode,omitempty"`
	Manufacturer         *string          `json:"manufacturer,omitempty"`
	Description          *string          `json:"description,omitempty"`
	MinAlertQuantity     types.Quantity    `json:"minAlertQuantity"`
	DefaultPurchasePrice types.MinorUnits  `json:"defaultPurchasePrice"`
	DefaultSalePrice     types.MinorUnits  `json:"defaultSalePrice"`
	Attributes           entity.Attributes `json:"attributes,omitempty"`
}

func FromMedicine(med *medicine.Medicine) *MedicineResponse {
	return &MedicineResponse{
		CatalogResponse:      FromCatalog(med.Catalog),
		Barcode:              med.Barcode,
		Manufacturer:         med.Manufacturer,
		Description:          med.Description,
		MinAlertQuantity:     med.MinAlertQuantity,
		DefaultPurchasePrice: med.DefaultPurchasePrice,
		DefaultSalePrice:     med.DefaultSalePrice,
		Attributes:           med.Attributes,
	}
}
