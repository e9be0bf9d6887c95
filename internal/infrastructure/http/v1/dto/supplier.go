package dto

import (
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain/catalogs/supplier"
)

// --- Request DTOs ---

type CreateSupplierRequest struct {
	Code          string  `json:"code,omitempty"`
	Name          string  `json:"name" binding:"required"`
	Phone         *string `json:"phone,omitempty"`
	ContactPerson *string `json:"contactPerson,omitempty"`
}

func (r *CreateSupplierRequest) ToEntity() *supplier.Supplier {
	sup := supplier.NewSupplier(r.Code, r.Name)
	sup.Phone = r.Phone
	sup.ContactPerson = r.ContactPerson
	return sup
}

type UpdateSupplierRequest struct {
	Code          *string `json:"code,omitempty"`
	Name          *string `json:"name,omitempty"`
	Phone         *string `json:"phone,omitempty"`
	ContactPerson *string `json:"contactPerson,omitempty"`
	Version       int     `json:"version" binding:"required,min=1"`
}

func (r *UpdateSupplierRequest) ApplyTo(sup *supplier.Supplier) *supplier.Supplier {
	if r.Code != nil {
		sup.Code = *r.Code
	}
	if r.Name != nil {
		sup.Name = *r.Name
	}
	if r.Phone != nil {
		sup.Phone = r.Phone
	}
	if r.ContactPerson != nil {
		sup.ContactPerson = r.ContactPerson
	}
	sup.Version = r.Version
	return sup
}

// --- Response DTOs ---

type SupplierResponse struct {
	CatalogResponse
	Phone         *string          `json:"phone,omitempty"`
	ContactPerson *string          `json:"contactPerson,omitempty"`
	Balance       types.MinorUnits `json:"balance"`
}

func FromSupplier(sup *supplier.Supplier) *SupplierResponse {
	return &SupplierResponse{
		CatalogResponse: FromCatalog(sup.Catalog),
		Phone:           sup.Phone,
		ContactPerson:   sup.ContactPerson,
		Balance:         sup.Balance,
	}
}
