package dto

import (
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain/catalogs/customer"
)

// --- Request DTOs ---

type CreateCustomerRequest struct {
	Code        string           `json:"code,omitempty"`
	Name        string           `json:"name" binding:"required"`
	Phone       *string          `json:"phone,omitempty"`
	CreditLimit types.MinorUnits `json:"creditLimit,omitempty"`
}

func (r *CreateCustomerRequest) ToEntity() *customer.Customer {
	cust := customer.NewCustomer(r.Code, r.Name)
	cust.Phone = r.Phone
	cust.CreditLimit = r.CreditLimit
	return cust
}

type UpdateCustomerRequest struct {
	Code        *string           `json:"code,omitempty"`
	Name        *string           `json:"name,omitempty"`
	Phone       *string           `json:"phone,omitempty"`
	CreditLimit *types.MinorUnits `json:"creditLimit,omitempty"`
	Version     int               `json:"version" binding:"required,min=1"`
}

// ApplyTo maps the update onto an existing customer.
// Balance is never set through the API; documents move it.
func (r *UpdateCustomerRequest) ApplyTo(cust *customer.Customer) *customer.Customer {
	if r.Code != nil {
		cust.Code = *r.Code
	}
	if r.Name != nil {
		cust.Name = *r.Name
	}
	if r.Phone != nil {
		cust.Phone = r.Phone
	}
	if r.CreditLimit != nil {
		cust.CreditLimit = *r.CreditLimit
	}
	cust.Version = r.Version
	return cust
}

// --- Response DTOs ---

type CustomerResponse struct {
	CatalogResponse
	Phone       *string          `json:"phone,omitempty"`
	Balance     types.MinorUnits `json:"balance"`
	CreditLimit types.MinorUnits `json:"creditLimit"`
}

func FromCustomer(cust *customer.Customer) *CustomerResponse {
	return &CustomerResponse{
		CatalogResponse: FromCatalog(cust.Catalog),
		Phone:           cust.Phone,
		Balance:         cust.Balance,
		CreditLimit:     cust.CreditLimit,
	}
}
