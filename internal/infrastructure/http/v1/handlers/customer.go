package handlers

import (
	"pharmacore/internal/domain/catalogs/customer"
	"pharmacore/internal/infrastructure/http/v1/dto"
)

// CustomerHTTPHandler is an alias to keep constructor signatures short.
type CustomerHTTPHandler = CatalogHandler[
	*customer.Customer,
	dto.CreateCustomerRequest,
	dto.UpdateCustomerRequest,
]

// NewCustomerHandler creates a new customer handler.
func NewCustomerHandler(base *BaseHandler, service *customer.Service) *CustomerHTTPHandler {
	cfg := CatalogHandlerConfig[
		*customer.Customer,
		dto.CreateCustomerRequest,
		dto.UpdateCustomerRequest,
	]{
		Service:    service.CatalogService,
		EntityName: "customer",
		MapCreateDTO: func(req dto.CreateCustomerRequest) *customer.Customer {
			return req.ToEntity()
		},
		MapUpdateDTO: func(req dto.UpdateCustomerRequest, existing *customer.Customer) *customer.Customer {
			req.ApplyTo(existing)
			return existing
		},
		MapToDTO: func(cust *customer.Customer) any {
			return dto.FromCustomer(cust)
		},
	}

	return NewCatalogHandler(base, cfg)
}
