package handlers

import (
	"pharmacore/internal/domain/catalogs/supplier"
	"pharmacore/internal/infrastructure/http/v1/dto"
)

// SupplierHTTPHandler is an alias to keep constructor signatures short.
type SupplierHTTPHandler = CatalogHandler[
	*supplier.Supplier,
	dto.CreateSupplierRequest,
	dto.UpdateSupplierRequest,
]

// NewSupplierHandler creates a new supplier handler.
func NewSupplierHandler(base *BaseHandler, service *supplier.Service) *SupplierHTTPHandler {
	cfg := CatalogHandlerConfig[
		*supplier.Supplier,
		dto.CreateSupplierRequest,
		dto.UpdateSupplierRequest,
	]{
		Service:    service.CatalogService,
		EntityName: "supplier",
		MapCreateDTO: func(req dto.CreateSupplierRequest) *supplier.Supplier {
			return req.ToEntity()
		},
		MapUpdateDTO: func(req dto.UpdateSupplierRequest, existing *supplier.Supplier) *supplier.Supplier {
			req.ApplyTo(existing)
			return existing
		},
		MapToDTO: func(sup *supplier.Supplier) any {
			return dto.FromSupplier(sup)
		},
	}

	return NewCatalogHandler(base, cfg)
}
