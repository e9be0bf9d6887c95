package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pharmacore/internal/core/entity"
	"pharmacore/internal/core/id"
	"pharmacore/internal/domain"
	"pharmacore/internal/domain/documents/sale_invoice"
	"pharmacore/internal/infrastructure/http/v1/dto"
)

// SaleInvoiceHandler handles HTTP requests for SaleInvoice documents.
type SaleInvoiceHandler struct {
	*BaseDocumentHandler[*sale_invoice.SaleInvoice, dto.CreateSaleInvoiceRequest, dto.UpdateSaleInvoiceRequest]
	service *sale_invoice.Service
}

// NewSaleInvoiceHandler creates a new sale invoice handler.
func NewSaleInvoiceHandler(base *BaseHandler, service *sale_invoice.Service) *SaleInvoiceHandler {
	cfg := BaseDocumentHandlerConfig[*sale_invoice.SaleInvoice, dto.CreateSaleInvoiceRequest, dto.UpdateSaleInvoiceRequest]{
		Service:    service,
		Unapprover: service,
		EntityName: "sale-invoice",
		MapCreateDTO: func(req dto.CreateSaleInvoiceRequest) *sale_invoice.SaleInvoice {
			return req.ToEntity()
		},
		MapUpdateDTO: func(req dto.UpdateSaleInvoiceRequest, existing *sale_invoice.SaleInvoice) *sale_invoice.SaleInvoice {
			req.ApplyTo(existing)
			return existing
		},
		MapToDTO: func(doc *sale_invoice.SaleInvoice) any {
			return dto.FromSaleInvoice(doc)
		},
	}

	return &SaleInvoiceHandler{
		BaseDocumentHandler: NewBaseDocumentHandler(base, cfg),
		service:             service,
	}
}

// List handles GET /sale-invoices
func (h *SaleInvoiceHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := sale_invoice.ListFilter{
		ListFilter: domain.DefaultListFilter(),
	}
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.OrderBy = c.DefaultQuery("orderBy", "date DESC")
	filter.IncludeDeleted = c.Query("includeDeleted") == "true"

	if customerID := c.Query("customerId"); customerID != "" {
		if parsed, err := id.Parse(customerID); err == nil {
			filter.CustomerID = &parsed
		}
	}

	if status := c.Query("status"); status != "" {
		parsed := entity.DocumentStatus(status)
		filter.Status = &parsed
	}

	if dateFrom := c.Query("dateFrom"); dateFrom != "" {
		if parsed, err := time.Parse(time.RFC3339, dateFrom); err == nil {
			filter.DateFrom = &parsed
		}
	}

	if dateTo := c.Query("dateTo"); dateTo != "" {
		if parsed, err := time.Parse(time.RFC3339, dateTo); err == nil {
			filter.DateTo = &parsed
		}
	}

	result, err := h.service.List(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]*dto.SaleInvoiceResponse, len(result.Items))
	for i, doc := range result.Items {
		items[i] = dto.FromSaleInvoice(doc)
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// RegisterRoutes registers sale invoice routes.
func (h *SaleInvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	h.BaseDocumentHandler.RegisterRoutes(rg)
}
