package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pharmacore/internal/core/entity"
	"pharmacore/internal/core/id"
	"pharmacore/internal/domain"
	"pharmacore/internal/domain/documents/sales_return"
	"pharmacore/internal/infrastructure/http/v1/dto"
)

// SalesReturnHandler handles HTTP requests for SalesReturn documents.
type SalesReturnHandler struct {
	*BaseDocumentHandler[*sales_return.SalesReturn, dto.CreateSalesReturnRequest, dto.UpdateSalesReturnRequest]
	service *sales_return.Service
}

// NewSalesReturnHandler creates a new sales return handler.
func NewSalesReturnHandler(base *BaseHandler, service *sales_return.Service) *SalesReturnHandler {
	cfg := BaseDocumentHandlerConfig[*sales_return.SalesReturn, dto.CreateSalesReturnRequest, dto.UpdateSalesReturnRequest]{
		Service:    service,
		EntityName: "sales-return",
		MapCreateDTO: func(req dto.CreateSalesReturnRequest) *sales_return.SalesReturn {
			return req.ToEntity()
		},
		MapUpdateDTO: func(req dto.UpdateSalesReturnRequest, existing *sales_return.SalesReturn) *sales_return.SalesReturn {
			req.ApplyTo(existing)
			return existing
		},
		MapToDTO: func(doc *sales_return.SalesReturn) any {
			return dto.FromSalesReturn(doc)
		},
	}

	return &SalesReturnHandler{
		BaseDocumentHandler: NewBaseDocumentHandler(base, cfg),
		service:             service,
	}
}

// List handles GET /sales-returns
func (h *SalesReturnHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := sales_return.ListFilter{
		ListFilter: domain.DefaultListFilter(),
	}
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.OrderBy = c.DefaultQuery("orderBy", "date DESC")
	filter.IncludeDeleted = c.Query("includeDeleted") == "true"

	if originID := c.Query("originInvoiceId"); originID != "" {
		if parsed, err := id.Parse(originID); err == nil {
			filter.OriginInvoiceID = &parsed
		}
	}

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

	items := make([]*dto.SalesReturnResponse, len(result.Items))
	for i, doc := range result.Items {
		items[i] = dto.FromSalesReturn(doc)
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// RegisterRoutes registers sales return routes.
func (h *SalesReturnHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	h.BaseDocumentHandler.RegisterRoutes(rg)
}
