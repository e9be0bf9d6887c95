package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pharmacore/internal/core/entity"
	"pharmacore/internal/core/id"
	"pharmacore/internal/domain"
	"pharmacore/internal/domain/documents/purchase_return"
	"pharmacore/internal/infrastructure/http/v1/dto"
)

// PurchaseReturnHandler handles HTTP requests for PurchaseReturn documents.
type PurchaseReturnHandler struct {
	*BaseDocumentHandler[*purchase_return.PurchaseReturn, dto.CreatePurchaseReturnRequest, dto.UpdatePurchaseReturnRequest]
	service *purchase_return.Service
}

// NewPurchaseReturnHandler creates a new purchase return handler.
func NewPurchaseReturnHandler(base *BaseHandler, service *purchase_return.Service) *PurchaseReturnHandler {
	cfg := BaseDocumentHandlerConfig[*purchase_return.PurchaseReturn, dto.CreatePurchaseReturnRequest, dto.UpdatePurchaseReturnRequest]{
		Service:    service,
		EntityName: "purchase-return",
		MapCreateDTO: func(req dto.CreatePurchaseReturnRequest) *purchase_return.PurchaseReturn {
			return req.ToEntity()
		},
		MapUpdateDTO: func(req dto.UpdatePurchaseReturnRequest, existing *purchase_return.PurchaseReturn) *purchase_return.PurchaseReturn {
			req.ApplyTo(existing)
			return existing
		},
		MapToDTO: func(doc *purchase_return.PurchaseReturn) any {
			return dto.FromPurchaseReturn(doc)
		},
	}

	return &PurchaseReturnHandler{
		BaseDocumentHandler: NewBaseDocumentHandler(base, cfg),
		service:             service,
	}
}

// List handles GET /purchase-returns
func (h *PurchaseReturnHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := purchase_return.ListFilter{
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

	if supplierID := c.Query("supplierId"); supplierID != "" {
		if parsed, err := id.Parse(supplierID); err == nil {
			filter.SupplierID = &parsed
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

	items := make([]*dto.PurchaseReturnResponse, len(result.Items))
	for i, doc := range result.Items {
		items[i] = dto.FromPurchaseReturn(doc)
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// RegisterRoutes registers purchase return routes.
func (h *PurchaseReturnHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	h.BaseDocumentHandler.RegisterRoutes(rg)
}
