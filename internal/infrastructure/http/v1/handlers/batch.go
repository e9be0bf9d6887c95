package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
	"pharmacore/internal/domain/batches"
	"pharmacore/internal/infrastructure/http/v1/dto"
)

// BatchHandler handles HTTP requests for batch inventory.
type BatchHandler struct {
	*BaseHandler
	service *batches.Service
}

// NewBatchHandler creates a new batch handler.
func NewBatchHandler(base *BaseHandler, service *batches.Service) *BatchHandler {
	return &BatchHandler{
		BaseHandler: base,
		service:     service,
	}
}

// List handles GET /batches?medicineId=...
func (h *BatchHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	medicineID, err := id.Parse(c.Query("medicineId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("medicineId query parameter is required"))
		return
	}

	items, err := h.service.ListByMedicine(ctx, medicineID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": dto.FromBatches(items, time.Now())})
}

// Get handles GET /batches/:id
func (h *BatchHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	batchID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	batch, err := h.service.GetByID(ctx, batchID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromBatch(batch, time.Now()))
}

// TotalRemaining handles GET /batches/total?medicineId=...
func (h *BatchHandler) TotalRemaining(c *gin.Context) {
	ctx := c.Request.Context()

	medicineID, err := id.Parse(c.Query("medicineId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("medicineId query parameter is required"))
		return
	}

	total, err := h.service.TotalRemaining(ctx, medicineID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"medicineId": medicineID.String(),
		"total":      total,
	})
}

// Scrap handles POST /batches/:id/scrap
func (h *BatchHandler) Scrap(c *gin.Context) {
	ctx := c.Request.Context()

	batchID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.ScrapBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.Scrap(ctx, batchID, batches.ScrapReason(req.Reason), req.Note); err != nil {
		h.Error(c, err)
		return
	}

	batch, err := h.service.GetByID(ctx, batchID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromBatch(batch, time.Now()))
}

// RegisterRoutes registers batch routes.
func (h *BatchHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/total", h.TotalRemaining)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/scrap", h.Scrap)
}
