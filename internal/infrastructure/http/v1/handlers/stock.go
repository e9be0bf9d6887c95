package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/entity"
	"pharmacore/internal/core/id"
	"pharmacore/internal/domain/ledger"
	"pharmacore/internal/infrastructure/http/v1/dto"
)

// StockHandler handles HTTP requests for the stock ledger.
type StockHandler struct {
	*BaseHandler
	service *ledger.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service *ledger.Service) *StockHandler {
	return &StockHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Balance handles GET /stock/:medicineId/balance?batchId=...
func (h *StockHandler) Balance(c *gin.Context) {
	ctx := c.Request.Context()

	medicineID, err := id.Parse(c.Param("medicineId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid medicine id"))
		return
	}

	var batchID *id.ID
	if raw := c.Query("batchId"); raw != "" {
		parsed, err := id.Parse(raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid batch id"))
			return
		}
		batchID = &parsed
	}

	balance, err := h.service.CurrentBalance(ctx, medicineID, batchID)
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := dto.StockBalanceResponse{
		MedicineID: medicineID.String(),
		Balance:    balance,
	}
	if batchID != nil {
		s := batchID.String()
		resp.BatchID = &s
	}

	c.JSON(http.StatusOK, resp)
}

// Movements handles GET /stock/:medicineId/movements
func (h *StockHandler) Movements(c *gin.Context) {
	ctx := c.Request.Context()

	medicineID, err := id.Parse(c.Param("medicineId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid medicine id"))
		return
	}

	filter := ledger.MovementFilter{
		Limit:  h.ParseIntQuery(c, "limit", 100),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	if raw := c.Query("batchId"); raw != "" {
		if parsed, err := id.Parse(raw); err == nil {
			filter.BatchID = &parsed
		}
	}

	if raw := c.Query("type"); raw != "" {
		movementType := entity.MovementType(raw)
		filter.Type = &movementType
	}

	if raw := c.Query("dateFrom"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.FromDate = &parsed
		}
	}

	if raw := c.Query("dateTo"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.ToDate = &parsed
		}
	}

	movements, err := h.service.GetMovementHistory(ctx, medicineID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MovementListResponse{Items: dto.FromMovements(movements)})
}

// ByDocument handles GET /stock/by-document/:id
func (h *StockHandler) ByDocument(c *gin.Context) {
	ctx := c.Request.Context()

	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	movements, err := h.service.GetByDocument(ctx, docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MovementListResponse{Items: dto.FromMovements(movements)})
}

// RegisterRoutes registers stock ledger routes.
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/by-document/:id", h.ByDocument)
	rg.GET("/:medicineId/balance", h.Balance)
	rg.GET("/:medicineId/movements", h.Movements)
}
