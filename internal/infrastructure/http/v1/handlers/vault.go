package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pharmacore/internal/core/id"
	"pharmacore/internal/domain/account"
	"pharmacore/internal/infrastructure/http/v1/dto"
)

// manualOperationRef marks vault transactions made outside of documents.
const manualOperationRef = "ManualOperation"

// VaultHandler handles HTTP requests for the cash vault.
type VaultHandler struct {
	*BaseHandler
	service *account.Service
}

// NewVaultHandler creates a new vault handler.
func NewVaultHandler(base *BaseHandler, service *account.Service) *VaultHandler {
	return &VaultHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Balance handles GET /vault/balance
func (h *VaultHandler) Balance(c *gin.Context) {
	ctx := c.Request.Context()

	balance, err := h.service.Balance(ctx)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.VaultBalanceResponse{Balance: balance})
}

// Deposit handles POST /vault/deposit
func (h *VaultHandler) Deposit(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.VaultOperationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.Deposit(ctx, req.Amount, manualOperationRef, id.New(), req.Description); err != nil {
		h.Error(c, err)
		return
	}

	balance, err := h.service.Balance(ctx)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.VaultBalanceResponse{Balance: balance})
}

// Withdraw handles POST /vault/withdraw
func (h *VaultHandler) Withdraw(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.VaultOperationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.Withdraw(ctx, req.Amount, manualOperationRef, id.New(), req.Description); err != nil {
		h.Error(c, err)
		return
	}

	balance, err := h.service.Balance(ctx)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.VaultBalanceResponse{Balance: balance})
}

// Transactions handles GET /vault/transactions
func (h *VaultHandler) Transactions(c *gin.Context) {
	ctx := c.Request.Context()

	filter := account.TransactionFilter{
		Limit:  h.ParseIntQuery(c, "limit", 100),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	if raw := c.Query("type"); raw != "" {
		txType := account.TransactionType(raw)
		filter.Type = &txType
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

	items, err := h.service.ListTransactions(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": dto.FromTransactions(items)})
}

// RegisterRoutes registers vault routes.
func (h *VaultHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/balance", h.Balance)
	rg.POST("/deposit", h.Deposit)
	rg.POST("/withdraw", h.Withdraw)
	rg.GET("/transactions", h.Transactions)
}
