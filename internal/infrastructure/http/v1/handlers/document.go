package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
)

// DocumentService defines the interface that services must implement for
// BaseDocumentHandler.
type DocumentService[T any] interface {
	GetByID(ctx context.Context, id id.ID) (T, error)
	Create(ctx context.Context, entity T) error
	Update(ctx context.Context, entity T) error
	Delete(ctx context.Context, id id.ID) error
	Approve(ctx context.Context, id id.ID) error
	Cancel(ctx context.Context, id id.ID) error
}

// Unapprover is implemented by services that support returning an
// approved document to draft.
type Unapprover interface {
	Unapprove(ctx context.Context, id id.ID) error
}

// BaseDocumentHandler provides generic HTTP handlers for document entities.
type BaseDocumentHandler[T any, CreateDTO any, UpdateDTO any] struct {
	*BaseHandler
	service    DocumentService[T]
	unapprover Unapprover
	entityName string

	// Mapper functions
	mapCreateDTO func(dto CreateDTO) T
	mapUpdateDTO func(dto UpdateDTO, existing T) T
	mapToDTO     func(entity T) any
}

// BaseDocumentHandlerConfig configures the document handler.
type BaseDocumentHandlerConfig[T any, CreateDTO any, UpdateDTO any] struct {
	Service      DocumentService[T]
	Unapprover   Unapprover
	EntityName   string
	MapCreateDTO func(dto CreateDTO) T
	MapUpdateDTO func(dto UpdateDTO, existing T) T
	MapToDTO     func(entity T) any
}

// NewBaseDocumentHandler creates a new base document handler.
func NewBaseDocumentHandler[T any, CreateDTO any, UpdateDTO any](
	base *BaseHandler,
	cfg BaseDocumentHandlerConfig[T, CreateDTO, UpdateDTO],
) *BaseDocumentHandler[T, CreateDTO, UpdateDTO] {
	return &BaseDocumentHandler[T, CreateDTO, UpdateDTO]{
		BaseHandler:  base,
		service:      cfg.Service,
		unapprover:   cfg.Unapprover,
		entityName:   cfg.EntityName,
		mapCreateDTO: cfg.MapCreateDTO,
		mapUpdateDTO: cfg.MapUpdateDTO,
		mapToDTO:     cfg.MapToDTO,
	}
}

// Get handles GET /{entity}/:id
func (h *BaseDocumentHandler[T, CreateDTO, UpdateDTO]) Get(c *gin.Context) {
	ctx := c.Request.Context()

	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	doc, err := h.service.GetByID(ctx, docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, h.mapToDTO(doc))
}

// Create handles POST /{entity}
func (h *BaseDocumentHandler[T, CreateDTO, UpdateDTO]) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreateDTO
	if !h.BindJSON(c, &req) {
		return
	}

	doc := h.mapCreateDTO(req)

	if err := h.service.Create(ctx, doc); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, h.mapToDTO(doc))
}

// Update handles PUT /{entity}/:id
func (h *BaseDocumentHandler[T, CreateDTO, UpdateDTO]) Update(c *gin.Context) {
	ctx := c.Request.Context()

	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req UpdateDTO
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.GetByID(ctx, docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	doc = h.mapUpdateDTO(req, doc)

	if err := h.service.Update(ctx, doc); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, h.mapToDTO(doc))
}

// Delete handles DELETE /{entity}/:id
func (h *BaseDocumentHandler[T, CreateDTO, UpdateDTO]) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := h.service.Delete(ctx, docID); err != nil {
		h.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Approve handles POST /{entity}/:id/approve
func (h *BaseDocumentHandler[T, CreateDTO, UpdateDTO]) Approve(c *gin.Context) {
	h.transition(c, h.service.Approve)
}

// Cancel handles POST /{entity}/:id/cancel
func (h *BaseDocumentHandler[T, CreateDTO, UpdateDTO]) Cancel(c *gin.Context) {
	h.transition(c, h.service.Cancel)
}

// Unapprove handles POST /{entity}/:id/unapprove
func (h *BaseDocumentHandler[T, CreateDTO, UpdateDTO]) Unapprove(c *gin.Context) {
	if h.unapprover == nil {
		h.Error(c, apperror.NewBusinessRule(apperror.CodeBusinessRule, "document type does not support unapprove"))
		return
	}
	h.transition(c, h.unapprover.Unapprove)
}

// transition runs a status change and returns the updated document.
func (h *BaseDocumentHandler[T, CreateDTO, UpdateDTO]) transition(c *gin.Context, fn func(context.Context, id.ID) error) {
	ctx := c.Request.Context()

	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := fn(ctx, docID); err != nil {
		h.Error(c, err)
		return
	}

	doc, err := h.service.GetByID(ctx, docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, h.mapToDTO(doc))
}

// RegisterRoutes registers standard routes.
func (h *BaseDocumentHandler[T, CreateDTO, UpdateDTO]) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/:id/approve", h.Approve)
	rg.POST("/:id/cancel", h.Cancel)
	if h.unapprover != nil {
		rg.POST("/:id/unapprove", h.Unapprove)
	}
}
