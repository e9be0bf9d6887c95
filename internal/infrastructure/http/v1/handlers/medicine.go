package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pharmacore/internal/domain/catalogs/medicine"
	"pharmacore/internal/infrastructure/http/v1/dto"
)

// MedicineHandler handles HTTP requests for the Medicine catalog.
type MedicineHandler struct {
	*CatalogHandler[*medicine.Medicine, dto.CreateMedicineRequest, dto.UpdateMedicineRequest]
	service *medicine.Service
}

// NewMedicineHandler creates a new medicine handler.
func NewMedicineHandler(base *BaseHandler, service *medicine.Service) *MedicineHandler {
	cfg := CatalogHandlerConfig[*medicine.Medicine, dto.CreateMedicineRequest, dto.UpdateMedicineRequest]{
		Service:    service.CatalogService,
		EntityName: "medicine",
		MapCreateDTO: func(req dto.CreateMedicineRequest) *medicine.Medicine {
			return req.ToEntity()
		},
		MapUpdateDTO: func(req dto.UpdateMedicineRequest, existing *medicine.Medicine) *medicine.Medicine {
			req.ApplyTo(existing)
			return existing
		},
		MapToDTO: func(med *medicine.Medicine) any {
			return dto.FromMedicine(med)
		},
	}

	return &MedicineHandler{
		CatalogHandler: NewCatalogHandler(base, cfg),
		service:        service,
	}
}

// FindByBarcode handles GET /medicines/barcode/:barcode
func (h *MedicineHandler) FindByBarcode(c *gin.Context) {
	ctx := c.Request.Context()

	med, err := h.service.FindByBarcode(ctx, c.Param("barcode"))
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromMedicine(med))
}

// RegisterExtraRoutes registers medicine-specific routes beyond the
// standard catalog set.
func (h *MedicineHandler) RegisterExtraRoutes(rg *gin.RouterGroup) {
	rg.GET("/barcode/:barcode", h.FindByBarcode)
}
