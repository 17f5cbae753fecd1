package handlers

import (
	"github.com/gin-gonic/gin"

	"clinic-app-server/internal/models"
	"clinic-app-server/internal/utils"
	"clinic-app-server/internal/workflow"
)

// MedicineHandler exposes the pharmacy's inventory management. Stock is only
// ever decremented by the engine at fulfillment time; these endpoints cover
// catalogue upkeep and restocking.
type MedicineHandler struct {
	Store workflow.Store
}

// NewMedicineHandler creates a new MedicineHandler.
func NewMedicineHandler(store workflow.Store) *MedicineHandler {
	return &MedicineHandler{Store: store}
}

// GetMedicines lists the inventory.
func (h *MedicineHandler) GetMedicines(c *gin.Context) {
	medicines, err := h.Store.Medicines(c.Request.Context())
	if err != nil {
		respondEngineError(c, err)
		return
	}

	utils.Success(c, "Medicines fetched successfully", medicines)
}

// CreateMedicineRequest represents the request body for adding a medicine.
type CreateMedicineRequest struct {
	Name       string `json:"name" binding:"required"`
	PriceMinor int64  `json:"priceMinor" binding:"required,min=0"`
	Stock      int    `json:"stock" binding:"min=0"`
	Unit       string `json:"unit"`
}

// CreateMedicine handles adding a new inventory SKU.
func (h *MedicineHandler) CreateMedicine(c *gin.Context) {
	var req CreateMedicineRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	medicine := models.Medicine{
		Name:       req.Name,
		PriceMinor: req.PriceMinor,
		Stock:      req.Stock,
		Unit:       req.Unit,
	}
	if err := h.Store.SaveMedicine(c.Request.Context(), &medicine); err != nil {
		respondEngineError(c, err)
		return
	}

	utils.Created(c, "Medicine created successfully", medicine)
}

// UpdateMedicineRequest represents the request body for updating a medicine.
type UpdateMedicineRequest struct {
	Name       string `json:"name"`
	PriceMinor *int64 `json:"priceMinor"`
	Stock      *int   `json:"stock"`
	Unit       string `json:"unit"`
}

// UpdateMedicine handles catalogue edits and restocking.
func (h *MedicineHandler) UpdateMedicine(c *gin.Context) {
	var req UpdateMedicineRequest
	if err := c.ShouldBindJSON(&req); err != nil { // partial updates
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	medicine, err := h.Store.Medicine(ctx, c.Param("id"))
	if err != nil {
		respondEngineError(c, err)
		return
	}

	if req.Name != "" {
		medicine.Name = req.Name
	}
	if req.PriceMinor != nil {
		medicine.PriceMinor = *req.PriceMinor
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			utils.BadRequest(c, "Stock cannot be negative")
			return
		}
		medicine.Stock = *req.Stock
	}
	if req.Unit != "" {
		medicine.Unit = req.Unit
	}

	if err := h.Store.SaveMedicine(ctx, medicine); err != nil {
		respondEngineError(c, err)
		return
	}

	utils.Success(c, "Medicine updated successfully", medicine)
}
