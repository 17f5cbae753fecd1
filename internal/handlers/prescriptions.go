package handlers

import (
	"github.com/gin-gonic/gin"

	"clinic-app-server/internal/models"
	"clinic-app-server/internal/utils"
	"clinic-app-server/internal/workflow"
)

// PrescriptionHandler exposes the doctor's drug orders and the pharmacy's
// fulfillment and hand-over flow.
type PrescriptionHandler struct {
	Engine *workflow.Engine
	Store  workflow.Store
}

// NewPrescriptionHandler creates a new PrescriptionHandler.
func NewPrescriptionHandler(engine *workflow.Engine, store workflow.Store) *PrescriptionHandler {
	return &PrescriptionHandler{Engine: engine, Store: store}
}

// PrescriptionItemRequest is one drug line in a prescription submission.
type PrescriptionItemRequest struct {
	MedicineID   string `json:"medicineId" binding:"required,uuid"`
	Quantity     int    `json:"quantity" binding:"required,min=1"`
	Instructions string `json:"instructions"`
}

// SubmitPrescriptionRequest represents the request body for submitting a
// prescription against a medical record.
type SubmitPrescriptionRequest struct {
	MedicalRecordID string                    `json:"medicalRecordId" binding:"required,uuid"`
	Items           []PrescriptionItemRequest `json:"items" binding:"required,min=1,dive"`
}

// SubmitPrescription handles a doctor submitting a drug order.
func (h *PrescriptionHandler) SubmitPrescription(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req SubmitPrescriptionRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	items := make([]workflow.ItemInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = workflow.ItemInput{
			MedicineID:   item.MedicineID,
			Quantity:     item.Quantity,
			Instructions: item.Instructions,
		}
	}

	prescription, err := h.Engine.SubmitPrescription(c.Request.Context(), actor, req.MedicalRecordID, items)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	utils.Created(c, "Prescription submitted successfully", prescription)
}

// GetPendingPrescriptions lists the prescriptions awaiting fulfillment for
// the pharmacy dashboard.
func (h *PrescriptionHandler) GetPendingPrescriptions(c *gin.Context) {
	prescriptions, err := h.Store.PrescriptionsByStatus(c.Request.Context(), models.PrescriptionProcessed)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	utils.Success(c, "Pending prescriptions fetched successfully", prescriptions)
}

// GetPrescriptionByID fetches one prescription with its items.
func (h *PrescriptionHandler) GetPrescriptionByID(c *gin.Context) {
	prescription, err := h.Store.Prescription(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondEngineError(c, err)
		return
	}

	utils.Success(c, "Prescription fetched successfully", prescription)
}

// FulfillPrescription handles the pharmacist dispensing a prescription:
// stock is decremented per line and the visit moves to medicine_ready, all
// or nothing.
func (h *PrescriptionHandler) FulfillPrescription(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	if err := h.Engine.Fulfill(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondEngineError(c, err)
		return
	}

	utils.Success(c, "Prescription fulfilled", nil)
}

// HandOverRequest represents the request body for handing medicine over.
type HandOverRequest struct {
	Method models.PaymentMethod `json:"method" binding:"required,oneof=cash transfer"`
}

// HandOver handles giving the prepared medicine to the patient, which also
// finalizes billing and completes the visit.
func (h *PrescriptionHandler) HandOver(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req HandOverRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	payment, err := h.Engine.HandOver(c.Request.Context(), actor, c.Param("id"), req.Method)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	utils.Success(c, "Medicine handed over and visit completed", payment)
}
