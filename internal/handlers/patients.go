package handlers

import (
	"github.com/gin-gonic/gin"

	"clinic-app-server/internal/models"
	"clinic-app-server/internal/utils"
	"clinic-app-server/internal/workflow"
)

// PatientHandler exposes the patient registry: NIK lookup for the front desk
// and the patient's own record and history.
type PatientHandler struct {
	Store workflow.Store
}

// NewPatientHandler creates a new PatientHandler.
func NewPatientHandler(store workflow.Store) *PatientHandler {
	return &PatientHandler{Store: store}
}

// GetPatients lists patients, or looks one up by NIK when the query
// parameter is present (the front desk's pre-fill search).
func (h *PatientHandler) GetPatients(c *gin.Context) {
	ctx := c.Request.Context()

	if nik := c.Query("nik"); nik != "" {
		patient, err := h.Store.PatientByNIK(ctx, nik)
		if err != nil {
			respondEngineError(c, err)
			return
		}
		utils.Success(c, "Patient found", patient)
		return
	}

	patients, err := h.Store.Patients(ctx)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	utils.Success(c, "Patients fetched successfully", patients)
}

// GetPatientByID fetches a single patient record.
func (h *PatientHandler) GetPatientByID(c *gin.Context) {
	patient, err := h.Store.Patient(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondEngineError(c, err)
		return
	}

	utils.Success(c, "Patient fetched successfully", patient)
}

// UpdatePatientRequest represents the request body for admin patient edits.
type UpdatePatientRequest struct {
	FullName    string `json:"fullName"`
	DateOfBirth string `json:"dateOfBirth"`
	Gender      string `json:"gender"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	UserID      string `json:"userId"`
}

// UpdatePatient handles admin corrections to a patient record. The NIK is
// the natural key and cannot be changed here.
func (h *PatientHandler) UpdatePatient(c *gin.Context) {
	var req UpdatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil { // partial updates
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	patient, err := h.Store.Patient(ctx, c.Param("id"))
	if err != nil {
		respondEngineError(c, err)
		return
	}

	if req.FullName != "" {
		patient.FullName = req.FullName
	}
	if req.DateOfBirth != "" {
		patient.DateOfBirth = req.DateOfBirth
	}
	if req.Gender != "" {
		patient.Gender = req.Gender
	}
	if req.Address != "" {
		patient.Address = req.Address
	}
	if req.Phone != "" {
		patient.Phone = req.Phone
	}
	if req.UserID != "" {
		patient.UserID = req.UserID
	}

	if err := h.Store.SavePatient(ctx, patient); err != nil {
		respondEngineError(c, err)
		return
	}

	utils.Success(c, "Patient updated successfully", patient)
}

// GetMyHistory returns the examination history of the logged-in patient.
func (h *PatientHandler) GetMyHistory(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if actor.Role != models.RolePatient {
		utils.Forbidden(c, "Only patients have an examination history")
		return
	}

	ctx := c.Request.Context()
	patient, err := h.Store.PatientByUser(ctx, actor.UserID)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	records, err := h.Store.MedicalRecordsByPatient(ctx, patient.ID)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	utils.Success(c, "Examination history fetched successfully", records)
}
