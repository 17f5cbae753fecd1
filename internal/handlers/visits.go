package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"clinic-app-server/internal/models"
	"clinic-app-server/internal/utils"
	"clinic-app-server/internal/workflow"
)

// VisitHandler exposes the visit lifecycle: registration, the day queue,
// examinations and cancellation. Every status change goes through the engine.
type VisitHandler struct {
	Engine *workflow.Engine
	Store  workflow.Store
}

// NewVisitHandler creates a new VisitHandler.
func NewVisitHandler(engine *workflow.Engine, store workflow.Store) *VisitHandler {
	return &VisitHandler{Engine: engine, Store: store}
}

// RegisterVisitRequest represents the request body for registering a visit.
type RegisterVisitRequest struct {
	NIK         string `json:"nik" binding:"required"`
	FullName    string `json:"fullName" binding:"required"`
	DateOfBirth string `json:"dateOfBirth"`
	Gender      string `json:"gender"`
	Address     string `json:"address"`
	Phone       string `json:"phone" binding:"required"`
	DoctorID    string `json:"doctorId"`
	Date        string `json:"date" binding:"required"`
	Symptoms    string `json:"symptoms"`
}

// RegisterVisit handles opening a visit: patient upsert, queue number
// allocation and appointment creation.
func (h *VisitHandler) RegisterVisit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req RegisterVisitRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appt, err := h.Engine.RegisterVisit(c.Request.Context(), actor, workflow.RegisterVisitInput{
		NIK:         req.NIK,
		FullName:    req.FullName,
		DateOfBirth: req.DateOfBirth,
		Gender:      req.Gender,
		Address:     req.Address,
		Phone:       req.Phone,
		DoctorID:    req.DoctorID,
		Date:        req.Date,
		Symptoms:    req.Symptoms,
	})
	if err != nil {
		respondEngineError(c, err)
		return
	}

	utils.Created(c, "Visit registered successfully", appt)
}

// GetVisits handles fetching visits for the logged-in user. Patients see
// their own history, doctors their day queue, admins and owners a day listing.
func (h *VisitHandler) GetVisits(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	date := c.DefaultQuery("date", time.Now().Format(workflow.DateLayout))
	ctx := c.Request.Context()

	var appts []models.Appointment
	var err error

	switch actor.Role {
	case models.RolePatient:
		patient, perr := h.Store.PatientByUser(ctx, actor.UserID)
		if perr != nil {
			respondEngineError(c, perr)
			return
		}
		appts, err = h.Store.AppointmentsByPatient(ctx, patient.ID)
	case models.RoleDoctor:
		appts, err = h.Store.AppointmentsByDoctorDate(ctx, actor.UserID, date)
	case models.RoleAdmin, models.RoleOwner, models.RolePharmacist:
		appts, err = h.Store.AppointmentsByDate(ctx, date)
	default:
		utils.Forbidden(c, "User role not permitted to view visits")
		return
	}

	if err != nil {
		respondEngineError(c, err)
		return
	}

	utils.Success(c, "Visits fetched successfully", appts)
}

// GetVisitByID handles fetching a single visit.
func (h *VisitHandler) GetVisitByID(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	appt, err := h.Store.Appointment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondEngineError(c, err)
		return
	}

	if actor.Role == models.RolePatient && appt.Patient.UserID != actor.UserID {
		utils.Forbidden(c, "You are not authorized to view this visit")
		return
	}

	utils.Success(c, "Visit fetched successfully", appt)
}

// GetVisitActions returns the transitions the caller may trigger on the
// visit, so clients render only valid actions.
func (h *VisitHandler) GetVisitActions(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	actions, err := h.Engine.Actions(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondEngineError(c, err)
		return
	}

	utils.Success(c, "Legal actions fetched successfully", actions)
}

// CancelVisit handles cancelling a visit.
func (h *VisitHandler) CancelVisit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	if err := h.Engine.Cancel(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondEngineError(c, err)
		return
	}

	utils.Success(c, "Visit cancelled", nil)
}

// StartExamination handles a doctor calling the patient in.
func (h *VisitHandler) StartExamination(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	if err := h.Engine.StartExamination(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondEngineError(c, err)
		return
	}

	utils.Success(c, "Examination started", nil)
}

// CompleteExaminationRequest represents the doctor's examination outcome.
type CompleteExaminationRequest struct {
	Diagnosis         string `json:"diagnosis" binding:"required"`
	Notes             string `json:"notes"`
	NeedsPrescription bool   `json:"needsPrescription"`
}

// CompleteExamination handles a doctor signing off an examination, which
// creates the medical record and advances the visit.
func (h *VisitHandler) CompleteExamination(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req CompleteExaminationRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	record, err := h.Engine.CompleteExamination(c.Request.Context(), actor, c.Param("id"), workflow.ExamInput{
		Diagnosis:         req.Diagnosis,
		Notes:             req.Notes,
		NeedsPrescription: req.NeedsPrescription,
	})
	if err != nil {
		respondEngineError(c, err)
		return
	}

	utils.Created(c, "Examination completed", record)
}
