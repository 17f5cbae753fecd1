package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"clinic-app-server/internal/models"
	"clinic-app-server/internal/utils"
	"clinic-app-server/internal/workflow"
)

// PaymentHandler exposes billing: totals, direct finalization by staff,
// patient receipts and the owner's daily report.
type PaymentHandler struct {
	Engine *workflow.Engine
	Store  workflow.Store
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(engine *workflow.Engine, store workflow.Store) *PaymentHandler {
	return &PaymentHandler{Engine: engine, Store: store}
}

// GetVisitTotal computes the bill for a visit without settling it.
func (h *PaymentHandler) GetVisitTotal(c *gin.Context) {
	total, err := h.Engine.ComputeTotal(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondEngineError(c, err)
		return
	}

	utils.Success(c, "Visit total computed", gin.H{"amountMinor": total})
}

// FinalizePaymentRequest represents the request body for settling a visit.
type FinalizePaymentRequest struct {
	Method      models.PaymentMethod `json:"method" binding:"required,oneof=cash transfer"`
	AmountMinor int64                `json:"amountMinor"` // optional staff override
}

// FinalizePayment handles administrative staff settling a visit directly,
// typically one that needed no medicine.
func (h *PaymentHandler) FinalizePayment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req FinalizePaymentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	payment, err := h.Engine.Finalize(c.Request.Context(), actor, c.Param("id"), req.Method, req.AmountMinor)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	utils.Success(c, "Payment finalized", payment)
}

// GetDayPayments lists the payments of one calendar day for the cashier view.
func (h *PaymentHandler) GetDayPayments(c *gin.Context) {
	ctx := c.Request.Context()
	date := c.DefaultQuery("date", time.Now().Format(workflow.DateLayout))

	appts, err := h.Store.AppointmentsByDate(ctx, date)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	var payments []models.Payment
	for _, appt := range appts {
		payment, err := h.Store.PaymentByAppointment(ctx, appt.ID)
		if errors.Is(err, workflow.ErrNotFound) {
			continue
		}
		if err != nil {
			respondEngineError(c, err)
			return
		}
		payments = append(payments, *payment)
	}

	utils.Success(c, "Payments fetched successfully", payments)
}

// GetMyReceipts returns the logged-in patient's payment receipts.
func (h *PaymentHandler) GetMyReceipts(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	patient, err := h.Store.PatientByUser(ctx, actor.UserID)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	appts, err := h.Store.AppointmentsByPatient(ctx, patient.ID)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	var receipts []models.Payment
	for _, appt := range appts {
		payment, err := h.Store.PaymentByAppointment(ctx, appt.ID)
		if errors.Is(err, workflow.ErrNotFound) {
			continue
		}
		if err != nil {
			respondEngineError(c, err)
			return
		}
		receipts = append(receipts, *payment)
	}

	utils.Success(c, "Receipts fetched successfully", receipts)
}

// GetDailyReport summarizes one day of clinic activity for the owner and
// admin dashboards.
func (h *PaymentHandler) GetDailyReport(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	date := c.DefaultQuery("date", time.Now().Format(workflow.DateLayout))
	report, err := h.Engine.Report(c.Request.Context(), actor, date)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	utils.Success(c, "Daily report computed", report)
}
