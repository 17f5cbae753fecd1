package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"clinic-app-server/internal/middleware"
	"clinic-app-server/internal/utils"
	"clinic-app-server/internal/workflow"
)

// actorFromContext builds the engine actor from the authenticated request.
func actorFromContext(c *gin.Context) (workflow.Actor, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return workflow.Actor{}, false
	}
	role, ok := middleware.GetUserRoleFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User role missing from token")
		return workflow.Actor{}, false
	}
	return workflow.Actor{UserID: userID, Role: role}, true
}

// respondEngineError maps the engine's error taxonomy onto HTTP responses so
// every handler surfaces the same status codes for the same failures.
func respondEngineError(c *gin.Context, err error) {
	var stockErr *workflow.InsufficientStockError
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, workflow.ErrForbidden):
		utils.Forbidden(c, err.Error())
	case errors.Is(err, workflow.ErrInvalidDate),
		errors.Is(err, workflow.ErrEmptyPrescription):
		utils.BadRequest(c, err.Error())
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{
			"status":     http.StatusConflict,
			"message":    "An error occurred",
			"error":      stockErr.Error(),
			"medicineId": stockErr.MedicineID,
			"available":  stockErr.Available,
			"requested":  stockErr.Requested,
		})
	case errors.Is(err, workflow.ErrIllegalTransition),
		errors.Is(err, workflow.ErrStaleState),
		errors.Is(err, workflow.ErrDuplicatePrescription),
		errors.Is(err, workflow.ErrAlreadyPaid):
		utils.Conflict(c, err.Error())
	default:
		utils.InternalServerError(c, err.Error())
	}
}
