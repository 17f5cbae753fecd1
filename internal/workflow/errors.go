package workflow

import (
	"errors"
	"fmt"

	"clinic-app-server/internal/models"
)

// Sentinel errors returned by the engine. All of them are recoverable by the
// caller and map to a user-facing message at the HTTP layer.
var (
	ErrNotFound              = errors.New("record not found")
	ErrInvalidDate           = errors.New("invalid visit date")
	ErrForbidden             = errors.New("actor role not authorized for this action")
	ErrDuplicatePrescription = errors.New("a prescription already exists for this medical record")
	ErrEmptyPrescription     = errors.New("prescription must contain at least one item")
	ErrAlreadyPaid           = errors.New("visit has already been paid")
	ErrStaleState            = errors.New("appointment was modified by a concurrent actor")

	// ErrIllegalTransition and ErrInsufficientStock are matched with errors.Is;
	// the concrete detail lives in IllegalTransitionError / InsufficientStockError.
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrInsufficientStock = errors.New("insufficient medicine stock")

	// ErrConflict signals a unique-index collision inside a transaction
	// (queue number or patient NIK raced with a concurrent insert). The engine
	// retries; it never reaches callers.
	ErrConflict = errors.New("concurrent write conflict")
)

// IllegalTransitionError reports an attempted move outside the transition table.
type IllegalTransitionError struct {
	From models.AppointmentStatus
	To   models.AppointmentStatus
	Role models.Role
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition %s -> %s by role %s", e.From, e.To, e.Role)
}

func (e *IllegalTransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

// InsufficientStockError reports the first prescription line that could not be
// covered by inventory. The whole fulfillment aborts with zero mutations.
type InsufficientStockError struct {
	MedicineID string
	Available  int
	Requested  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for medicine %s: available %d, requested %d",
		e.MedicineID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
