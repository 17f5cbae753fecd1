package workflow

import (
	"clinic-app-server/internal/models"
)

// transition is one legal move in the visit lifecycle together with the roles
// allowed to trigger it. Cancellation is not in the table: it is legal from
// any non-terminal state and is handled by CheckTransition directly.
type transition struct {
	From  models.AppointmentStatus
	To    models.AppointmentStatus
	Roles []models.Role
}

// transitions is the single authority on the visit lifecycle. Handlers never
// write an appointment status without going through this table.
var transitions = []transition{
	{models.StatusWaitingDoctor, models.StatusInExamination, []models.Role{models.RoleDoctor}},
	{models.StatusInExamination, models.StatusWaitingPharmacy, []models.Role{models.RoleDoctor}},
	{models.StatusInExamination, models.StatusCompleted, []models.Role{models.RoleDoctor}},
	{models.StatusWaitingPharmacy, models.StatusMedicineReady, []models.Role{models.RolePharmacist}},
	{models.StatusMedicineReady, models.StatusCompleted, []models.Role{models.RolePharmacist}},
}

// cancelRoles are the actors allowed to cancel a visit.
var cancelRoles = []models.Role{models.RoleAdmin, models.RolePatient}

// CheckTransition reports whether role may move an appointment from one
// status to another. An off-table pair yields an IllegalTransitionError with
// the attempted move; an on-table pair attempted by the wrong role yields
// ErrForbidden.
func CheckTransition(from, to models.AppointmentStatus, role models.Role) error {
	if to == models.StatusCancelled {
		if from.Terminal() {
			return &IllegalTransitionError{From: from, To: to, Role: role}
		}
		if !roleIn(role, cancelRoles) {
			return ErrForbidden
		}
		return nil
	}

	for _, t := range transitions {
		if t.From == from && t.To == to {
			if !roleIn(role, t.Roles) {
				return ErrForbidden
			}
			return nil
		}
	}
	return &IllegalTransitionError{From: from, To: to, Role: role}
}

// LegalTransitions returns every status the given role may move an
// appointment in `from` to. Callers use it to render only valid actions,
// replacing ad hoc per-page checks.
func LegalTransitions(from models.AppointmentStatus, role models.Role) []models.AppointmentStatus {
	var out []models.AppointmentStatus
	for _, t := range transitions {
		if t.From == from && roleIn(role, t.Roles) {
			out = append(out, t.To)
		}
	}
	if !from.Terminal() && roleIn(role, cancelRoles) {
		out = append(out, models.StatusCancelled)
	}
	return out
}

func roleIn(role models.Role, roles []models.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
