package workflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-app-server/internal/models"
	"clinic-app-server/internal/workflow"
)

func TestCheckTransitionTable(t *testing.T) {
	tests := []struct {
		name string
		from models.AppointmentStatus
		to   models.AppointmentStatus
		role models.Role
		want error
	}{
		{"doctor starts examination", models.StatusWaitingDoctor, models.StatusInExamination, models.RoleDoctor, nil},
		{"doctor sends to pharmacy", models.StatusInExamination, models.StatusWaitingPharmacy, models.RoleDoctor, nil},
		{"doctor completes without medicine", models.StatusInExamination, models.StatusCompleted, models.RoleDoctor, nil},
		{"pharmacist prepares medicine", models.StatusWaitingPharmacy, models.StatusMedicineReady, models.RolePharmacist, nil},
		{"pharmacist hands over", models.StatusMedicineReady, models.StatusCompleted, models.RolePharmacist, nil},

		{"admin may not start examination", models.StatusWaitingDoctor, models.StatusInExamination, models.RoleAdmin, workflow.ErrForbidden},
		{"patient may not prepare medicine", models.StatusWaitingPharmacy, models.StatusMedicineReady, models.RolePatient, workflow.ErrForbidden},
		{"doctor may not hand over", models.StatusMedicineReady, models.StatusCompleted, models.RoleDoctor, workflow.ErrForbidden},

		{"no skipping the examination", models.StatusWaitingDoctor, models.StatusWaitingPharmacy, models.RoleDoctor, workflow.ErrIllegalTransition},
		{"no going backwards", models.StatusInExamination, models.StatusWaitingDoctor, models.RoleDoctor, workflow.ErrIllegalTransition},
		{"completed is terminal", models.StatusCompleted, models.StatusWaitingDoctor, models.RoleAdmin, workflow.ErrIllegalTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := workflow.CheckTransition(tt.from, tt.to, tt.role)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestCheckTransitionCancel(t *testing.T) {
	nonTerminal := []models.AppointmentStatus{
		models.StatusWaitingDoctor,
		models.StatusInExamination,
		models.StatusWaitingPharmacy,
		models.StatusMedicineReady,
	}
	for _, from := range nonTerminal {
		assert.NoError(t, workflow.CheckTransition(from, models.StatusCancelled, models.RoleAdmin), string(from))
		assert.NoError(t, workflow.CheckTransition(from, models.StatusCancelled, models.RolePatient), string(from))
		assert.ErrorIs(t, workflow.CheckTransition(from, models.StatusCancelled, models.RoleDoctor), workflow.ErrForbidden, string(from))
	}

	assert.ErrorIs(t, workflow.CheckTransition(models.StatusCompleted, models.StatusCancelled, models.RoleAdmin), workflow.ErrIllegalTransition)
	assert.ErrorIs(t, workflow.CheckTransition(models.StatusCancelled, models.StatusCancelled, models.RoleAdmin), workflow.ErrIllegalTransition)
}

func TestIllegalTransitionErrorDetail(t *testing.T) {
	err := workflow.CheckTransition(models.StatusCompleted, models.StatusInExamination, models.RoleDoctor)
	require.Error(t, err)

	var illegal *workflow.IllegalTransitionError
	require.ErrorAs(t, err, &illegal)
	assert.Equal(t, models.StatusCompleted, illegal.From)
	assert.Equal(t, models.StatusInExamination, illegal.To)
	assert.Equal(t, models.RoleDoctor, illegal.Role)
}

func TestLegalTransitions(t *testing.T) {
	assert.Equal(t,
		[]models.AppointmentStatus{models.StatusInExamination},
		workflow.LegalTransitions(models.StatusWaitingDoctor, models.RoleDoctor))

	assert.ElementsMatch(t,
		[]models.AppointmentStatus{models.StatusWaitingPharmacy, models.StatusCompleted},
		workflow.LegalTransitions(models.StatusInExamination, models.RoleDoctor))

	assert.Equal(t,
		[]models.AppointmentStatus{models.StatusCancelled},
		workflow.LegalTransitions(models.StatusWaitingDoctor, models.RoleAdmin))

	assert.Empty(t, workflow.LegalTransitions(models.StatusCompleted, models.RoleAdmin))
	assert.Empty(t, workflow.LegalTransitions(models.StatusWaitingDoctor, models.RoleOwner))
}
