package workflow_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-app-server/internal/models"
	"clinic-app-server/internal/workflow"
)

func TestComputeTotalFeeOnly(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	appt := registerVisit(t, engine, "3173010001", "Jane Doe")

	// No medical record yet: just the consultation fee.
	total, err := engine.ComputeTotal(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, testFee, total)

	// A record without a prescription changes nothing.
	examine(t, engine, appt.ID, false)
	total, err = engine.ComputeTotal(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, testFee, total)

	_, err = engine.ComputeTotal(ctx, "no-such-visit")
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestComputeTotalWithItems(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()

	appt := registerVisit(t, engine, "3173010001", "Jane Doe")
	record := examine(t, engine, appt.ID, true)

	firstID := seedMedicine(t, mem, "Amoxicillin 500mg", 1000, 50)
	secondID := seedMedicine(t, mem, "Paracetamol 500mg", 500, 50)

	_, err := engine.SubmitPrescription(ctx, doctor, record.ID, []workflow.ItemInput{
		{MedicineID: firstID, Quantity: 2},
		{MedicineID: secondID, Quantity: 3},
	})
	require.NoError(t, err)

	total, err := engine.ComputeTotal(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, testFee+2000+1500, total)
}

func TestFinalizeCreatesPaidPayment(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()

	appt := registerVisit(t, engine, "3173010001", "Jane Doe")
	examine(t, engine, appt.ID, false)

	payment, err := engine.Finalize(ctx, admin, appt.ID, models.PaymentCash, 0)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, payment.Status)
	assert.Equal(t, models.PaymentCash, payment.Method)
	assert.Equal(t, testFee, payment.AmountMinor)

	got, err := mem.PaymentByAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, got.ID)
}

func TestFinalizeTwiceFailsWithAlreadyPaid(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()

	appt := registerVisit(t, engine, "3173010001", "Jane Doe")
	examine(t, engine, appt.ID, false)

	first, err := engine.Finalize(ctx, admin, appt.ID, models.PaymentCash, 0)
	require.NoError(t, err)

	_, err = engine.Finalize(ctx, admin, appt.ID, models.PaymentTransfer, 0)
	assert.ErrorIs(t, err, workflow.ErrAlreadyPaid)

	// The original payment is untouched.
	got, err := mem.PaymentByAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, models.PaymentCash, got.Method)
	assert.Equal(t, first.AmountMinor, got.AmountMinor)
}

func TestFinalizeOverrideAmount(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	appt := registerVisit(t, engine, "3173010001", "Jane Doe")
	examine(t, engine, appt.ID, false)

	payment, err := engine.Finalize(ctx, admin, appt.ID, models.PaymentCash, 99000)
	require.NoError(t, err)
	assert.Equal(t, int64(99000), payment.AmountMinor)
}

func TestFinalizeAdminOnly(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	appt := registerVisit(t, engine, "3173010001", "Jane Doe")

	for _, actor := range []workflow.Actor{doctor, pharmacist, owner, patient} {
		_, err := engine.Finalize(ctx, actor, appt.ID, models.PaymentCash, 0)
		assert.ErrorIs(t, err, workflow.ErrForbidden, string(actor.Role))
	}
}

func TestFinalizeUnknownVisit(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.Finalize(context.Background(), admin, "no-such-visit", models.PaymentCash, 0)
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}
