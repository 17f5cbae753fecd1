package workflow_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-app-server/internal/models"
	"clinic-app-server/internal/store"
	"clinic-app-server/internal/workflow"
)

const (
	testDay = "2025-11-25"
	testFee = int64(150000)
)

var (
	admin      = workflow.Actor{UserID: "user-admin", Role: models.RoleAdmin}
	doctor     = workflow.Actor{UserID: "user-doctor", Role: models.RoleDoctor}
	pharmacist = workflow.Actor{UserID: "user-pharmacist", Role: models.RolePharmacist}
	owner      = workflow.Actor{UserID: "user-owner", Role: models.RoleOwner}
	patient    = workflow.Actor{UserID: "user-patient", Role: models.RolePatient}
)

// newTestEngine pins the clock to the morning of testDay so visit dates in
// the fixtures stay valid regardless of when the tests run.
func newTestEngine(t *testing.T) (*workflow.Engine, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	engine := workflow.NewEngine(mem, nil, testFee, 30)
	engine.SetNow(func() time.Time {
		return time.Date(2025, 11, 25, 9, 0, 0, 0, time.Local)
	})
	return engine, mem
}

func registerVisit(t *testing.T, engine *workflow.Engine, nik, name string) *models.Appointment {
	t.Helper()
	appt, err := engine.RegisterVisit(context.Background(), admin, workflow.RegisterVisitInput{
		NIK:      nik,
		FullName: name,
		Date:     testDay,
		Symptoms: "headache",
	})
	require.NoError(t, err)
	return appt
}

// seedMedicine inserts an inventory SKU and returns its ID.
func seedMedicine(t *testing.T, mem *store.Memory, name string, priceMinor int64, stock int) string {
	t.Helper()
	med := &models.Medicine{Name: name, PriceMinor: priceMinor, Stock: stock, Unit: "tablet"}
	require.NoError(t, mem.SaveMedicine(context.Background(), med))
	return med.ID
}

// examine moves a registered visit through start and complete for the
// given doctor.
func examine(t *testing.T, engine *workflow.Engine, apptID string, needsPrescription bool) *models.MedicalRecord {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, engine.StartExamination(ctx, doctor, apptID))
	record, err := engine.CompleteExamination(ctx, doctor, apptID, workflow.ExamInput{
		Diagnosis:         "common cold",
		NeedsPrescription: needsPrescription,
	})
	require.NoError(t, err)
	return record
}

func TestRegisterVisitAssignsSequentialQueueNumbers(t *testing.T) {
	engine, _ := newTestEngine(t)

	for i := 1; i <= 5; i++ {
		appt := registerVisit(t, engine, fmt.Sprintf("317301%05d", i), fmt.Sprintf("Patient %d", i))
		assert.Equal(t, i, appt.QueueNumber)
		assert.Equal(t, models.StatusWaitingDoctor, appt.Status)
	}
}

func TestRegisterVisitQueueScopedPerDate(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	first := registerVisit(t, engine, "3173010001", "Jane Doe")
	assert.Equal(t, 1, first.QueueNumber)

	other, err := engine.RegisterVisit(ctx, admin, workflow.RegisterVisitInput{
		NIK:      "3173010002",
		FullName: "John Doe",
		Date:     "2025-11-26",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, other.QueueNumber)
}

func TestRegisterVisitConcurrentQueueIsGapless(t *testing.T) {
	engine, mem := newTestEngine(t)
	const n = 20

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.RegisterVisit(context.Background(), admin, workflow.RegisterVisitInput{
				NIK:      fmt.Sprintf("317302%05d", i),
				FullName: fmt.Sprintf("Patient %d", i),
				Date:     testDay,
			})
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		require.NoError(t, err, "registration %d", i)
	}

	appts, err := mem.AppointmentsByDate(context.Background(), testDay)
	require.NoError(t, err)
	require.Len(t, appts, n)

	numbers := make([]int, 0, n)
	for _, a := range appts {
		numbers = append(numbers, a.QueueNumber)
	}
	sort.Ints(numbers)
	for i, q := range numbers {
		assert.Equal(t, i+1, q)
	}
}

func TestRegisterVisitUpsertsPatientByNIK(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()

	first := registerVisit(t, engine, "3173010001", "Jane Doe")

	// Same NIK again with corrected details reuses the patient record.
	second, err := engine.RegisterVisit(ctx, admin, workflow.RegisterVisitInput{
		NIK:      "3173010001",
		FullName: "Jane A. Doe",
		Date:     testDay,
	})
	require.NoError(t, err)
	assert.Equal(t, first.PatientID, second.PatientID)

	p, err := mem.Patient(ctx, first.PatientID)
	require.NoError(t, err)
	assert.Equal(t, "Jane A. Doe", p.FullName)

	patients, err := mem.Patients(ctx)
	require.NoError(t, err)
	assert.Len(t, patients, 1)
}

func TestRegisterVisitDateValidation(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name string
		date string
	}{
		{"yesterday", "2025-11-24"},
		{"beyond the window", "2025-12-26"},
		{"not a date", "tomorrow"},
		{"wrong layout", "25-11-2025"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.RegisterVisit(ctx, admin, workflow.RegisterVisitInput{
				NIK: "3173010001", FullName: "Jane Doe", Date: tt.date,
			})
			assert.ErrorIs(t, err, workflow.ErrInvalidDate)
		})
	}

	// Today and the last day of the window are both fine.
	_, err := engine.RegisterVisit(ctx, admin, workflow.RegisterVisitInput{
		NIK: "3173010002", FullName: "John Doe", Date: "2025-12-25",
	})
	assert.NoError(t, err)
}

func TestRegisterVisitRoleGuard(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	for _, actor := range []workflow.Actor{doctor, pharmacist, owner} {
		_, err := engine.RegisterVisit(ctx, actor, workflow.RegisterVisitInput{
			NIK: "3173010001", FullName: "Jane Doe", Date: testDay,
		})
		assert.ErrorIs(t, err, workflow.ErrForbidden, string(actor.Role))
	}
}

func TestStartExaminationClaimsVisit(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()

	appt := registerVisit(t, engine, "3173010001", "Jane Doe")
	require.NoError(t, engine.StartExamination(ctx, doctor, appt.ID))

	got, err := mem.Appointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInExamination, got.Status)
	assert.Equal(t, doctor.UserID, got.DoctorID)

	// A second doctor cannot take over a claimed visit.
	other := workflow.Actor{UserID: "user-doctor-2", Role: models.RoleDoctor}
	assert.ErrorIs(t, engine.StartExamination(ctx, other, appt.ID), workflow.ErrIllegalTransition)
}

func TestStartExaminationAssignedDoctorOnly(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	appt, err := engine.RegisterVisit(ctx, admin, workflow.RegisterVisitInput{
		NIK: "3173010001", FullName: "Jane Doe", Date: testDay, DoctorID: doctor.UserID,
	})
	require.NoError(t, err)

	other := workflow.Actor{UserID: "user-doctor-2", Role: models.RoleDoctor}
	assert.ErrorIs(t, engine.StartExamination(ctx, other, appt.ID), workflow.ErrForbidden)
	assert.NoError(t, engine.StartExamination(ctx, doctor, appt.ID))
}

func TestCompleteExaminationWithoutPrescription(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()

	appt := registerVisit(t, engine, "3173010001", "Jane Doe")
	record := examine(t, engine, appt.ID, false)

	got, err := mem.Appointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.False(t, record.NeedsPrescription)

	_, err = mem.PrescriptionByMedicalRecord(ctx, record.ID)
	assert.ErrorIs(t, err, workflow.ErrNotFound)

	total, err := engine.ComputeTotal(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, testFee, total)
}

func TestCompleteExaminationWithPrescriptionNeeded(t *testing.T) {
	engine, mem := newTestEngine(t)

	appt := registerVisit(t, engine, "3173010002", "John Doe")
	examine(t, engine, appt.ID, true)

	got, err := mem.Appointment(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaitingPharmacy, got.Status)
}

func TestCompleteExaminationOtherDoctorForbidden(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	appt := registerVisit(t, engine, "3173010001", "Jane Doe")
	require.NoError(t, engine.StartExamination(ctx, doctor, appt.ID))

	other := workflow.Actor{UserID: "user-doctor-2", Role: models.RoleDoctor}
	_, err := engine.CompleteExamination(ctx, other, appt.ID, workflow.ExamInput{Diagnosis: "flu"})
	assert.ErrorIs(t, err, workflow.ErrForbidden)
}

func TestCompleteExaminationTwiceIsStale(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	appt := registerVisit(t, engine, "3173010001", "Jane Doe")
	examine(t, engine, appt.ID, true)

	_, err := engine.CompleteExamination(ctx, doctor, appt.ID, workflow.ExamInput{Diagnosis: "flu"})
	assert.ErrorIs(t, err, workflow.ErrIllegalTransition)
}

func TestCancelVisit(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()

	appt := registerVisit(t, engine, "3173010001", "Jane Doe")
	require.NoError(t, engine.Cancel(ctx, admin, appt.ID))

	got, err := mem.Appointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)

	// Terminal now, so a second cancel is illegal.
	assert.ErrorIs(t, engine.Cancel(ctx, admin, appt.ID), workflow.ErrIllegalTransition)
}

func TestCancelVisitPatientOwnershipGuard(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()

	appt := registerVisit(t, engine, "3173010001", "Jane Doe")

	// Unlinked patient records cannot be cancelled by any patient account.
	assert.ErrorIs(t, engine.Cancel(ctx, patient, appt.ID), workflow.ErrForbidden)

	p, err := mem.Patient(ctx, appt.PatientID)
	require.NoError(t, err)
	p.UserID = patient.UserID
	require.NoError(t, mem.SavePatient(ctx, p))

	stranger := workflow.Actor{UserID: "user-someone-else", Role: models.RolePatient}
	assert.ErrorIs(t, engine.Cancel(ctx, stranger, appt.ID), workflow.ErrForbidden)
	assert.NoError(t, engine.Cancel(ctx, patient, appt.ID))
}

func TestCancelVisitDoctorForbidden(t *testing.T) {
	engine, _ := newTestEngine(t)

	appt := registerVisit(t, engine, "3173010001", "Jane Doe")
	assert.ErrorIs(t, engine.Cancel(context.Background(), doctor, appt.ID), workflow.ErrForbidden)
}

func TestActions(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	appt := registerVisit(t, engine, "3173010001", "Jane Doe")

	actions, err := engine.Actions(ctx, doctor, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.AppointmentStatus{models.StatusInExamination}, actions)

	actions, err = engine.Actions(ctx, pharmacist, appt.ID)
	require.NoError(t, err)
	assert.Empty(t, actions)

	_, err = engine.Actions(ctx, admin, "no-such-visit")
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestReport(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()

	done := registerVisit(t, engine, "3173010001", "Jane Doe")
	examine(t, engine, done.ID, false)
	_, err := engine.Finalize(ctx, admin, done.ID, models.PaymentCash, 0)
	require.NoError(t, err)

	cancelled := registerVisit(t, engine, "3173010002", "John Doe")
	require.NoError(t, engine.Cancel(ctx, admin, cancelled.ID))

	registerVisit(t, engine, "3173010003", "Mary Major")

	report, err := engine.Report(ctx, owner, testDay)
	require.NoError(t, err)
	assert.Equal(t, testDay, report.Date)
	assert.Equal(t, 3, report.TotalVisits)
	assert.Equal(t, 1, report.Completed)
	assert.Equal(t, 1, report.Cancelled)
	assert.Equal(t, testFee, report.RevenueMinor)

	// Pending payments stay out of revenue.
	waiting, err := mem.AppointmentsByDate(ctx, testDay)
	require.NoError(t, err)
	require.Len(t, waiting, 3)

	_, err = engine.Report(ctx, doctor, testDay)
	assert.ErrorIs(t, err, workflow.ErrForbidden)

	_, err = engine.Report(ctx, owner, "nonsense")
	assert.ErrorIs(t, err, workflow.ErrInvalidDate)
}

func TestJaneScenario(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()

	jane := registerVisit(t, engine, "3173014401", "Jane")
	assert.Equal(t, 1, jane.QueueNumber)

	record := examine(t, engine, jane.ID, false)

	got, err := mem.Appointment(ctx, jane.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)

	_, err = mem.PrescriptionByMedicalRecord(ctx, record.ID)
	assert.ErrorIs(t, err, workflow.ErrNotFound)

	total, err := engine.ComputeTotal(ctx, jane.ID)
	require.NoError(t, err)
	assert.Equal(t, testFee, total)
}

func TestJohnScenario(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()

	registerVisit(t, engine, "3173014401", "Jane")
	john := registerVisit(t, engine, "3173014402", "John")
	assert.Equal(t, 2, john.QueueNumber)

	record := examine(t, engine, john.ID, true)

	medID := seedMedicine(t, mem, "Paracetamol 500mg", 2500, 10)
	prescription, err := engine.SubmitPrescription(ctx, doctor, record.ID, []workflow.ItemInput{
		{MedicineID: medID, Quantity: 3, Instructions: "3x1 after meals"},
	})
	require.NoError(t, err)

	require.NoError(t, engine.Fulfill(ctx, pharmacist, prescription.ID))

	med, err := mem.Medicine(ctx, medID)
	require.NoError(t, err)
	assert.Equal(t, 7, med.Stock)

	got, err := mem.Appointment(ctx, john.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusMedicineReady, got.Status)

	payment, err := engine.HandOver(ctx, pharmacist, john.ID, models.PaymentCash)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, payment.Status)
	assert.Equal(t, testFee+3*2500, payment.AmountMinor)

	got, err = mem.Appointment(ctx, john.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
}
