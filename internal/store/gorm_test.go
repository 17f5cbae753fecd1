package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	driver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"clinic-app-server/internal/models"
	"clinic-app-server/internal/workflow"
)

// newMockGorm opens GORM over a sqlmock connection. Default transactions are
// skipped so single-statement expectations stay readable; Transact still
// opens explicit ones.
func newMockGorm(t *testing.T) (*Gorm, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      conn,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)
	return NewGorm(db), mock
}

func TestGormUpdateAppointmentStatusStale(t *testing.T) {
	s, mock := newMockGorm(t)

	// The CAS update matches no row, and the follow-up count finds the
	// appointment, so the status must have moved concurrently.
	mock.ExpectExec("UPDATE `appointments` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `appointments`").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(1))

	err := s.UpdateAppointmentStatus(context.Background(), "appt-1",
		models.StatusWaitingDoctor, models.StatusInExamination)
	assert.ErrorIs(t, err, workflow.ErrStaleState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUpdateAppointmentStatusMissing(t *testing.T) {
	s, mock := newMockGorm(t)

	mock.ExpectExec("UPDATE `appointments` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `appointments`").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))

	err := s.UpdateAppointmentStatus(context.Background(), "appt-1",
		models.StatusWaitingDoctor, models.StatusInExamination)
	assert.ErrorIs(t, err, workflow.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUpdateAppointmentStatusSuccess(t *testing.T) {
	s, mock := newMockGorm(t)

	mock.ExpectExec("UPDATE `appointments` SET").
		WithArgs(string(models.StatusInExamination), sqlmock.AnyArg(), "appt-1", string(models.StatusWaitingDoctor)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.UpdateAppointmentStatus(context.Background(), "appt-1",
		models.StatusWaitingDoctor, models.StatusInExamination)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDecrementStockGuarded(t *testing.T) {
	s, mock := newMockGorm(t)

	// The guarded UPDATE declines, the re-read reveals the shortfall.
	mock.ExpectExec("UPDATE `medicines` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT \\* FROM `medicines`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price_minor", "stock", "unit"}).
			AddRow("med-1", "Paracetamol 500mg", 2500, 2, "tablet"))

	err := s.DecrementStock(context.Background(), "med-1", 6)
	require.ErrorIs(t, err, workflow.ErrInsufficientStock)

	var short *workflow.InsufficientStockError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, "med-1", short.MedicineID)
	assert.Equal(t, 2, short.Available)
	assert.Equal(t, 6, short.Requested)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDecrementStockSuccess(t *testing.T) {
	s, mock := newMockGorm(t)

	mock.ExpectExec("UPDATE `medicines` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, s.DecrementStock(context.Background(), "med-1", 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormNotFoundTranslation(t *testing.T) {
	s, mock := newMockGorm(t)

	mock.ExpectQuery("SELECT \\* FROM `patients`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "nik", "full_name"}))

	_, err := s.Patient(context.Background(), "missing")
	assert.ErrorIs(t, err, workflow.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCreateAppointmentDuplicateQueueNumber(t *testing.T) {
	s, mock := newMockGorm(t)

	mock.ExpectExec("INSERT INTO `appointments`").
		WillReturnError(&driver.MySQLError{Number: 1062, Message: "Duplicate entry '2025-11-25-1'"})

	err := s.CreateAppointment(context.Background(), &models.Appointment{
		PatientID:   "p1",
		Date:        "2025-11-25",
		QueueNumber: 1,
		Status:      models.StatusWaitingDoctor,
	})
	assert.ErrorIs(t, err, workflow.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCreateMedicalRecordDuplicate(t *testing.T) {
	s, mock := newMockGorm(t)

	mock.ExpectExec("INSERT INTO `medical_records`").
		WillReturnError(&driver.MySQLError{Number: 1062, Message: "Duplicate entry 'appt-1'"})

	err := s.CreateMedicalRecord(context.Background(), &models.MedicalRecord{
		AppointmentID: "appt-1",
		PatientID:     "p1",
		DoctorID:      "doc-1",
	})
	assert.ErrorIs(t, err, workflow.ErrStaleState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormTransactRollsBackOnError(t *testing.T) {
	s, mock := newMockGorm(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `medicines` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := s.Transact(context.Background(), func(tx workflow.Store) error {
		if err := tx.DecrementStock(context.Background(), "med-1", 3); err != nil {
			return err
		}
		return workflow.ErrStaleState
	})
	assert.ErrorIs(t, err, workflow.ErrStaleState)
	assert.NoError(t, mock.ExpectationsWereMet())
}
