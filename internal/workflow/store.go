package workflow

import (
	"context"

	"clinic-app-server/internal/models"
)

// Store is the entity-store boundary the engine runs against. Implementations
// must map missing rows to ErrNotFound, unique-index collisions to ErrConflict
// (ErrDuplicatePrescription / ErrAlreadyPaid for their tables) and zero-row
// compare-and-set updates to ErrStaleState.
//
// Transact runs fn against a store whose writes are applied all-or-nothing;
// every multi-step transition in the engine goes through it.
type Store interface {
	Transact(ctx context.Context, fn func(tx Store) error) error

	Patient(ctx context.Context, id string) (*models.Patient, error)
	PatientByNIK(ctx context.Context, nik string) (*models.Patient, error)
	PatientByUser(ctx context.Context, userID string) (*models.Patient, error)
	Patients(ctx context.Context) ([]models.Patient, error)
	SavePatient(ctx context.Context, p *models.Patient) error

	Appointment(ctx context.Context, id string) (*models.Appointment, error)
	AppointmentsByDate(ctx context.Context, date string) ([]models.Appointment, error)
	AppointmentsByPatient(ctx context.Context, patientID string) ([]models.Appointment, error)
	AppointmentsByDoctorDate(ctx context.Context, doctorID, date string) ([]models.Appointment, error)
	AppointmentCountByDate(ctx context.Context, date string) (int64, error)
	CreateAppointment(ctx context.Context, a *models.Appointment) error
	// UpdateAppointmentStatus is a status compare-and-set: it only applies when
	// the row is still in `from`, returning ErrStaleState otherwise.
	UpdateAppointmentStatus(ctx context.Context, id string, from, to models.AppointmentStatus) error
	// ClaimForExamination atomically assigns the doctor and moves
	// waiting_doctor -> in_examination, provided the visit is unassigned or
	// already assigned to that doctor.
	ClaimForExamination(ctx context.Context, id, doctorID string) error

	MedicalRecord(ctx context.Context, id string) (*models.MedicalRecord, error)
	MedicalRecordByAppointment(ctx context.Context, appointmentID string) (*models.MedicalRecord, error)
	MedicalRecordsByPatient(ctx context.Context, patientID string) ([]models.MedicalRecord, error)
	CreateMedicalRecord(ctx context.Context, r *models.MedicalRecord) error

	Prescription(ctx context.Context, id string) (*models.Prescription, error)
	PrescriptionByMedicalRecord(ctx context.Context, medicalRecordID string) (*models.Prescription, error)
	PrescriptionsByStatus(ctx context.Context, status models.PrescriptionStatus) ([]models.Prescription, error)
	CreatePrescription(ctx context.Context, p *models.Prescription) error
	UpdatePrescriptionStatus(ctx context.Context, id string, from, to models.PrescriptionStatus) error

	Medicine(ctx context.Context, id string) (*models.Medicine, error)
	Medicines(ctx context.Context) ([]models.Medicine, error)
	SaveMedicine(ctx context.Context, m *models.Medicine) error
	// DecrementStock subtracts qty from the medicine's stock only if the stock
	// suffices, in the same atomic statement as the check. A shortfall returns
	// an InsufficientStockError and leaves the row untouched.
	DecrementStock(ctx context.Context, id string, qty int) error

	Payment(ctx context.Context, id string) (*models.Payment, error)
	PaymentByAppointment(ctx context.Context, appointmentID string) (*models.Payment, error)
	SavePayment(ctx context.Context, p *models.Payment) error
}

// EventSink receives entity-change notifications after a transition commits.
// Dashboards subscribe to these instead of polling and recomputing aggregates.
type EventSink interface {
	EntityChanged(table, action, entityID string)
}
