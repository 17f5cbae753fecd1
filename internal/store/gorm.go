package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"clinic-app-server/internal/models"
	"clinic-app-server/internal/workflow"
)

// Gorm implements workflow.Store on a MySQL database through GORM. The
// database must be opened with TranslateError so unique-index collisions
// surface as gorm.ErrDuplicatedKey.
type Gorm struct {
	db *gorm.DB
}

// NewGorm wraps a GORM connection as a workflow store.
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

// Transact runs fn inside one database transaction; the engine relies on this
// as its all-or-nothing multi-write primitive.
func (s *Gorm) Transact(ctx context.Context, fn func(tx workflow.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Gorm{db: tx})
	})
}

func translate(err error, onDuplicate error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return workflow.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return onDuplicate
	default:
		return err
	}
}

func (s *Gorm) Patient(ctx context.Context, id string) (*models.Patient, error) {
	var patient models.Patient
	err := s.db.WithContext(ctx).First(&patient, "id = ?", id).Error
	return &patient, translate(err, err)
}

func (s *Gorm) PatientByNIK(ctx context.Context, nik string) (*models.Patient, error) {
	var patient models.Patient
	err := s.db.WithContext(ctx).First(&patient, "nik = ?", nik).Error
	return &patient, translate(err, err)
}

func (s *Gorm) PatientByUser(ctx context.Context, userID string) (*models.Patient, error) {
	var patient models.Patient
	err := s.db.WithContext(ctx).First(&patient, "user_id = ?", userID).Error
	return &patient, translate(err, err)
}

func (s *Gorm) Patients(ctx context.Context) ([]models.Patient, error) {
	var patients []models.Patient
	err := s.db.WithContext(ctx).Order("full_name asc").Find(&patients).Error
	return patients, err
}

func (s *Gorm) SavePatient(ctx context.Context, p *models.Patient) error {
	return translate(s.db.WithContext(ctx).Save(p).Error, workflow.ErrConflict)
}

func (s *Gorm) Appointment(ctx context.Context, id string) (*models.Appointment, error) {
	var appt models.Appointment
	err := s.db.WithContext(ctx).Preload("Patient").First(&appt, "id = ?", id).Error
	return &appt, translate(err, err)
}

func (s *Gorm) AppointmentsByDate(ctx context.Context, date string) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := s.db.WithContext(ctx).Preload("Patient").
		Where("date = ?", date).Order("queue_number asc").Find(&appts).Error
	return appts, err
}

func (s *Gorm) AppointmentsByPatient(ctx context.Context, patientID string) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := s.db.WithContext(ctx).
		Where("patient_id = ?", patientID).Order("date desc, queue_number asc").Find(&appts).Error
	return appts, err
}

func (s *Gorm) AppointmentsByDoctorDate(ctx context.Context, doctorID, date string) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := s.db.WithContext(ctx).Preload("Patient").
		Where("doctor_id = ? AND date = ?", doctorID, date).
		Order("queue_number asc").Find(&appts).Error
	return appts, err
}

func (s *Gorm) AppointmentCountByDate(ctx context.Context, date string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("date = ?", date).Count(&count).Error
	return count, err
}

func (s *Gorm) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	return translate(s.db.WithContext(ctx).Omit("Patient", "Doctor").Create(a).Error, workflow.ErrConflict)
}

// UpdateAppointmentStatus is the status compare-and-set: the WHERE clause
// carries the expected current status, so a concurrent move shows up as zero
// affected rows rather than a silent overwrite.
func (s *Gorm) UpdateAppointmentStatus(ctx context.Context, id string, from, to models.AppointmentStatus) error {
	res := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return s.staleOrMissing(ctx, id)
	}
	return nil
}

func (s *Gorm) ClaimForExamination(ctx context.Context, id, doctorID string) error {
	res := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ? AND status = ? AND (doctor_id = '' OR doctor_id = ?)",
			id, models.StatusWaitingDoctor, doctorID).
		Updates(map[string]interface{}{
			"status":    models.StatusInExamination,
			"doctor_id": doctorID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return s.staleOrMissing(ctx, id)
	}
	return nil
}

func (s *Gorm) staleOrMissing(ctx context.Context, id string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return workflow.ErrNotFound
	}
	return workflow.ErrStaleState
}

func (s *Gorm) MedicalRecord(ctx context.Context, id string) (*models.MedicalRecord, error) {
	var record models.MedicalRecord
	err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error
	return &record, translate(err, err)
}

func (s *Gorm) MedicalRecordByAppointment(ctx context.Context, appointmentID string) (*models.MedicalRecord, error) {
	var record models.MedicalRecord
	err := s.db.WithContext(ctx).First(&record, "appointment_id = ?", appointmentID).Error
	return &record, translate(err, err)
}

func (s *Gorm) MedicalRecordsByPatient(ctx context.Context, patientID string) ([]models.MedicalRecord, error) {
	var records []models.MedicalRecord
	err := s.db.WithContext(ctx).
		Where("patient_id = ?", patientID).Order("created_at desc").Find(&records).Error
	return records, err
}

func (s *Gorm) CreateMedicalRecord(ctx context.Context, r *models.MedicalRecord) error {
	return translate(s.db.WithContext(ctx).Omit("Appointment", "Patient", "Doctor").Create(r).Error,
		workflow.ErrStaleState)
}

func (s *Gorm) Prescription(ctx context.Context, id string) (*models.Prescription, error) {
	var prescription models.Prescription
	err := s.db.WithContext(ctx).Preload("Items").Preload("Items.Medicine").
		First(&prescription, "id = ?", id).Error
	return &prescription, translate(err, err)
}

func (s *Gorm) PrescriptionByMedicalRecord(ctx context.Context, medicalRecordID string) (*models.Prescription, error) {
	var prescription models.Prescription
	err := s.db.WithContext(ctx).Preload("Items").
		First(&prescription, "medical_record_id = ?", medicalRecordID).Error
	return &prescription, translate(err, err)
}

func (s *Gorm) PrescriptionsByStatus(ctx context.Context, status models.PrescriptionStatus) ([]models.Prescription, error) {
	var prescriptions []models.Prescription
	err := s.db.WithContext(ctx).Preload("Items").Preload("Items.Medicine").
		Where("status = ?", status).Order("created_at asc").Find(&prescriptions).Error
	return prescriptions, err
}

func (s *Gorm) CreatePrescription(ctx context.Context, p *models.Prescription) error {
	return translate(s.db.WithContext(ctx).Omit("MedicalRecord").Create(p).Error,
		workflow.ErrDuplicatePrescription)
}

func (s *Gorm) UpdatePrescriptionStatus(ctx context.Context, id string, from, to models.PrescriptionStatus) error {
	res := s.db.WithContext(ctx).Model(&models.Prescription{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return workflow.ErrStaleState
	}
	return nil
}

func (s *Gorm) Medicine(ctx context.Context, id string) (*models.Medicine, error) {
	var medicine models.Medicine
	err := s.db.WithContext(ctx).First(&medicine, "id = ?", id).Error
	return &medicine, translate(err, err)
}

func (s *Gorm) Medicines(ctx context.Context) ([]models.Medicine, error) {
	var medicines []models.Medicine
	err := s.db.WithContext(ctx).Order("name asc").Find(&medicines).Error
	return medicines, err
}

func (s *Gorm) SaveMedicine(ctx context.Context, m *models.Medicine) error {
	return s.db.WithContext(ctx).Save(m).Error
}

// DecrementStock guards the decrement with the sufficiency check in the same
// UPDATE, so stock can never go negative even under concurrent fulfillments.
func (s *Gorm) DecrementStock(ctx context.Context, id string, qty int) error {
	res := s.db.WithContext(ctx).Model(&models.Medicine{}).
		Where("id = ? AND stock >= ?", id, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		medicine, err := s.Medicine(ctx, id)
		if err != nil {
			return err
		}
		return &workflow.InsufficientStockError{
			MedicineID: id,
			Available:  medicine.Stock,
			Requested:  qty,
		}
	}
	return nil
}

func (s *Gorm) Payment(ctx context.Context, id string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).First(&payment, "id = ?", id).Error
	return &payment, translate(err, err)
}

func (s *Gorm) PaymentByAppointment(ctx context.Context, appointmentID string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).First(&payment, "appointment_id = ?", appointmentID).Error
	return &payment, translate(err, err)
}

func (s *Gorm) SavePayment(ctx context.Context, p *models.Payment) error {
	return translate(s.db.WithContext(ctx).Omit("Appointment").Save(p).Error, workflow.ErrAlreadyPaid)
}
