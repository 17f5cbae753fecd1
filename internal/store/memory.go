package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"clinic-app-server/internal/models"
	"clinic-app-server/internal/workflow"
)

// Memory implements workflow.Store in process memory. It backs the engine's
// unit tests and is handy for demos without a database. A single mutex
// serializes transactions, which is what gives Transact its all-or-nothing
// behavior: fn runs against a deep copy that only replaces the live state
// when fn succeeds.
type Memory struct {
	mu sync.Mutex
	st *memState
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{st: newMemState()}
}

func (m *Memory) Transact(ctx context.Context, fn func(tx workflow.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := m.st.clone()
	if err := fn(&memTx{st: clone}); err != nil {
		return err
	}
	m.st = clone
	return nil
}

// memTx is the unlocked view handed to Transact callbacks. Nested Transact
// calls run in the enclosing transaction.
type memTx struct {
	st *memState
}

func (t *memTx) Transact(ctx context.Context, fn func(tx workflow.Store) error) error {
	return fn(t)
}

type memState struct {
	patients      map[string]models.Patient
	appointments  map[string]models.Appointment
	records       map[string]models.MedicalRecord
	prescriptions map[string]models.Prescription
	medicines     map[string]models.Medicine
	payments      map[string]models.Payment
}

func newMemState() *memState {
	return &memState{
		patients:      make(map[string]models.Patient),
		appointments:  make(map[string]models.Appointment),
		records:       make(map[string]models.MedicalRecord),
		prescriptions: make(map[string]models.Prescription),
		medicines:     make(map[string]models.Medicine),
		payments:      make(map[string]models.Payment),
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.patients {
		c.patients[k] = v
	}
	for k, v := range s.appointments {
		c.appointments[k] = v
	}
	for k, v := range s.records {
		c.records[k] = v
	}
	for k, v := range s.prescriptions {
		items := make([]models.PrescriptionItem, len(v.Items))
		copy(items, v.Items)
		v.Items = items
		c.prescriptions[k] = v
	}
	for k, v := range s.medicines {
		c.medicines[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	return c
}

func stamp(base *models.BaseModel) {
	if base.ID == "" {
		base.ID = uuid.New().String()
	}
	now := time.Now()
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	base.UpdatedAt = now
}

// Patients

func (s *memState) patient(id string) (*models.Patient, error) {
	if p, ok := s.patients[id]; ok {
		return &p, nil
	}
	return nil, workflow.ErrNotFound
}

func (s *memState) patientByNIK(nik string) (*models.Patient, error) {
	for _, p := range s.patients {
		if p.NIK == nik {
			return &p, nil
		}
	}
	return nil, workflow.ErrNotFound
}

func (s *memState) patientByUser(userID string) (*models.Patient, error) {
	for _, p := range s.patients {
		if p.UserID != "" && p.UserID == userID {
			return &p, nil
		}
	}
	return nil, workflow.ErrNotFound
}

func (s *memState) listPatients() []models.Patient {
	out := make([]models.Patient, 0, len(s.patients))
	for _, p := range s.patients {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out
}

func (s *memState) savePatient(p *models.Patient) error {
	for id, other := range s.patients {
		if other.NIK == p.NIK && id != p.ID {
			return workflow.ErrConflict
		}
	}
	stamp(&p.BaseModel)
	s.patients[p.ID] = *p
	return nil
}

// Appointments

func (s *memState) appointment(id string) (*models.Appointment, error) {
	if a, ok := s.appointments[id]; ok {
		if p, ok := s.patients[a.PatientID]; ok {
			a.Patient = p
		}
		return &a, nil
	}
	return nil, workflow.ErrNotFound
}

func (s *memState) appointmentsWhere(keep func(models.Appointment) bool) []models.Appointment {
	var out []models.Appointment
	for _, a := range s.appointments {
		if keep(a) {
			if p, ok := s.patients[a.PatientID]; ok {
				a.Patient = p
			}
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].QueueNumber < out[j].QueueNumber
	})
	return out
}

func (s *memState) createAppointment(a *models.Appointment) error {
	for _, other := range s.appointments {
		if other.Date == a.Date && other.QueueNumber == a.QueueNumber {
			return workflow.ErrConflict
		}
	}
	stamp(&a.BaseModel)
	s.appointments[a.ID] = *a
	return nil
}

func (s *memState) updateAppointmentStatus(id string, from, to models.AppointmentStatus) error {
	a, ok := s.appointments[id]
	if !ok {
		return workflow.ErrNotFound
	}
	if a.Status != from {
		return workflow.ErrStaleState
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	s.appointments[id] = a
	return nil
}

func (s *memState) claimForExamination(id, doctorID string) error {
	a, ok := s.appointments[id]
	if !ok {
		return workflow.ErrNotFound
	}
	if a.Status != models.StatusWaitingDoctor || (a.DoctorID != "" && a.DoctorID != doctorID) {
		return workflow.ErrStaleState
	}
	a.Status = models.StatusInExamination
	a.DoctorID = doctorID
	a.UpdatedAt = time.Now()
	s.appointments[id] = a
	return nil
}

// Medical records

func (s *memState) medicalRecord(id string) (*models.MedicalRecord, error) {
	if r, ok := s.records[id]; ok {
		return &r, nil
	}
	return nil, workflow.ErrNotFound
}

func (s *memState) medicalRecordByAppointment(appointmentID string) (*models.MedicalRecord, error) {
	for _, r := range s.records {
		if r.AppointmentID == appointmentID {
			return &r, nil
		}
	}
	return nil, workflow.ErrNotFound
}

func (s *memState) medicalRecordsByPatient(patientID string) []models.MedicalRecord {
	var out []models.MedicalRecord
	for _, r := range s.records {
		if r.PatientID == patientID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *memState) createMedicalRecord(r *models.MedicalRecord) error {
	for _, other := range s.records {
		if other.AppointmentID == r.AppointmentID {
			return workflow.ErrStaleState
		}
	}
	stamp(&r.BaseModel)
	s.records[r.ID] = *r
	return nil
}

// Prescriptions

func (s *memState) prescription(id string) (*models.Prescription, error) {
	if p, ok := s.prescriptions[id]; ok {
		items := make([]models.PrescriptionItem, len(p.Items))
		copy(items, p.Items)
		for i := range items {
			if m, ok := s.medicines[items[i].MedicineID]; ok {
				items[i].Medicine = m
			}
		}
		p.Items = items
		return &p, nil
	}
	return nil, workflow.ErrNotFound
}

func (s *memState) prescriptionByMedicalRecord(medicalRecordID string) (*models.Prescription, error) {
	for id, p := range s.prescriptions {
		if p.MedicalRecordID == medicalRecordID {
			return s.prescription(id)
		}
	}
	return nil, workflow.ErrNotFound
}

func (s *memState) prescriptionsByStatus(status models.PrescriptionStatus) []models.Prescription {
	var out []models.Prescription
	for id, p := range s.prescriptions {
		if p.Status == status {
			full, _ := s.prescription(id)
			out = append(out, *full)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *memState) createPrescription(p *models.Prescription) error {
	for _, other := range s.prescriptions {
		if other.MedicalRecordID == p.MedicalRecordID {
			return workflow.ErrDuplicatePrescription
		}
	}
	stamp(&p.BaseModel)
	for i := range p.Items {
		stamp(&p.Items[i].BaseModel)
		p.Items[i].PrescriptionID = p.ID
	}
	s.prescriptions[p.ID] = *p
	return nil
}

func (s *memState) updatePrescriptionStatus(id string, from, to models.PrescriptionStatus) error {
	p, ok := s.prescriptions[id]
	if !ok {
		return workflow.ErrNotFound
	}
	if p.Status != from {
		return workflow.ErrStaleState
	}
	p.Status = to
	p.UpdatedAt = time.Now()
	s.prescriptions[id] = p
	return nil
}

// Medicines

func (s *memState) medicine(id string) (*models.Medicine, error) {
	if m, ok := s.medicines[id]; ok {
		return &m, nil
	}
	return nil, workflow.ErrNotFound
}

func (s *memState) listMedicines() []models.Medicine {
	out := make([]models.Medicine, 0, len(s.medicines))
	for _, m := range s.medicines {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *memState) saveMedicine(m *models.Medicine) error {
	stamp(&m.BaseModel)
	s.medicines[m.ID] = *m
	return nil
}

func (s *memState) decrementStock(id string, qty int) error {
	m, ok := s.medicines[id]
	if !ok {
		return workflow.ErrNotFound
	}
	if m.Stock < qty {
		return &workflow.InsufficientStockError{
			MedicineID: id,
			Available:  m.Stock,
			Requested:  qty,
		}
	}
	m.Stock -= qty
	m.UpdatedAt = time.Now()
	s.medicines[id] = m
	return nil
}

// Payments

func (s *memState) payment(id string) (*models.Payment, error) {
	if p, ok := s.payments[id]; ok {
		return &p, nil
	}
	return nil, workflow.ErrNotFound
}

func (s *memState) paymentByAppointment(appointmentID string) (*models.Payment, error) {
	for _, p := range s.payments {
		if p.AppointmentID == appointmentID {
			return &p, nil
		}
	}
	return nil, workflow.ErrNotFound
}

func (s *memState) savePayment(p *models.Payment) error {
	for id, other := range s.payments {
		if other.AppointmentID == p.AppointmentID && id != p.ID {
			return workflow.ErrAlreadyPaid
		}
	}
	stamp(&p.BaseModel)
	s.payments[p.ID] = *p
	return nil
}

// Interface plumbing: Memory locks around every call, memTx runs unlocked
// inside its transaction.

func (m *Memory) with(fn func(st *memState) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.st)
}

func (m *Memory) Patient(ctx context.Context, id string) (p *models.Patient, err error) {
	err = m.with(func(st *memState) error { p, err = st.patient(id); return err })
	return
}

func (m *Memory) PatientByNIK(ctx context.Context, nik string) (p *models.Patient, err error) {
	err = m.with(func(st *memState) error { p, err = st.patientByNIK(nik); return err })
	return
}

func (m *Memory) PatientByUser(ctx context.Context, userID string) (p *models.Patient, err error) {
	err = m.with(func(st *memState) error { p, err = st.patientByUser(userID); return err })
	return
}

func (m *Memory) Patients(ctx context.Context) (out []models.Patient, err error) {
	err = m.with(func(st *memState) error { out = st.listPatients(); return nil })
	return
}

func (m *Memory) SavePatient(ctx context.Context, p *models.Patient) error {
	return m.with(func(st *memState) error { return st.savePatient(p) })
}

func (m *Memory) Appointment(ctx context.Context, id string) (a *models.Appointment, err error) {
	err = m.with(func(st *memState) error { a, err = st.appointment(id); return err })
	return
}

func (m *Memory) AppointmentsByDate(ctx context.Context, date string) (out []models.Appointment, err error) {
	err = m.with(func(st *memState) error {
		out = st.appointmentsWhere(func(a models.Appointment) bool { return a.Date == date })
		return nil
	})
	return
}

func (m *Memory) AppointmentsByPatient(ctx context.Context, patientID string) (out []models.Appointment, err error) {
	err = m.with(func(st *memState) error {
		out = st.appointmentsWhere(func(a models.Appointment) bool { return a.PatientID == patientID })
		return nil
	})
	return
}

func (m *Memory) AppointmentsByDoctorDate(ctx context.Context, doctorID, date string) (out []models.Appointment, err error) {
	err = m.with(func(st *memState) error {
		out = st.appointmentsWhere(func(a models.Appointment) bool {
			return a.DoctorID == doctorID && a.Date == date
		})
		return nil
	})
	return
}

func (m *Memory) AppointmentCountByDate(ctx context.Context, date string) (count int64, err error) {
	err = m.with(func(st *memState) error {
		for _, a := range st.appointments {
			if a.Date == date {
				count++
			}
		}
		return nil
	})
	return
}

func (m *Memory) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	return m.with(func(st *memState) error { return st.createAppointment(a) })
}

func (m *Memory) UpdateAppointmentStatus(ctx context.Context, id string, from, to models.AppointmentStatus) error {
	return m.with(func(st *memState) error { return st.updateAppointmentStatus(id, from, to) })
}

func (m *Memory) ClaimForExamination(ctx context.Context, id, doctorID string) error {
	return m.with(func(st *memState) error { return st.claimForExamination(id, doctorID) })
}

func (m *Memory) MedicalRecord(ctx context.Context, id string) (r *models.MedicalRecord, err error) {
	err = m.with(func(st *memState) error { r, err = st.medicalRecord(id); return err })
	return
}

func (m *Memory) MedicalRecordByAppointment(ctx context.Context, appointmentID string) (r *models.MedicalRecord, err error) {
	err = m.with(func(st *memState) error { r, err = st.medicalRecordByAppointment(appointmentID); return err })
	return
}

func (m *Memory) MedicalRecordsByPatient(ctx context.Context, patientID string) (out []models.MedicalRecord, err error) {
	err = m.with(func(st *memState) error { out = st.medicalRecordsByPatient(patientID); return nil })
	return
}

func (m *Memory) CreateMedicalRecord(ctx context.Context, r *models.MedicalRecord) error {
	return m.with(func(st *memState) error { return st.createMedicalRecord(r) })
}

func (m *Memory) Prescription(ctx context.Context, id string) (p *models.Prescription, err error) {
	err = m.with(func(st *memState) error { p, err = st.prescription(id); return err })
	return
}

func (m *Memory) PrescriptionByMedicalRecord(ctx context.Context, medicalRecordID string) (p *models.Prescription, err error) {
	err = m.with(func(st *memState) error { p, err = st.prescriptionByMedicalRecord(medicalRecordID); return err })
	return
}

func (m *Memory) PrescriptionsByStatus(ctx context.Context, status models.PrescriptionStatus) (out []models.Prescription, err error) {
	err = m.with(func(st *memState) error { out = st.prescriptionsByStatus(status); return nil })
	return
}

func (m *Memory) CreatePrescription(ctx context.Context, p *models.Prescription) error {
	return m.with(func(st *memState) error { return st.createPrescription(p) })
}

func (m *Memory) UpdatePrescriptionStatus(ctx context.Context, id string, from, to models.PrescriptionStatus) error {
	return m.with(func(st *memState) error { return st.updatePrescriptionStatus(id, from, to) })
}

func (m *Memory) Medicine(ctx context.Context, id string) (med *models.Medicine, err error) {
	err = m.with(func(st *memState) error { med, err = st.medicine(id); return err })
	return
}

func (m *Memory) Medicines(ctx context.Context) (out []models.Medicine, err error) {
	err = m.with(func(st *memState) error { out = st.listMedicines(); return nil })
	return
}

func (m *Memory) SaveMedicine(ctx context.Context, med *models.Medicine) error {
	return m.with(func(st *memState) error { return st.saveMedicine(med) })
}

func (m *Memory) DecrementStock(ctx context.Context, id string, qty int) error {
	return m.with(func(st *memState) error { return st.decrementStock(id, qty) })
}

func (m *Memory) Payment(ctx context.Context, id string) (p *models.Payment, err error) {
	err = m.with(func(st *memState) error { p, err = st.payment(id); return err })
	return
}

func (m *Memory) PaymentByAppointment(ctx context.Context, appointmentID string) (p *models.Payment, err error) {
	err = m.with(func(st *memState) error { p, err = st.paymentByAppointment(appointmentID); return err })
	return
}

func (m *Memory) SavePayment(ctx context.Context, p *models.Payment) error {
	return m.with(func(st *memState) error { return st.savePayment(p) })
}

func (t *memTx) Patient(ctx context.Context, id string) (*models.Patient, error) {
	return t.st.patient(id)
}

func (t *memTx) PatientByNIK(ctx context.Context, nik string) (*models.Patient, error) {
	return t.st.patientByNIK(nik)
}

func (t *memTx) PatientByUser(ctx context.Context, userID string) (*models.Patient, error) {
	return t.st.patientByUser(userID)
}

func (t *memTx) Patients(ctx context.Context) ([]models.Patient, error) {
	return t.st.listPatients(), nil
}

func (t *memTx) SavePatient(ctx context.Context, p *models.Patient) error {
	return t.st.savePatient(p)
}

func (t *memTx) Appointment(ctx context.Context, id string) (*models.Appointment, error) {
	return t.st.appointment(id)
}

func (t *memTx) AppointmentsByDate(ctx context.Context, date string) ([]models.Appointment, error) {
	return t.st.appointmentsWhere(func(a models.Appointment) bool { return a.Date == date }), nil
}

func (t *memTx) AppointmentsByPatient(ctx context.Context, patientID string) ([]models.Appointment, error) {
	return t.st.appointmentsWhere(func(a models.Appointment) bool { return a.PatientID == patientID }), nil
}

func (t *memTx) AppointmentsByDoctorDate(ctx context.Context, doctorID, date string) ([]models.Appointment, error) {
	return t.st.appointmentsWhere(func(a models.Appointment) bool {
		return a.DoctorID == doctorID && a.Date == date
	}), nil
}

func (t *memTx) AppointmentCountByDate(ctx context.Context, date string) (int64, error) {
	var count int64
	for _, a := range t.st.appointments {
		if a.Date == date {
			count++
		}
	}
	return count, nil
}

func (t *memTx) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	return t.st.createAppointment(a)
}

func (t *memTx) UpdateAppointmentStatus(ctx context.Context, id string, from, to models.AppointmentStatus) error {
	return t.st.updateAppointmentStatus(id, from, to)
}

func (t *memTx) ClaimForExamination(ctx context.Context, id, doctorID string) error {
	return t.st.claimForExamination(id, doctorID)
}

func (t *memTx) MedicalRecord(ctx context.Context, id string) (*models.MedicalRecord, error) {
	return t.st.medicalRecord(id)
}

func (t *memTx) MedicalRecordByAppointment(ctx context.Context, appointmentID string) (*models.MedicalRecord, error) {
	return t.st.medicalRecordByAppointment(appointmentID)
}

func (t *memTx) MedicalRecordsByPatient(ctx context.Context, patientID string) ([]models.MedicalRecord, error) {
	return t.st.medicalRecordsByPatient(patientID), nil
}

func (t *memTx) CreateMedicalRecord(ctx context.Context, r *models.MedicalRecord) error {
	return t.st.createMedicalRecord(r)
}

func (t *memTx) Prescription(ctx context.Context, id string) (*models.Prescription, error) {
	return t.st.prescription(id)
}

func (t *memTx) PrescriptionByMedicalRecord(ctx context.Context, medicalRecordID string) (*models.Prescription, error) {
	return t.st.prescriptionByMedicalRecord(medicalRecordID)
}

func (t *memTx) PrescriptionsByStatus(ctx context.Context, status models.PrescriptionStatus) ([]models.Prescription, error) {
	return t.st.prescriptionsByStatus(status), nil
}

func (t *memTx) CreatePrescription(ctx context.Context, p *models.Prescription) error {
	return t.st.createPrescription(p)
}

func (t *memTx) UpdatePrescriptionStatus(ctx context.Context, id string, from, to models.PrescriptionStatus) error {
	return t.st.updatePrescriptionStatus(id, from, to)
}

func (t *memTx) Medicine(ctx context.Context, id string) (*models.Medicine, error) {
	return t.st.medicine(id)
}

func (t *memTx) Medicines(ctx context.Context) ([]models.Medicine, error) {
	return t.st.listMedicines(), nil
}

func (t *memTx) SaveMedicine(ctx context.Context, m *models.Medicine) error {
	return t.st.saveMedicine(m)
}

func (t *memTx) DecrementStock(ctx context.Context, id string, qty int) error {
	return t.st.decrementStock(id, qty)
}

func (t *memTx) Payment(ctx context.Context, id string) (*models.Payment, error) {
	return t.st.payment(id)
}

func (t *memTx) PaymentByAppointment(ctx context.Context, appointmentID string) (*models.Payment, error) {
	return t.st.paymentByAppointment(appointmentID)
}

func (t *memTx) SavePayment(ctx context.Context, p *models.Payment) error {
	return t.st.savePayment(p)
}

var (
	_ workflow.Store = (*Memory)(nil)
	_ workflow.Store = (*Gorm)(nil)
	_ workflow.Store = (*memTx)(nil)
)
