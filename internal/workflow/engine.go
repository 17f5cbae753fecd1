package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clinic-app-server/internal/models"
)

// Actor is the authenticated user on whose behalf an engine call runs.
type Actor struct {
	UserID string
	Role   models.Role
}

// DateLayout is the calendar-day format used for visit scheduling.
const DateLayout = "2006-01-02"

// queueRetries bounds how often a registration retries after losing a
// queue-number race to a concurrent insert.
const queueRetries = 3

// Engine drives the patient visit lifecycle: registration, queue, examination,
// prescription, pharmacy fulfillment, payment and completion. It is the only
// component that writes appointment statuses.
type Engine struct {
	store  Store
	events EventSink

	consultationFeeMinor   int64
	registrationWindowDays int

	now func() time.Time
}

// NewEngine creates a workflow engine on top of the given store. events may
// be nil when no change notification is needed (tests, batch tools).
func NewEngine(store Store, events EventSink, consultationFeeMinor int64, registrationWindowDays int) *Engine {
	return &Engine{
		store:                  store,
		events:                 events,
		consultationFeeMinor:   consultationFeeMinor,
		registrationWindowDays: registrationWindowDays,
		now:                    time.Now,
	}
}

func (e *Engine) notify(table, action, id string) {
	if e.events != nil {
		e.events.EntityChanged(table, action, id)
	}
}

// RegisterVisitInput is everything the front desk (or the patient) submits to
// open a visit. Patient fields upsert the patient record keyed on NIK.
type RegisterVisitInput struct {
	NIK         string
	FullName    string
	DateOfBirth string
	Gender      string
	Address     string
	Phone       string
	DoctorID    string
	Date        string
	Symptoms    string
}

// RegisterVisit upserts the patient by NIK, allocates the next queue number
// for the visit date and creates the appointment in waiting_doctor, all in one
// transaction. The (date, queue_number) unique index turns a lost race into a
// retry instead of a duplicate number.
func (e *Engine) RegisterVisit(ctx context.Context, actor Actor, in RegisterVisitInput) (*models.Appointment, error) {
	if actor.Role != models.RolePatient && actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	if err := e.validateVisitDate(in.Date); err != nil {
		return nil, err
	}

	var appt *models.Appointment
	var err error
	for attempt := 0; attempt < queueRetries; attempt++ {
		err = e.store.Transact(ctx, func(tx Store) error {
			patient, err := e.upsertPatient(ctx, tx, in)
			if err != nil {
				return err
			}

			count, err := tx.AppointmentCountByDate(ctx, in.Date)
			if err != nil {
				return err
			}

			appt = &models.Appointment{
				PatientID:   patient.ID,
				DoctorID:    in.DoctorID,
				Date:        in.Date,
				QueueNumber: int(count) + 1,
				Status:      models.StatusWaitingDoctor,
				Symptoms:    in.Symptoms,
			}
			return tx.CreateAppointment(ctx, appt)
		})
		if !errors.Is(err, ErrConflict) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	e.notify("patients", "upsert", appt.PatientID)
	e.notify("appointments", "insert", appt.ID)
	return appt, nil
}

func (e *Engine) upsertPatient(ctx context.Context, tx Store, in RegisterVisitInput) (*models.Patient, error) {
	patient, err := tx.PatientByNIK(ctx, in.NIK)
	if errors.Is(err, ErrNotFound) {
		patient = &models.Patient{NIK: in.NIK}
	} else if err != nil {
		return nil, err
	}

	patient.FullName = in.FullName
	patient.DateOfBirth = in.DateOfBirth
	patient.Gender = in.Gender
	patient.Address = in.Address
	patient.Phone = in.Phone

	if err := tx.SavePatient(ctx, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

func (e *Engine) validateVisitDate(date string) error {
	day, err := time.ParseInLocation(DateLayout, date, time.Local)
	if err != nil {
		return fmt.Errorf("%w: %q is not a calendar date", ErrInvalidDate, date)
	}
	today := e.now().In(time.Local).Truncate(24 * time.Hour)
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.Local)
	if day.Before(today) {
		return fmt.Errorf("%w: %s is in the past", ErrInvalidDate, date)
	}
	if day.After(today.AddDate(0, 0, e.registrationWindowDays)) {
		return fmt.Errorf("%w: %s is beyond the %d-day registration window",
			ErrInvalidDate, date, e.registrationWindowDays)
	}
	return nil
}

// Actions returns the transitions the actor may trigger on the appointment in
// its current state, so callers render only valid buttons.
func (e *Engine) Actions(ctx context.Context, actor Actor, appointmentID string) ([]models.AppointmentStatus, error) {
	appt, err := e.store.Appointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	return LegalTransitions(appt.Status, actor.Role), nil
}

// StartExamination moves a visit from waiting_doctor to in_examination and
// assigns the calling doctor if the visit was unassigned. A visit already
// assigned to another doctor is out of reach.
func (e *Engine) StartExamination(ctx context.Context, actor Actor, appointmentID string) error {
	appt, err := e.store.Appointment(ctx, appointmentID)
	if err != nil {
		return err
	}
	if err := CheckTransition(appt.Status, models.StatusInExamination, actor.Role); err != nil {
		return err
	}
	if appt.DoctorID != "" && appt.DoctorID != actor.UserID {
		return ErrForbidden
	}

	if err := e.store.ClaimForExamination(ctx, appointmentID, actor.UserID); err != nil {
		return err
	}
	e.notify("appointments", "update", appointmentID)
	return nil
}

// ExamInput is the doctor's examination outcome.
type ExamInput struct {
	Diagnosis         string
	Notes             string
	NeedsPrescription bool
}

// CompleteExamination creates the visit's medical record and advances the
// appointment to waiting_pharmacy or completed depending on whether medicine
// is needed. Record creation and the status change are one transaction.
func (e *Engine) CompleteExamination(ctx context.Context, actor Actor, appointmentID string, in ExamInput) (*models.MedicalRecord, error) {
	next := models.StatusCompleted
	if in.NeedsPrescription {
		next = models.StatusWaitingPharmacy
	}

	var record *models.MedicalRecord
	err := e.store.Transact(ctx, func(tx Store) error {
		appt, err := tx.Appointment(ctx, appointmentID)
		if err != nil {
			return err
		}
		if err := CheckTransition(appt.Status, next, actor.Role); err != nil {
			return err
		}
		if appt.DoctorID != actor.UserID {
			return ErrForbidden
		}

		record = &models.MedicalRecord{
			AppointmentID:     appointmentID,
			PatientID:         appt.PatientID,
			DoctorID:          actor.UserID,
			Diagnosis:         in.Diagnosis,
			Notes:             in.Notes,
			NeedsPrescription: in.NeedsPrescription,
		}
		if err := tx.CreateMedicalRecord(ctx, record); err != nil {
			return err
		}
		return tx.UpdateAppointmentStatus(ctx, appointmentID, models.StatusInExamination, next)
	})
	if err != nil {
		return nil, err
	}

	e.notify("medical_records", "insert", record.ID)
	e.notify("appointments", "update", appointmentID)
	return record, nil
}

// Cancel terminates a visit from any non-terminal state. Admins may cancel
// any visit; a patient only their own.
func (e *Engine) Cancel(ctx context.Context, actor Actor, appointmentID string) error {
	appt, err := e.store.Appointment(ctx, appointmentID)
	if err != nil {
		return err
	}
	if err := CheckTransition(appt.Status, models.StatusCancelled, actor.Role); err != nil {
		return err
	}
	if actor.Role == models.RolePatient {
		patient, err := e.store.Patient(ctx, appt.PatientID)
		if err != nil {
			return err
		}
		if patient.UserID == "" || patient.UserID != actor.UserID {
			return ErrForbidden
		}
	}

	if err := e.store.UpdateAppointmentStatus(ctx, appointmentID, appt.Status, models.StatusCancelled); err != nil {
		return err
	}
	e.notify("appointments", "update", appointmentID)
	return nil
}

// DailyReport aggregates one day of clinic activity for the owner and admin
// dashboards.
type DailyReport struct {
	Date         string `json:"date"`
	TotalVisits  int    `json:"totalVisits"`
	Completed    int    `json:"completed"`
	Cancelled    int    `json:"cancelled"`
	RevenueMinor int64  `json:"revenueMinor"`
}

// Report summarizes the visits and paid revenue of one calendar day.
func (e *Engine) Report(ctx context.Context, actor Actor, date string) (*DailyReport, error) {
	if actor.Role != models.RoleOwner && actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	if _, err := time.ParseInLocation(DateLayout, date, time.Local); err != nil {
		return nil, fmt.Errorf("%w: %q is not a calendar date", ErrInvalidDate, date)
	}

	appts, err := e.store.AppointmentsByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	report := &DailyReport{Date: date, TotalVisits: len(appts)}
	for _, appt := range appts {
		switch appt.Status {
		case models.StatusCompleted:
			report.Completed++
		case models.StatusCancelled:
			report.Cancelled++
		}
		payment, err := e.store.PaymentByAppointment(ctx, appt.ID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if payment.Status == models.PaymentPaid {
			report.RevenueMinor += payment.AmountMinor
		}
	}
	return report, nil
}
