package workflow

import (
	"context"
	"errors"
	"fmt"

	"clinic-app-server/internal/models"
)

// ItemInput is one drug line in a prescription submission.
type ItemInput struct {
	MedicineID   string
	Quantity     int
	Instructions string
}

// SubmitPrescription records the doctor's drug order against a medical
// record. At most one prescription may exist per record; the store's unique
// index backs the application-level check under concurrency. The created
// prescription ends up in processed, ready for the pharmacy.
func (e *Engine) SubmitPrescription(ctx context.Context, actor Actor, medicalRecordID string, items []ItemInput) (*models.Prescription, error) {
	if actor.Role != models.RoleDoctor {
		return nil, ErrForbidden
	}
	if len(items) == 0 {
		return nil, ErrEmptyPrescription
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity for medicine %s must be positive",
				ErrEmptyPrescription, item.MedicineID)
		}
	}

	var prescription *models.Prescription
	err := e.store.Transact(ctx, func(tx Store) error {
		record, err := tx.MedicalRecord(ctx, medicalRecordID)
		if err != nil {
			return err
		}
		if _, err := tx.PrescriptionByMedicalRecord(ctx, medicalRecordID); err == nil {
			return ErrDuplicatePrescription
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		lines := make([]models.PrescriptionItem, 0, len(items))
		for _, item := range items {
			if _, err := tx.Medicine(ctx, item.MedicineID); err != nil {
				return fmt.Errorf("medicine %s: %w", item.MedicineID, err)
			}
			lines = append(lines, models.PrescriptionItem{
				MedicineID:   item.MedicineID,
				Quantity:     item.Quantity,
				Instructions: item.Instructions,
			})
		}

		prescription = &models.Prescription{
			MedicalRecordID: record.ID,
			DoctorID:        actor.UserID,
			Status:          models.PrescriptionPending,
			Items:           lines,
		}
		if err := tx.CreatePrescription(ctx, prescription); err != nil {
			return err
		}
		// The order is complete as submitted, so it moves to processed
		// immediately; pending only exists for partially built drafts.
		return tx.UpdatePrescriptionStatus(ctx, prescription.ID,
			models.PrescriptionPending, models.PrescriptionProcessed)
	})
	if err != nil {
		return nil, err
	}
	prescription.Status = models.PrescriptionProcessed

	e.notify("prescriptions", "insert", prescription.ID)
	return prescription, nil
}

// Fulfill dispenses a prescription: every line's stock is decremented under a
// sufficiency guard, the prescription completes and the visit advances from
// waiting_pharmacy to medicine_ready. One transaction covers all of it, so a
// shortfall on any line leaves every stock level and the visit untouched.
func (e *Engine) Fulfill(ctx context.Context, actor Actor, prescriptionID string) error {
	var appointmentID string
	err := e.store.Transact(ctx, func(tx Store) error {
		prescription, err := tx.Prescription(ctx, prescriptionID)
		if err != nil {
			return err
		}
		if prescription.Status == models.PrescriptionCompleted {
			return ErrStaleState
		}

		record, err := tx.MedicalRecord(ctx, prescription.MedicalRecordID)
		if err != nil {
			return err
		}
		appointmentID = record.AppointmentID

		appt, err := tx.Appointment(ctx, appointmentID)
		if err != nil {
			return err
		}
		if err := CheckTransition(appt.Status, models.StatusMedicineReady, actor.Role); err != nil {
			return err
		}

		for _, item := range prescription.Items {
			if err := tx.DecrementStock(ctx, item.MedicineID, item.Quantity); err != nil {
				return err
			}
		}

		if err := tx.UpdatePrescriptionStatus(ctx, prescriptionID,
			prescription.Status, models.PrescriptionCompleted); err != nil {
			return err
		}
		return tx.UpdateAppointmentStatus(ctx, appointmentID,
			models.StatusWaitingPharmacy, models.StatusMedicineReady)
	})
	if err != nil {
		return err
	}

	e.notify("prescriptions", "update", prescriptionID)
	e.notify("medicines", "update", "")
	e.notify("appointments", "update", appointmentID)
	return nil
}

// HandOver gives the prepared medicine to the patient: billing is finalized
// with the given method and the visit completes, as one transaction. A visit
// whose payment an admin already settled just completes; hand-over must never
// strand a paid visit in medicine_ready.
func (e *Engine) HandOver(ctx context.Context, actor Actor, appointmentID string, method models.PaymentMethod) (*models.Payment, error) {
	if actor.Role != models.RolePharmacist {
		return nil, ErrForbidden
	}

	var payment *models.Payment
	err := e.store.Transact(ctx, func(tx Store) error {
		appt, err := tx.Appointment(ctx, appointmentID)
		if err != nil {
			return err
		}
		if err := CheckTransition(appt.Status, models.StatusCompleted, actor.Role); err != nil {
			return err
		}

		existing, err := tx.PaymentByAppointment(ctx, appointmentID)
		switch {
		case err == nil && existing.Status == models.PaymentPaid:
			payment = existing
		case err != nil && !errors.Is(err, ErrNotFound):
			return err
		default:
			payment, err = e.finalizePayment(ctx, tx, appointmentID, method, 0)
			if err != nil {
				return err
			}
		}
		return tx.UpdateAppointmentStatus(ctx, appointmentID,
			models.StatusMedicineReady, models.StatusCompleted)
	})
	if err != nil {
		return nil, err
	}

	e.notify("payments", "upsert", payment.ID)
	e.notify("appointments", "update", appointmentID)
	return payment, nil
}
