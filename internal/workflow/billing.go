package workflow

import (
	"context"
	"errors"

	"clinic-app-server/internal/models"
)

// ComputeTotal derives a visit's bill: the flat consultation fee plus the
// dispensed medicine cost, or the fee alone when no prescription exists.
func (e *Engine) ComputeTotal(ctx context.Context, appointmentID string) (int64, error) {
	return e.computeTotal(ctx, e.store, appointmentID)
}

func (e *Engine) computeTotal(ctx context.Context, tx Store, appointmentID string) (int64, error) {
	if _, err := tx.Appointment(ctx, appointmentID); err != nil {
		return 0, err
	}

	total := e.consultationFeeMinor

	record, err := tx.MedicalRecordByAppointment(ctx, appointmentID)
	if errors.Is(err, ErrNotFound) {
		return total, nil
	}
	if err != nil {
		return 0, err
	}

	prescription, err := tx.PrescriptionByMedicalRecord(ctx, record.ID)
	if errors.Is(err, ErrNotFound) {
		return total, nil
	}
	if err != nil {
		return 0, err
	}

	for _, item := range prescription.Items {
		medicine, err := tx.Medicine(ctx, item.MedicineID)
		if err != nil {
			return 0, err
		}
		total += int64(item.Quantity) * medicine.PriceMinor
	}
	return total, nil
}

// Finalize records the payment for a visit directly, used by administrative
// staff for visits that needed no medicine. overrideAmountMinor replaces the
// computed total when positive. A second finalize fails with ErrAlreadyPaid.
func (e *Engine) Finalize(ctx context.Context, actor Actor, appointmentID string, method models.PaymentMethod, overrideAmountMinor int64) (*models.Payment, error) {
	if actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}

	var payment *models.Payment
	err := e.store.Transact(ctx, func(tx Store) error {
		var err error
		payment, err = e.finalizePayment(ctx, tx, appointmentID, method, overrideAmountMinor)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.notify("payments", "upsert", payment.ID)
	return payment, nil
}

// finalizePayment creates or settles the visit's payment inside the caller's
// transaction. It is shared by Finalize and the hand-over transition.
func (e *Engine) finalizePayment(ctx context.Context, tx Store, appointmentID string, method models.PaymentMethod, overrideAmountMinor int64) (*models.Payment, error) {
	payment, err := tx.PaymentByAppointment(ctx, appointmentID)
	switch {
	case err == nil:
		if payment.Status == models.PaymentPaid {
			return nil, ErrAlreadyPaid
		}
	case errors.Is(err, ErrNotFound):
		payment = &models.Payment{AppointmentID: appointmentID}
	default:
		return nil, err
	}

	amount := overrideAmountMinor
	if amount <= 0 {
		amount, err = e.computeTotal(ctx, tx, appointmentID)
		if err != nil {
			return nil, err
		}
	}

	payment.AmountMinor = amount
	payment.Method = method
	payment.Status = models.PaymentPaid
	if err := tx.SavePayment(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}
