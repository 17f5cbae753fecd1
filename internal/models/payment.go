package models

// PaymentMethod is how the patient settled the bill
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentTransfer PaymentMethod = "transfer"
)

// PaymentStatus represents the settlement state of a payment
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// Payment represents the single invoice for one appointment. The unique
// index on AppointmentID keeps a visit from ever being billed twice.
type Payment struct {
	BaseModel
	AppointmentID string        `gorm:"size:36;uniqueIndex;not null" json:"appointmentId"`
	AmountMinor   int64         `gorm:"not null" json:"amountMinor"`
	Method        PaymentMethod `gorm:"size:20" json:"method"`
	Status        PaymentStatus `gorm:"size:20;default:'pending'" json:"status"`

	// Relations
	Appointment Appointment `gorm:"foreignKey:AppointmentID" json:"-"`
}
