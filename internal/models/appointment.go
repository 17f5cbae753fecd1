package models

// AppointmentStatus represents the status of a clinic visit
type AppointmentStatus string

const (
	StatusWaitingDoctor   AppointmentStatus = "waiting_doctor"
	StatusInExamination   AppointmentStatus = "in_examination"
	StatusWaitingPharmacy AppointmentStatus = "waiting_pharmacy"
	StatusMedicineReady   AppointmentStatus = "medicine_ready"
	StatusCompleted       AppointmentStatus = "completed"
	StatusCancelled       AppointmentStatus = "cancelled"
)

// Terminal reports whether no further transition is permitted from s.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Appointment represents one clinic visit. The queue number is the patient's
// position in that day's waiting line; the (date, queue_number) unique index
// is what keeps concurrent registrations from ever sharing a number.
type Appointment struct {
	BaseModel
	PatientID   string            `gorm:"size:36;index;not null" json:"patientId"`
	DoctorID    string            `gorm:"size:36;index" json:"doctorId,omitempty"`
	Date        string            `gorm:"size:10;uniqueIndex:idx_date_queue" json:"date"`
	QueueNumber int               `gorm:"uniqueIndex:idx_date_queue" json:"queueNumber"`
	Status      AppointmentStatus `gorm:"size:20;default:'waiting_doctor'" json:"status"`
	Symptoms    string            `gorm:"type:text" json:"symptoms"`

	// Relations
	Patient Patient `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor  User    `gorm:"foreignKey:DoctorID" json:"-"`
}
