package models

// MedicalRecord represents one examination outcome, 1:1 with the appointment
// that produced it. Records are append-only history and are never updated
// after the doctor signs off.
type MedicalRecord struct {
	BaseModel
	AppointmentID     string `gorm:"size:36;uniqueIndex;not null" json:"appointmentId"`
	PatientID         string `gorm:"size:36;index;not null" json:"patientId"`
	DoctorID          string `gorm:"size:36;index;not null" json:"doctorId"`
	Diagnosis         string `gorm:"type:text" json:"diagnosis"`
	Notes             string `gorm:"type:text" json:"notes"`
	NeedsPrescription bool   `gorm:"default:false" json:"needsPrescription"`

	// Relations
	Appointment Appointment `gorm:"foreignKey:AppointmentID" json:"-"`
	Patient     Patient     `gorm:"foreignKey:PatientID" json:"-"`
	Doctor      User        `gorm:"foreignKey:DoctorID" json:"-"`
}
