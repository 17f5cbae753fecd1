package models

// Patient represents a clinic patient identity record.
// Patients are keyed by their national ID (NIK) and are never hard-deleted
// because appointments and medical records reference them.
type Patient struct {
	BaseModel
	NIK         string `gorm:"uniqueIndex;size:32;not null" json:"nik"`
	FullName    string `gorm:"size:255;not null" json:"fullName"`
	DateOfBirth string `gorm:"size:10" json:"dateOfBirth"`
	Gender      string `gorm:"size:20" json:"gender"`
	Address     string `gorm:"type:text" json:"address"`
	Phone       string `gorm:"size:32" json:"phone"`
	UserID      string `gorm:"size:36;index" json:"userId,omitempty"` // optional login account

	// Relations
	Appointments []Appointment `gorm:"foreignKey:PatientID" json:"-"`
}
