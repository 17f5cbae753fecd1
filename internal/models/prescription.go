package models

// PrescriptionStatus represents the pharmacy processing stage of a prescription
type PrescriptionStatus string

const (
	PrescriptionPending   PrescriptionStatus = "pending"
	PrescriptionProcessed PrescriptionStatus = "processed"
	PrescriptionCompleted PrescriptionStatus = "completed"
)

// Prescription represents a doctor's drug order for one medical record.
// The unique index on MedicalRecordID enforces the at-most-one rule at the
// database level instead of trusting every call site.
type Prescription struct {
	BaseModel
	MedicalRecordID string             `gorm:"size:36;uniqueIndex;not null" json:"medicalRecordId"`
	DoctorID        string             `gorm:"size:36;index;not null" json:"doctorId"`
	Status          PrescriptionStatus `gorm:"size:20;default:'pending'" json:"status"`

	// Relations
	MedicalRecord MedicalRecord      `gorm:"foreignKey:MedicalRecordID" json:"-"`
	Items         []PrescriptionItem `gorm:"foreignKey:PrescriptionID" json:"items,omitempty"`
}

// PrescriptionItem represents one drug line within a prescription.
// Items are immutable once the prescription is created.
type PrescriptionItem struct {
	BaseModel
	PrescriptionID string `gorm:"size:36;index;not null" json:"prescriptionId"`
	MedicineID     string `gorm:"size:36;index;not null" json:"medicineId"`
	Quantity       int    `gorm:"not null" json:"quantity"`
	Instructions   string `gorm:"size:255" json:"instructions"`

	// Relations
	Medicine Medicine `gorm:"foreignKey:MedicineID" json:"medicine,omitempty"`
}
