package models

import "time"

// Patient is a clinical record owned by the account that created it
type Patient struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Age       int       `json:"age"`
	Disease   string    `json:"disease"`
	Contact   *string   `json:"contact"`
	CreatedBy *int64    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PatientView is a patient with its creator resolved
type PatientView struct {
	Patient
	UserName     string `json:"userName"`
	UserUsername string `json:"userUsername"`
}

// Doctor is shared reference data
type Doctor struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Specialty  string    `json:"specialty"`
	Experience int       `json:"experience"`
	Contact    string    `json:"contact"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// DoctorView is a doctor with its mapping total
type DoctorView struct {
	Doctor
	MappingCount int64 `json:"mappingCount"`
}

// Mapping links a patient to a doctor
type Mapping struct {
	ID        int64     `json:"id"`
	PatientID int64     `json:"patientId"`
	DoctorID  int64     `json:"doctorId"`
	CreatedBy *int64    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// MappingView is a mapping with both ends and its creator resolved.
// Patient, Doctor and User are nil when the referenced row is gone.
type MappingView struct {
	Mapping
	Patient      *Patient     `json:"patient"`
	Doctor       *Doctor      `json:"doctor"`
	User         *UserSummary `json:"user"`
	UserName     string       `json:"userName"`
	UserUsername string       `json:"userUsername"`
}

// PatientScope restricts a listing to one creator. A nil scope is global.
type PatientScope struct {
	CreatedBy int64
}
