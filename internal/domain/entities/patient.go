package entities

import (
	"strings"
	"time"
)

// PatientStatus represents the recovery status of a patient
type PatientStatus string

const (
	PatientStatusInRecovery PatientStatus = "in_recovery"
	PatientStatusDischarged PatientStatus = "discharged"
)

// Patient represents a hospital-owned patient record
type Patient struct {
	ID             string        `json:"id" db:"id"`
	HospitalID     string        `json:"hospital_id" db:"hospital_id"`
	FullName       string        `json:"full_name" db:"full_name"`
	Age            int           `json:"age" db:"age"`
	Gender         string        `json:"gender" db:"gender"`
	Phone          string        `json:"phone" db:"phone"`
	AssignedDoctor string        `json:"assigned_doctor" db:"assigned_doctor"`
	RiskLevel      string        `json:"risk_level" db:"risk_level"`
	ClinicalNotes  string        `json:"clinical_notes" db:"clinical_notes"`
	Status         PatientStatus `json:"status" db:"status"`
	SurgeryID      *string       `json:"surgery_id,omitempty" db:"surgery_id"`
	AdmittedAt     time.Time     `json:"admitted_at" db:"admitted_at"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

// PatientProfile is the immutable snapshot used to build the generation
// prompt. It is assembled by the caller at generation time and never
// persisted by the generator itself.
type PatientProfile struct {
	Name           string    `json:"name"`
	Age            int       `json:"age"`
	Gender         string    `json:"gender"`
	Status         string    `json:"status"`
	AssignedDoctor string    `json:"assigned_doctor"`
	AdmittedAt     time.Time `json:"admitted_at"`
	RiskLevel      string    `json:"risk_level"`

	SurgeryName        string `json:"surgery_name,omitempty"`
	SurgeryDescription string `json:"surgery_description,omitempty"`
	SurgeryType        string `json:"surgery_type,omitempty"`

	Medications   []string `json:"medications,omitempty"`
	ClinicalNotes string   `json:"clinical_notes,omitempty"`
}

// Validate checks that the profile carries enough clinical context for a
// generation attempt: a name plus either a surgery reference or free-text
// notes. Problems are returned for every missing field.
func (p *PatientProfile) Validate() []string {
	var problems []string
	if strings.TrimSpace(p.Name) == "" {
		problems = append(problems, "name is required")
	}
	if strings.TrimSpace(p.SurgeryName) == "" && strings.TrimSpace(p.ClinicalNotes) == "" {
		problems = append(problems, "either a surgery reference or clinical notes are required")
	}
	return problems
}
