package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/entities"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/repositories"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/Patientcareplandesign/backend/pkg/errors"
)

// PatientAdapter implements the PatientRepository interface
type PatientAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPatientAdapter creates a new patient adapter
func NewPatientAdapter(client *postgres.Client) repositories.PatientRepository {
	return &PatientAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new patient record
func (a *PatientAdapter) Create(ctx context.Context, patient *entities.Patient) error {
	if patient.ID == "" {
		patient.ID = uuid.New().String()
	}
	now := time.Now()
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = now
	}
	patient.UpdatedAt = now
	if patient.Status == "" {
		patient.Status = entities.PatientStatusInRecovery
	}
	if patient.AdmittedAt.IsZero() {
		patient.AdmittedAt = now
	}

	record := goqu.Record{
		"id":              patient.ID,
		"hospital_id":     patient.HospitalID,
		"full_name":       patient.FullName,
		"age":             patient.Age,
		"gender":          patient.Gender,
		"phone":           patient.Phone,
		"assigned_doctor": patient.AssignedDoctor,
		"risk_level":      patient.RiskLevel,
		"clinical_notes":  patient.ClinicalNotes,
		"status":          patient.Status,
		"surgery_id":      patient.SurgeryID,
		"admitted_at":     patient.AdmittedAt,
		"created_at":      patient.CreatedAt,
		"updated_at":      patient.UpdatedAt,
	}

	query, args, err := a.db.Insert("patients").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	_, err = a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to create patient", err)
	}

	return nil
}

// GetByID retrieves a patient by ID
func (a *PatientAdapter) GetByID(ctx context.Context, id string) (*entities.Patient, error) {
	query, args, err := a.db.Select(
		"id", "hospital_id", "full_name", "age", "gender", "phone",
		"assigned_doctor", "risk_level", "clinical_notes", "status",
		"surgery_id", "admitted_at", "created_at", "updated_at",
	).From("patients").
		Where(goqu.Ex{"id": id}).
		ToSQL()

	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	patient := &entities.Patient{}
	var surgeryID sql.NullString
	var riskLevel, clinicalNotes sql.NullString

	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&patient.ID,
		&patient.HospitalID,
		&patient.FullName,
		&patient.Age,
		&patient.Gender,
		&patient.Phone,
		&patient.AssignedDoctor,
		&riskLevel,
		&clinicalNotes,
		&patient.Status,
		&surgeryID,
		&patient.AdmittedAt,
		&patient.CreatedAt,
		&patient.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("patient with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get patient", err)
	}

	if surgeryID.Valid {
		patient.SurgeryID = &surgeryID.String
	}
	patient.RiskLevel = riskLevel.String
	patient.ClinicalNotes = clinicalNotes.String

	return patient, nil
}

// Delete removes a patient. The care plan row goes with it through the
// ON DELETE CASCADE constraint.
func (a *PatientAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := a.db.Delete("patients").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete patient", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("patient with id %s not found", id))
	}

	return nil
}
