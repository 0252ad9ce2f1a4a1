package repositories

import (
	"context"

	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/entities"
)

// CarePlanRepository defines the interface for cached care plan storage.
// Upsert keeps exactly one PatientCarePlan per patient: all four result
// fields and the generated_at timestamp change together or not at all.
type CarePlanRepository interface {
	GetByPatientID(ctx context.Context, patientID string) (*entities.PatientCarePlan, error)
	Upsert(ctx context.Context, plan *entities.PatientCarePlan) error
	DeleteByPatientID(ctx context.Context, patientID string) error
}
