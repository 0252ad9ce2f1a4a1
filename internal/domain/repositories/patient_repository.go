package repositories

import (
	"context"

	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/entities"
)

// PatientRepository defines the interface for patient storage.
type PatientRepository interface {
	Create(ctx context.Context, patient *entities.Patient) error
	GetByID(ctx context.Context, id string) (*entities.Patient, error)
	Delete(ctx context.Context, id string) error
}
