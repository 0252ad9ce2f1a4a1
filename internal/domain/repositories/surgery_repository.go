package repositories

import (
	"context"

	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/entities"
)

// SurgeryRepository defines the interface for surgery template storage.
//
// ReplacePlans is the synchronization contract: inside one transaction it
// updates the diet plan scalar fields and replaces all four child
// collections (allowed foods, forbidden foods, meal entries, activities)
// with the payload's items in payload order. On any failure the prior
// state is left unchanged.
type SurgeryRepository interface {
	Create(ctx context.Context, surgery *entities.Surgery) error
	GetByID(ctx context.Context, id string) (*entities.Surgery, error)
	ReplacePlans(ctx context.Context, surgeryID string, payload *entities.SurgeryPlanPayload) (*entities.Surgery, error)
	Delete(ctx context.Context, id string) error
}
