package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/entities"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/providers"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/repositories"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/Patientcareplandesign/backend/pkg/errors"
)

// SurgeryService manages surgery templates and the synchronization of
// their nested plan collections.
type SurgeryService struct {
	repo     repositories.SurgeryRepository
	eventBus providers.EventBus
	metrics  *observability.Metrics
}

// NewSurgeryService creates a new surgery service.
func NewSurgeryService(repo repositories.SurgeryRepository, eventBus providers.EventBus, metrics *observability.Metrics) *SurgeryService {
	return &SurgeryService{
		repo:     repo,
		eventBus: eventBus,
		metrics:  metrics,
	}
}

// CreateSurgery persists a new template. When a plan payload is given it
// is validated up front and synced in the same call, so the template is
// never visible without its plans.
func (s *SurgeryService) CreateSurgery(ctx context.Context, surgery *entities.Surgery, payload *entities.SurgeryPlanPayload) (*entities.Surgery, error) {
	if surgery == nil {
		return nil, apperrors.NewValidationError("surgery is required")
	}
	var problems []string
	if strings.TrimSpace(surgery.Name) == "" {
		problems = append(problems, "name is required")
	}
	if strings.TrimSpace(surgery.HospitalID) == "" {
		problems = append(problems, "hospital_id is required")
	}
	if len(problems) > 0 {
		return nil, apperrors.NewValidationError("invalid surgery", problems...)
	}
	if payload != nil {
		if problems := payload.Validate(); len(problems) > 0 {
			return nil, apperrors.NewValidationError("invalid surgery plans", problems...)
		}
	}

	if err := s.repo.Create(ctx, surgery); err != nil {
		return nil, err
	}

	if payload == nil {
		return s.repo.GetByID(ctx, surgery.ID)
	}
	return s.repo.ReplacePlans(ctx, surgery.ID, payload)
}

// GetSurgery returns the template with its diet plan and activities.
func (s *SurgeryService) GetSurgery(ctx context.Context, id string) (*entities.Surgery, error) {
	if id == "" {
		return nil, apperrors.NewValidationError("surgery ID is required")
	}
	return s.repo.GetByID(ctx, id)
}

// SyncPlans replaces all four plan collections of the surgery with the
// payload's items. The whole payload is validated first and every
// offending item is reported before anything is written; the replace
// itself runs in one transaction, so a failure leaves the prior plans
// intact. Empty collections are valid and clear the stored items.
func (s *SurgeryService) SyncPlans(ctx context.Context, surgeryID string, payload *entities.SurgeryPlanPayload) (*entities.Surgery, error) {
	if surgeryID == "" {
		return nil, apperrors.NewValidationError("surgery ID is required")
	}
	if payload == nil {
		return nil, apperrors.NewValidationError("plan payload is required")
	}
	if problems := payload.Validate(); len(problems) > 0 {
		observability.RecordSyncMetric(ctx, s.metrics, "validation_failed")
		return nil, apperrors.NewValidationError("invalid surgery plans", problems...)
	}

	surgery, err := s.repo.ReplacePlans(ctx, surgeryID, payload)
	if err != nil {
		observability.RecordSyncMetric(ctx, s.metrics, "failed")
		return nil, err
	}

	observability.RecordSyncMetric(ctx, s.metrics, "success")
	s.publishSynced(ctx, surgeryID)

	return surgery, nil
}

// DeleteSurgery removes the template and all nested plan rows.
func (s *SurgeryService) DeleteSurgery(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.NewValidationError("surgery ID is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.publishEvent(ctx, entities.CareEventSurgeryDeleted, id)
	return nil
}

func (s *SurgeryService) publishSynced(ctx context.Context, surgeryID string) {
	s.publishEvent(ctx, entities.CareEventSurgeryPlansSynced, surgeryID)
}

func (s *SurgeryService) publishEvent(ctx context.Context, eventType entities.CareEventType, surgeryID string) {
	if s.eventBus == nil {
		return
	}
	event := &entities.CareEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		EntityID:   surgeryID,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.eventBus.Publish(ctx, providers.EventChannelSurgeries, event); err != nil {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("surgery_id", surgeryID).
			Str("event_type", string(eventType)).
			Msg("failed to publish surgery event")
	}
}
