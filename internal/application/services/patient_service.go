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

// PatientDetail is a patient together with the cached care plan, as
// served on detail reads. CarePlan is nil until a generation has
// succeeded for the patient.
type PatientDetail struct {
	Patient  *entities.Patient         `json:"patient"`
	CarePlan *entities.PatientCarePlan `json:"care_plan,omitempty"`
}

// PatientService orchestrates patient records and best-effort care plan
// generation.
type PatientService struct {
	repo        repositories.PatientRepository
	carePlans   repositories.CarePlanRepository
	surgeryRepo repositories.SurgeryRepository
	generator   *CarePlanService
	eventBus    providers.EventBus
}

// NewPatientService creates a new patient service. eventBus may be nil.
func NewPatientService(
	repo repositories.PatientRepository,
	carePlans repositories.CarePlanRepository,
	surgeryRepo repositories.SurgeryRepository,
	generator *CarePlanService,
	eventBus providers.EventBus,
) *PatientService {
	return &PatientService{
		repo:        repo,
		carePlans:   carePlans,
		surgeryRepo: surgeryRepo,
		generator:   generator,
		eventBus:    eventBus,
	}
}

// CreatePatient persists the patient and kicks off care plan generation
// in the background. The patient record commits regardless of the
// generation outcome: a failed generation only means "no care plan yet".
func (s *PatientService) CreatePatient(ctx context.Context, patient *entities.Patient) error {
	if patient == nil {
		return apperrors.NewValidationError("patient is required")
	}
	var problems []string
	if strings.TrimSpace(patient.FullName) == "" {
		problems = append(problems, "full_name is required")
	}
	if strings.TrimSpace(patient.Phone) == "" {
		problems = append(problems, "phone is required")
	}
	if len(problems) > 0 {
		return apperrors.NewValidationError("invalid patient", problems...)
	}

	if err := s.repo.Create(ctx, patient); err != nil {
		return err
	}

	// Fire and collect: the patient row is already committed, so the
	// generation runs detached from the request's cancellation.
	go s.generateInBackground(context.WithoutCancel(ctx), patient)

	return nil
}

func (s *PatientService) generateInBackground(ctx context.Context, patient *entities.Patient) {
	logger := observability.LoggerFromContext(ctx)

	profile := s.buildProfile(ctx, patient)
	if _, err := s.generator.GenerateAndStore(ctx, patient.ID, profile); err != nil {
		logger.Warn().
			Err(err).
			Str("patient_id", patient.ID).
			Msg("care plan generation failed, patient has no care plan yet")
		return
	}

	logger.Info().
		Str("patient_id", patient.ID).
		Msg("care plan generated")
}

// buildProfile assembles the immutable prompt snapshot. The surgery
// lookup is best effort; a missing surgery leaves those fields empty.
func (s *PatientService) buildProfile(ctx context.Context, patient *entities.Patient) *entities.PatientProfile {
	profile := &entities.PatientProfile{
		Name:           patient.FullName,
		Age:            patient.Age,
		Gender:         patient.Gender,
		Status:         string(patient.Status),
		AssignedDoctor: patient.AssignedDoctor,
		AdmittedAt:     patient.AdmittedAt,
		RiskLevel:      patient.RiskLevel,
		ClinicalNotes:  patient.ClinicalNotes,
	}

	if patient.SurgeryID != nil && *patient.SurgeryID != "" {
		surgery, err := s.surgeryRepo.GetByID(ctx, *patient.SurgeryID)
		if err != nil {
			observability.LoggerFromContext(ctx).Warn().
				Err(err).
				Str("patient_id", patient.ID).
				Str("surgery_id", *patient.SurgeryID).
				Msg("failed to load surgery for profile")
		} else {
			profile.SurgeryName = surgery.Name
			profile.SurgeryDescription = surgery.Description
			profile.SurgeryType = surgery.SurgeryType
			profile.Medications = surgery.Medications
		}
	}

	return profile
}

// GetPatient returns the patient with the cached care plan verbatim; the
// plan is never recomputed on read.
func (s *PatientService) GetPatient(ctx context.Context, id string) (*PatientDetail, error) {
	if id == "" {
		return nil, apperrors.NewValidationError("patient ID is required")
	}

	patient, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &PatientDetail{Patient: patient}

	plan, err := s.carePlans.GetByPatientID(ctx, id)
	if err == nil {
		detail.CarePlan = plan
	} else if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		return nil, err
	}

	return detail, nil
}

// RegenerateCarePlan runs a synchronous generation for an existing
// patient and returns the stored plan. Concurrent triggers for the same
// patient share one generation.
func (s *PatientService) RegenerateCarePlan(ctx context.Context, patientID string) (*entities.PatientCarePlan, error) {
	patient, err := s.repo.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}

	profile := s.buildProfile(ctx, patient)
	return s.generator.GenerateAndStore(ctx, patient.ID, profile)
}

// DeletePatient removes the patient. The care plan row cascades in the
// database, but the cached entry is dropped explicitly so it does not
// outlive the patient for the rest of its TTL.
func (s *PatientService) DeletePatient(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.NewValidationError("patient ID is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.carePlans.DeleteByPatientID(ctx, id); err != nil {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("patient_id", id).
			Msg("failed to drop care plan for deleted patient")
	}

	s.publishDeleted(ctx, id)
	return nil
}

func (s *PatientService) publishDeleted(ctx context.Context, patientID string) {
	if s.eventBus == nil {
		return
	}
	event := &entities.CareEvent{
		ID:         uuid.New().String(),
		Type:       entities.CareEventPatientDeleted,
		EntityID:   patientID,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.eventBus.Publish(ctx, providers.EventChannelCarePlans, event); err != nil {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("patient_id", patientID).
			Msg("failed to publish patient-deleted event")
	}
}
