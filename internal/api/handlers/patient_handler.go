package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/zatekoja/Patientcareplandesign/backend/internal/application/services"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/Patientcareplandesign/backend/pkg/errors"
)

// PatientService defines the patient operations used by the handler.
type PatientService interface {
	CreatePatient(ctx context.Context, patient *entities.Patient) error
	GetPatient(ctx context.Context, id string) (*services.PatientDetail, error)
	RegenerateCarePlan(ctx context.Context, patientID string) (*entities.PatientCarePlan, error)
	DeletePatient(ctx context.Context, id string) error
}

// PatientHandler handles patient-related HTTP requests
type PatientHandler struct {
	service PatientService
}

// NewPatientHandler creates a new patient handler
func NewPatientHandler(service PatientService) *PatientHandler {
	return &PatientHandler{
		service: service,
	}
}

type createPatientRequest struct {
	HospitalID     string  `json:"hospital_id"`
	FullName       string  `json:"full_name"`
	Age            int     `json:"age"`
	Gender         string  `json:"gender"`
	Phone          string  `json:"phone"`
	AssignedDoctor string  `json:"assigned_doctor"`
	RiskLevel      string  `json:"risk_level"`
	ClinicalNotes  string  `json:"clinical_notes"`
	SurgeryID      *string `json:"surgery_id"`
	AdmittedAt     string  `json:"admitted_at"`
}

// CreatePatient handles POST /api/patients. The response carries the
// committed patient record; the care plan is generated in the background
// and appears on subsequent reads.
func (h *PatientHandler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var payload createPatientRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	patient := &entities.Patient{
		HospitalID:     payload.HospitalID,
		FullName:       payload.FullName,
		Age:            payload.Age,
		Gender:         payload.Gender,
		Phone:          payload.Phone,
		AssignedDoctor: payload.AssignedDoctor,
		RiskLevel:      payload.RiskLevel,
		ClinicalNotes:  payload.ClinicalNotes,
		SurgeryID:      payload.SurgeryID,
	}

	if payload.AdmittedAt != "" {
		admittedAt, err := time.Parse(time.RFC3339, payload.AdmittedAt)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "admitted_at must be RFC 3339")
			return
		}
		patient.AdmittedAt = admittedAt
	}

	if err := h.service.CreatePatient(r.Context(), patient); err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, patient)
}

// GetPatient handles GET /api/patients/{id}
func (h *PatientHandler) GetPatient(w http.ResponseWriter, r *http.Request) {
	patientID := r.PathValue("id")
	if patientID == "" {
		respondWithError(w, http.StatusBadRequest, "patient ID is required")
		return
	}

	detail, err := h.service.GetPatient(r.Context(), patientID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, detail)
}

// RegenerateCarePlan handles POST /api/patients/{id}/care-plan. Unlike
// the creation path this runs synchronously, so the caller learns the
// generation outcome directly.
func (h *PatientHandler) RegenerateCarePlan(w http.ResponseWriter, r *http.Request) {
	patientID := r.PathValue("id")
	if patientID == "" {
		respondWithError(w, http.StatusBadRequest, "patient ID is required")
		return
	}

	plan, err := h.service.RegenerateCarePlan(r.Context(), patientID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, plan)
}

// DeletePatient handles DELETE /api/patients/{id}
func (h *PatientHandler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	patientID := r.PathValue("id")
	if patientID == "" {
		respondWithError(w, http.StatusBadRequest, "patient ID is required")
		return
	}

	if err := h.service.DeletePatient(r.Context(), patientID); err != nil {
		respondWithAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string, details ...string) {
	body := map[string]interface{}{
		"error": message,
	}
	if len(details) > 0 {
		body["details"] = details
	}
	respondWithJSON(w, statusCode, body)
}

// respondWithAppError maps the application error taxonomy onto HTTP
// statuses. Validation details are passed through so the caller sees
// every offending item at once.
func respondWithAppError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	switch appErr.Type {
	case apperrors.ErrorTypeValidation:
		respondWithError(w, http.StatusBadRequest, appErr.Message, appErr.Details...)
	case apperrors.ErrorTypeNotFound:
		respondWithError(w, http.StatusNotFound, appErr.Message)
	case apperrors.ErrorTypeConflict:
		respondWithError(w, http.StatusConflict, appErr.Message)
	case apperrors.ErrorTypeUnavailable:
		respondWithError(w, http.StatusServiceUnavailable, appErr.Message)
	case apperrors.ErrorTypeMalformed:
		respondWithError(w, http.StatusBadGateway, appErr.Message, appErr.Details...)
	default:
		respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}
