package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/entities"
)

// SurgeryService defines the surgery template operations used by the
// handler.
type SurgeryService interface {
	CreateSurgery(ctx context.Context, surgery *entities.Surgery, payload *entities.SurgeryPlanPayload) (*entities.Surgery, error)
	GetSurgery(ctx context.Context, id string) (*entities.Surgery, error)
	SyncPlans(ctx context.Context, surgeryID string, payload *entities.SurgeryPlanPayload) (*entities.Surgery, error)
	DeleteSurgery(ctx context.Context, id string) error
}

// SurgeryHandler handles surgery template HTTP requests
type SurgeryHandler struct {
	service SurgeryService
}

// NewSurgeryHandler creates a new surgery handler
func NewSurgeryHandler(service SurgeryService) *SurgeryHandler {
	return &SurgeryHandler{
		service: service,
	}
}

type createSurgeryRequest struct {
	HospitalID  string   `json:"hospital_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	SurgeryType string   `json:"surgery_type"`
	RiskLevel   string   `json:"risk_level"`
	Medications []string `json:"medications,omitempty"`

	Plans *entities.SurgeryPlanPayload `json:"plans,omitempty"`
}

// CreateSurgery handles POST /api/surgeries
func (h *SurgeryHandler) CreateSurgery(w http.ResponseWriter, r *http.Request) {
	var payload createSurgeryRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	surgery := &entities.Surgery{
		HospitalID:  payload.HospitalID,
		Name:        payload.Name,
		Description: payload.Description,
		SurgeryType: payload.SurgeryType,
		RiskLevel:   payload.RiskLevel,
		Medications: payload.Medications,
	}

	created, err := h.service.CreateSurgery(r.Context(), surgery, payload.Plans)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

// GetSurgery handles GET /api/surgeries/{id}
func (h *SurgeryHandler) GetSurgery(w http.ResponseWriter, r *http.Request) {
	surgeryID := r.PathValue("id")
	if surgeryID == "" {
		respondWithError(w, http.StatusBadRequest, "surgery ID is required")
		return
	}

	surgery, err := h.service.GetSurgery(r.Context(), surgeryID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, surgery)
}

// SyncPlans handles PUT /api/surgeries/{id}/plans. The request body is
// the full desired state of the diet plan and activities; whatever is
// stored and absent from the body is removed.
func (h *SurgeryHandler) SyncPlans(w http.ResponseWriter, r *http.Request) {
	surgeryID := r.PathValue("id")
	if surgeryID == "" {
		respondWithError(w, http.StatusBadRequest, "surgery ID is required")
		return
	}

	var payload entities.SurgeryPlanPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	surgery, err := h.service.SyncPlans(r.Context(), surgeryID, &payload)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, surgery)
}

// DeleteSurgery handles DELETE /api/surgeries/{id}
func (h *SurgeryHandler) DeleteSurgery(w http.ResponseWriter, r *http.Request) {
	surgeryID := r.PathValue("id")
	if surgeryID == "" {
		respondWithError(w, http.StatusBadRequest, "surgery ID is required")
		return
	}

	if err := h.service.DeleteSurgery(r.Context(), surgeryID); err != nil {
		respondWithAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
