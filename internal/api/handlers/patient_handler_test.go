package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/api/handlers"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/application/services"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/Patientcareplandesign/backend/pkg/errors"
)

type stubPatientService struct {
	created     []*entities.Patient
	detail      *services.PatientDetail
	regenerated *entities.PatientCarePlan
	err         error
	deletedIDs  []string
	regenErr    error
}

func (s *stubPatientService) CreatePatient(ctx context.Context, patient *entities.Patient) error {
	if s.err != nil {
		return s.err
	}
	if patient.ID == "" {
		patient.ID = "test-id"
	}
	s.created = append(s.created, patient)
	return nil
}

func (s *stubPatientService) GetPatient(ctx context.Context, id string) (*services.PatientDetail, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.detail, nil
}

func (s *stubPatientService) RegenerateCarePlan(ctx context.Context, patientID string) (*entities.PatientCarePlan, error) {
	if s.regenErr != nil {
		return nil, s.regenErr
	}
	return s.regenerated, nil
}

func (s *stubPatientService) DeletePatient(ctx context.Context, id string) error {
	if s.err != nil {
		return s.err
	}
	s.deletedIDs = append(s.deletedIDs, id)
	return nil
}

func TestPatientHandler_CreatePatient(t *testing.T) {
	t.Run("creates a patient", func(t *testing.T) {
		service := &stubPatientService{}
		handler := handlers.NewPatientHandler(service)

		body := `{"full_name":"Adaeze Okafor","phone":"+2348031234567","age":34}`
		req := httptest.NewRequest("POST", "/api/patients", strings.NewReader(body))
		w := httptest.NewRecorder()

		handler.CreatePatient(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Len(t, service.created, 1)
		assert.Equal(t, "Adaeze Okafor", service.created[0].FullName)
	})

	t.Run("rejects a malformed body", func(t *testing.T) {
		service := &stubPatientService{}
		handler := handlers.NewPatientHandler(service)

		req := httptest.NewRequest("POST", "/api/patients", strings.NewReader("{not json"))
		w := httptest.NewRecorder()

		handler.CreatePatient(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, service.created)
	})

	t.Run("surfaces validation details", func(t *testing.T) {
		service := &stubPatientService{
			err: apperrors.NewValidationError("invalid patient", "full_name is required", "phone is required"),
		}
		handler := handlers.NewPatientHandler(service)

		req := httptest.NewRequest("POST", "/api/patients", strings.NewReader(`{}`))
		w := httptest.NewRecorder()

		handler.CreatePatient(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response map[string]interface{}
		err := json.NewDecoder(w.Body).Decode(&response)
		assert.NoError(t, err)
		assert.Equal(t, "invalid patient", response["error"])
		assert.Len(t, response["details"], 2)
	})
}

func TestPatientHandler_GetPatient(t *testing.T) {
	t.Run("returns the patient with its plan", func(t *testing.T) {
		service := &stubPatientService{
			detail: &services.PatientDetail{
				Patient:  &entities.Patient{ID: "patient-1", FullName: "Adaeze Okafor"},
				CarePlan: &entities.PatientCarePlan{PatientID: "patient-1", CarePlan: "Rest."},
			},
		}
		handler := handlers.NewPatientHandler(service)

		req := httptest.NewRequest("GET", "/api/patients/patient-1", nil)
		req.SetPathValue("id", "patient-1")
		w := httptest.NewRecorder()

		handler.GetPatient(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var detail services.PatientDetail
		assert.NoError(t, json.NewDecoder(w.Body).Decode(&detail))
		assert.Equal(t, "Adaeze Okafor", detail.Patient.FullName)
		assert.Equal(t, "Rest.", detail.CarePlan.CarePlan)
	})

	t.Run("maps not found to 404", func(t *testing.T) {
		service := &stubPatientService{err: apperrors.NewNotFoundError("patient with id ghost not found")}
		handler := handlers.NewPatientHandler(service)

		req := httptest.NewRequest("GET", "/api/patients/ghost", nil)
		req.SetPathValue("id", "ghost")
		w := httptest.NewRecorder()

		handler.GetPatient(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestPatientHandler_RegenerateCarePlan(t *testing.T) {
	t.Run("returns the regenerated plan", func(t *testing.T) {
		service := &stubPatientService{
			regenerated: &entities.PatientCarePlan{PatientID: "patient-1", CarePlan: "Updated."},
		}
		handler := handlers.NewPatientHandler(service)

		req := httptest.NewRequest("POST", "/api/patients/patient-1/care-plan", nil)
		req.SetPathValue("id", "patient-1")
		w := httptest.NewRecorder()

		handler.RegenerateCarePlan(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("maps provider exhaustion to 503", func(t *testing.T) {
		service := &stubPatientService{
			regenErr: apperrors.NewUnavailableError("model provider unavailable", nil),
		}
		handler := handlers.NewPatientHandler(service)

		req := httptest.NewRequest("POST", "/api/patients/patient-1/care-plan", nil)
		req.SetPathValue("id", "patient-1")
		w := httptest.NewRecorder()

		handler.RegenerateCarePlan(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("maps malformed model output to 502", func(t *testing.T) {
		service := &stubPatientService{
			regenErr: apperrors.NewMalformedError("incomplete care plan fields", "diet_plan"),
		}
		handler := handlers.NewPatientHandler(service)

		req := httptest.NewRequest("POST", "/api/patients/patient-1/care-plan", nil)
		req.SetPathValue("id", "patient-1")
		w := httptest.NewRecorder()

		handler.RegenerateCarePlan(w, req)

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestPatientHandler_DeletePatient(t *testing.T) {
	service := &stubPatientService{}
	handler := handlers.NewPatientHandler(service)

	req := httptest.NewRequest("DELETE", "/api/patients/patient-1", nil)
	req.SetPathValue("id", "patient-1")
	w := httptest.NewRecorder()

	handler.DeletePatient(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"patient-1"}, service.deletedIDs)
}
