package routes

import (
	"net/http"

	"github.com/zatekoja/Patientcareplandesign/backend/internal/api/handlers"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/api/middleware"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	patientHandler *handlers.PatientHandler
	surgeryHandler *handlers.SurgeryHandler

	cacheMiddleware *middleware.CacheMiddleware
	metrics         *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	patientHandler *handlers.PatientHandler,
	surgeryHandler *handlers.SurgeryHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux: http.NewServeMux(),

		patientHandler: patientHandler,
		surgeryHandler: surgeryHandler,

		cacheMiddleware: cacheMiddleware,
		metrics:         metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Patient endpoints
	r.mux.HandleFunc("POST /api/patients", r.patientHandler.CreatePatient)
	r.mux.HandleFunc("GET /api/patients/{id}", r.patientHandler.GetPatient)
	r.mux.HandleFunc("DELETE /api/patients/{id}", r.patientHandler.DeletePatient)
	r.mux.HandleFunc("POST /api/patients/{id}/care-plan", r.patientHandler.RegenerateCarePlan)

	// Surgery template endpoints
	r.mux.HandleFunc("POST /api/surgeries", r.surgeryHandler.CreateSurgery)
	r.mux.HandleFunc("GET /api/surgeries/{id}", r.surgeryHandler.GetSurgery)
	r.mux.HandleFunc("DELETE /api/surgeries/{id}", r.surgeryHandler.DeleteSurgery)
	r.mux.HandleFunc("PUT /api/surgeries/{id}/plans", r.surgeryHandler.SyncPlans)

	// Apply middleware in reverse order (last middleware wraps first)
	// CORS must be outermost so cached responses also get CORS headers.

	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	handler = middleware.ResponseOptimization(handler)

	handler = middleware.CORSMiddleware(handler)

	return handler
}
