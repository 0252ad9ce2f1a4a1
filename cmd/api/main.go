package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zatekoja/Patientcareplandesign/backend/internal/adapters/cache"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/adapters/database"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/adapters/events"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/api/handlers"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/api/middleware"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/api/routes"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/application/services"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/providers"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/repositories"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/infrastructure/clients/openai"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/infrastructure/observability"
	"github.com/zatekoja/Patientcareplandesign/backend/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			log.Printf("Warning: Failed to set up OpenTelemetry: %v", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Printf("Error shutting down OpenTelemetry: %v", err)
				}
			}()
			log.Println("OpenTelemetry initialized successfully")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}

	// Initialize database client
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL client: %v", err)
	}
	defer pgClient.Close()
	log.Println("PostgreSQL client initialized successfully")

	// Initialize Redis client
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Printf("Warning: Failed to initialize Redis client: %v", err)
		// Continue without Redis - the application can work without caching
	} else {
		defer redisClient.Close()
		log.Println("Redis client initialized successfully")
	}

	var cacheProvider providers.CacheProvider
	if redisClient != nil {
		cacheProvider = cache.NewRedisAdapter(redisClient)
	}

	// Initialize event bus for downstream notifications
	var eventBus providers.EventBus
	if redisClient != nil {
		eventBus = events.NewRedisEventBus(redisClient)
		log.Println("Event bus initialized successfully")
	} else {
		log.Println("Event bus disabled (Redis not available)")
	}

	// Initialize adapters
	patientAdapter := database.NewPatientAdapter(pgClient)
	surgeryAdapter := database.NewSurgeryAdapter(pgClient)

	baseCarePlanAdapter := database.NewCarePlanAdapter(pgClient)

	var carePlanAdapter repositories.CarePlanRepository
	if cacheProvider != nil {
		carePlanAdapter = database.NewCachedCarePlanAdapter(baseCarePlanAdapter, cacheProvider)
		log.Println("Care plan adapter wrapped with caching layer")
	} else {
		carePlanAdapter = baseCarePlanAdapter
		log.Println("Care plan adapter running without cache (Redis unavailable)")
	}

	// Initialize model provider
	var modelProvider providers.ModelProvider
	if cfg.OpenAI.APIKey == "" {
		log.Println("Warning: OPENAI_API_KEY is not set; care plan generation disabled")
	} else {
		openaiClient, err := openai.NewClient(&cfg.OpenAI)
		if err != nil {
			log.Printf("Warning: Failed to initialize OpenAI client: %v", err)
		} else {
			modelProvider = openaiClient
		}
	}

	// Initialize services
	carePlanService := services.NewCarePlanService(
		modelProvider,
		carePlanAdapter,
		eventBus,
		metrics,
		cfg.OpenAI.GenerationTimeout,
	)
	patientService := services.NewPatientService(
		patientAdapter,
		carePlanAdapter,
		surgeryAdapter,
		carePlanService,
		eventBus,
	)
	surgeryService := services.NewSurgeryService(surgeryAdapter, eventBus, metrics)

	// Keep cached surgery responses in step with plan syncs
	var cacheInvalidation *services.CacheInvalidationService
	if cacheProvider != nil && eventBus != nil {
		cacheInvalidation = services.NewCacheInvalidationService(cacheProvider, eventBus)
		if err := cacheInvalidation.Start(); err != nil {
			log.Printf("Warning: Failed to start cache invalidation service: %v", err)
			cacheInvalidation = nil
		}
	}

	// Initialize handlers
	patientHandler := handlers.NewPatientHandler(patientService)
	surgeryHandler := handlers.NewSurgeryHandler(surgeryService)

	// Initialize cache middleware
	var cacheMiddleware *middleware.CacheMiddleware
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider, metrics)
		log.Println("Cache middleware initialized successfully")
	}

	// Set up router
	router := routes.NewRouter(
		patientHandler,
		surgeryHandler,
		cacheMiddleware,
		metrics,
	)

	handler := router.SetupRoutes()

	// Create HTTP server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		// Synchronous care plan regeneration can run up to the full
		// generation budget, so the write timeout sits above it.
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}

	if cacheInvalidation != nil {
		cacheInvalidation.Stop()
	}

	// Close event bus
	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Printf("Error closing event bus: %v", err)
		}
	}

	log.Println("Server stopped")
}
