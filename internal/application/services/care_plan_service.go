package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/entities"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/providers"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/repositories"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/Patientcareplandesign/backend/pkg/errors"
	"github.com/zatekoja/Patientcareplandesign/backend/pkg/retry"
	"golang.org/x/sync/singleflight"
)

const (
	// defaultGenerationTimeout bounds one generation end to end,
	// including every transport retry.
	defaultGenerationTimeout = 30 * time.Second

	// generation retries only cover transport-class failures: the first
	// attempt plus two more.
	generationMaxAttempts = 3
)

// CarePlanService is the care-plan generation pipeline: it builds the
// prompt, calls the model provider with retry and a circuit breaker,
// parses the response and hands the validated result to the cache writer.
type CarePlanService struct {
	provider providers.ModelProvider
	repo     repositories.CarePlanRepository
	parser   *CarePlanParser
	eventBus providers.EventBus
	metrics  *observability.Metrics

	breaker  *gobreaker.CircuitBreaker
	group    singleflight.Group
	timeout  time.Duration
	retryCfg retry.Config
}

// NewCarePlanService creates a new care plan service. eventBus and
// metrics may be nil.
func NewCarePlanService(
	provider providers.ModelProvider,
	repo repositories.CarePlanRepository,
	eventBus providers.EventBus,
	metrics *observability.Metrics,
	timeout time.Duration,
) *CarePlanService {
	if timeout <= 0 {
		timeout = defaultGenerationTimeout
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "model-provider",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		Timeout: 30 * time.Second,
	})

	return &CarePlanService{
		provider: provider,
		repo:     repo,
		parser:   NewCarePlanParser(),
		eventBus: eventBus,
		metrics:  metrics,
		breaker:  breaker,
		timeout:  timeout,
		retryCfg: retry.Config{
			MaxAttempts:   generationMaxAttempts,
			InitialDelay:  500 * time.Millisecond,
			MaxDelay:      5 * time.Second,
			BackoffFactor: 2.0,
		},
	}
}

// Generate produces a care plan for the profile. It returns either a
// result with all four fields populated or a typed error; partial results
// never escape. Persistence is left to the caller.
func (s *CarePlanService) Generate(ctx context.Context, profile *entities.PatientProfile) (*entities.CarePlanResult, error) {
	if profile == nil {
		return nil, apperrors.NewValidationError("patient profile is required")
	}
	if problems := profile.Validate(); len(problems) > 0 {
		return nil, apperrors.NewValidationError("invalid patient profile", problems...)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	result, err := s.generate(ctx, profile)
	if s.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = string(apperrors.TypeOf(err))
		}
		observability.RecordGenerationMetric(ctx, s.metrics, outcome, time.Since(start))
	}
	return result, err
}

func (s *CarePlanService) generate(ctx context.Context, profile *entities.PatientProfile) (*entities.CarePlanResult, error) {
	req, err := buildCarePlanPrompt(profile, false)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build prompt", err)
	}

	raw, err := s.completeWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}

	result, parseErr := s.parser.Parse(raw)
	if parseErr == nil {
		return result, nil
	}

	observability.LoggerFromContext(ctx).Warn().
		Err(parseErr).
		Msg("model response failed to parse, re-issuing with strict instruction")

	// One fresh call with a stricter instruction; the same raw response
	// is never parsed twice and structural failures are never retried
	// beyond this.
	strictReq, err := buildCarePlanPrompt(profile, true)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build strict prompt", err)
	}

	raw, err = s.complete(ctx, strictReq)
	if err != nil {
		return nil, apperrors.NewUnavailableError("model provider unavailable", err)
	}

	result, parseErr = s.parser.Parse(raw)
	if parseErr != nil {
		return nil, parseErr
	}
	return result, nil
}

// completeWithRetry retries transport failures with backoff. Credential
// rejections and an open circuit breaker are permanent; structural
// failures never reach this loop.
func (s *CarePlanService) completeWithRetry(ctx context.Context, req *entities.PromptRequest) (string, error) {
	var raw string

	err := retry.DoWithLog(ctx, s.retryCfg, "model-provider", func() error {
		var err error
		raw, err = s.complete(ctx, req)
		if err == nil {
			return nil
		}
		if errors.Is(err, providers.ErrModelUnauthorized) || errors.Is(err, gobreaker.ErrOpenState) {
			return retry.Permanent(err)
		}
		return err
	}, func(attempt int, err error, nextDelay time.Duration) {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("next_delay", nextDelay).
			Msg("model provider call failed")
	})

	if err != nil {
		return "", apperrors.NewUnavailableError("model provider unavailable", err)
	}
	return raw, nil
}

func (s *CarePlanService) complete(ctx context.Context, req *entities.PromptRequest) (string, error) {
	if s.provider == nil {
		return "", apperrors.NewUnavailableError("model provider not configured", nil)
	}
	out, err := s.breaker.Execute(func() (interface{}, error) {
		return s.provider.Complete(ctx, req)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// GenerateAndStore runs one generation for the patient and upserts the
// result. Concurrent calls for the same patient share a single in-flight
// generation, so the cache is written once per generation event.
func (s *CarePlanService) GenerateAndStore(ctx context.Context, patientID string, profile *entities.PatientProfile) (*entities.PatientCarePlan, error) {
	if patientID == "" {
		return nil, apperrors.NewValidationError("patient ID is required")
	}

	out, err, _ := s.group.Do(patientID, func() (interface{}, error) {
		result, err := s.Generate(ctx, profile)
		if err != nil {
			return nil, err
		}

		plan := &entities.PatientCarePlan{
			PatientID:   patientID,
			CarePlan:    result.CarePlan,
			DietPlan:    result.DietPlan,
			Activities:  result.Activities,
			AIInsights:  result.AIInsights,
			Source:      entities.CarePlanSourceModel,
			GeneratedAt: time.Now(),
		}

		if err := s.repo.Upsert(ctx, plan); err != nil {
			return nil, err
		}

		s.publishGenerated(ctx, patientID)
		return plan, nil
	})
	if err != nil {
		return nil, err
	}

	return out.(*entities.PatientCarePlan), nil
}

func (s *CarePlanService) publishGenerated(ctx context.Context, patientID string) {
	if s.eventBus == nil {
		return
	}

	event := &entities.CareEvent{
		ID:         uuid.New().String(),
		Type:       entities.CareEventCarePlanGenerated,
		EntityID:   patientID,
		OccurredAt: time.Now(),
	}
	if err := s.eventBus.Publish(ctx, providers.EventChannelCarePlans, event); err != nil {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("patient_id", patientID).
			Msg("failed to publish care plan event")
	}
}
