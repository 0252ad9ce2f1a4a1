package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/application/services"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/entities"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/providers"
	apperrors "github.com/zatekoja/Patientcareplandesign/backend/pkg/errors"
)

// Mocks

type MockModelProvider struct {
	mock.Mock
}

func (m *MockModelProvider) Complete(ctx context.Context, req *entities.PromptRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type MockCarePlanRepository struct {
	mock.Mock
}

func (m *MockCarePlanRepository) GetByPatientID(ctx context.Context, patientID string) (*entities.PatientCarePlan, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PatientCarePlan), args.Error(1)
}

func (m *MockCarePlanRepository) Upsert(ctx context.Context, plan *entities.PatientCarePlan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

func (m *MockCarePlanRepository) DeleteByPatientID(ctx context.Context, patientID string) error {
	args := m.Called(ctx, patientID)
	return args.Error(0)
}

func validProfile() *entities.PatientProfile {
	return &entities.PatientProfile{
		Name:        "Adaeze Okafor",
		Age:         34,
		Gender:      "female",
		SurgeryName: "Appendectomy",
	}
}

const goodResponse = `{"care_plan":"Bed rest for 48 hours.","diet_plan":"Soft foods only.","activities":["Walking"],"ai_insights":"Low risk."}`

// Tests

func TestCarePlanService_Generate(t *testing.T) {
	t.Run("returns a complete result on a clean response", func(t *testing.T) {
		provider := new(MockModelProvider)
		repo := new(MockCarePlanRepository)
		service := services.NewCarePlanService(provider, repo, nil, nil, 30*time.Second)

		provider.On("Complete", mock.Anything, mock.Anything).Return(goodResponse, nil).Once()

		result, err := service.Generate(context.Background(), validProfile())

		assert.NoError(t, err)
		assert.Equal(t, "Bed rest for 48 hours.", result.CarePlan)
		assert.Equal(t, []string{"Walking"}, result.Activities)
		provider.AssertExpectations(t)
	})

	t.Run("rejects an insufficient profile without calling the provider", func(t *testing.T) {
		provider := new(MockModelProvider)
		repo := new(MockCarePlanRepository)
		service := services.NewCarePlanService(provider, repo, nil, nil, 30*time.Second)

		profile := &entities.PatientProfile{Age: 50}

		result, err := service.Generate(context.Background(), profile)

		assert.Nil(t, result)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
		provider.AssertNotCalled(t, "Complete")
	})

	t.Run("returns unavailable after transport retries are exhausted", func(t *testing.T) {
		provider := new(MockModelProvider)
		repo := new(MockCarePlanRepository)
		service := services.NewCarePlanService(provider, repo, nil, nil, 30*time.Second)

		provider.On("Complete", mock.Anything, mock.Anything).
			Return("", errors.New("connection reset")).Times(3)

		result, err := service.Generate(context.Background(), validProfile())

		assert.Nil(t, result)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnavailable))
		provider.AssertExpectations(t)
		repo.AssertNotCalled(t, "Upsert")
	})

	t.Run("does not retry credential rejections", func(t *testing.T) {
		provider := new(MockModelProvider)
		repo := new(MockCarePlanRepository)
		service := services.NewCarePlanService(provider, repo, nil, nil, 30*time.Second)

		provider.On("Complete", mock.Anything, mock.Anything).
			Return("", providers.ErrModelUnauthorized).Once()

		_, err := service.Generate(context.Background(), validProfile())

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnavailable))
		provider.AssertNumberOfCalls(t, "Complete", 1)
	})

	t.Run("re-issues once with a strict instruction after a parse failure", func(t *testing.T) {
		provider := new(MockModelProvider)
		repo := new(MockCarePlanRepository)
		service := services.NewCarePlanService(provider, repo, nil, nil, 30*time.Second)

		provider.On("Complete", mock.Anything, mock.MatchedBy(func(req *entities.PromptRequest) bool {
			return !strictPrompt(req)
		})).Return("I cannot produce that.", nil).Once()
		provider.On("Complete", mock.Anything, mock.MatchedBy(strictPrompt)).
			Return(goodResponse, nil).Once()

		result, err := service.Generate(context.Background(), validProfile())

		assert.NoError(t, err)
		assert.Equal(t, "Soft foods only.", result.DietPlan)
		provider.AssertExpectations(t)
	})

	t.Run("returns malformed when the strict re-issue also fails to parse", func(t *testing.T) {
		provider := new(MockModelProvider)
		repo := new(MockCarePlanRepository)
		service := services.NewCarePlanService(provider, repo, nil, nil, 30*time.Second)

		provider.On("Complete", mock.Anything, mock.Anything).
			Return("still not structured output", nil).Times(2)

		result, err := service.Generate(context.Background(), validProfile())

		assert.Nil(t, result)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeMalformed))
		provider.AssertExpectations(t)
		repo.AssertNotCalled(t, "Upsert")
	})
}

// strictPrompt reports whether the request carries the re-issue
// instruction demanding JSON only.
func strictPrompt(req *entities.PromptRequest) bool {
	return strings.Contains(req.System, "could not be parsed")
}

func TestCarePlanService_GenerateAndStore(t *testing.T) {
	t.Run("stores the generated plan once and returns it", func(t *testing.T) {
		provider := new(MockModelProvider)
		repo := new(MockCarePlanRepository)
		service := services.NewCarePlanService(provider, repo, nil, nil, 30*time.Second)

		provider.On("Complete", mock.Anything, mock.Anything).Return(goodResponse, nil).Once()
		repo.On("Upsert", mock.Anything, mock.MatchedBy(func(plan *entities.PatientCarePlan) bool {
			return plan.PatientID == "patient-1" &&
				plan.Source == entities.CarePlanSourceModel &&
				plan.CarePlan == "Bed rest for 48 hours." &&
				!plan.GeneratedAt.IsZero()
		})).Return(nil).Once()

		plan, err := service.GenerateAndStore(context.Background(), "patient-1", validProfile())

		assert.NoError(t, err)
		assert.Equal(t, "patient-1", plan.PatientID)
		provider.AssertExpectations(t)
		repo.AssertExpectations(t)
	})

	t.Run("does not store anything when generation fails", func(t *testing.T) {
		provider := new(MockModelProvider)
		repo := new(MockCarePlanRepository)
		service := services.NewCarePlanService(provider, repo, nil, nil, 30*time.Second)

		provider.On("Complete", mock.Anything, mock.Anything).
			Return("", providers.ErrModelUnauthorized).Once()

		plan, err := service.GenerateAndStore(context.Background(), "patient-1", validProfile())

		assert.Nil(t, plan)
		assert.Error(t, err)
		repo.AssertNotCalled(t, "Upsert")
	})

	t.Run("propagates the store failure", func(t *testing.T) {
		provider := new(MockModelProvider)
		repo := new(MockCarePlanRepository)
		service := services.NewCarePlanService(provider, repo, nil, nil, 30*time.Second)

		provider.On("Complete", mock.Anything, mock.Anything).Return(goodResponse, nil).Once()
		repo.On("Upsert", mock.Anything, mock.Anything).
			Return(apperrors.NewInternalError("write failed", errors.New("disk full"))).Once()

		plan, err := service.GenerateAndStore(context.Background(), "patient-1", validProfile())

		assert.Nil(t, plan)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
	})

	t.Run("concurrent calls for one patient share a single generation", func(t *testing.T) {
		provider := new(MockModelProvider)
		repo := new(MockCarePlanRepository)
		service := services.NewCarePlanService(provider, repo, nil, nil, 30*time.Second)

		entered := make(chan struct{})
		release := make(chan struct{})
		provider.On("Complete", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			close(entered)
			<-release
		}).Return(goodResponse, nil).Once()
		repo.On("Upsert", mock.Anything, mock.Anything).Return(nil).Once()

		type outcome struct {
			plan *entities.PatientCarePlan
			err  error
		}
		results := make(chan outcome, 2)
		run := func() {
			plan, err := service.GenerateAndStore(context.Background(), "patient-1", validProfile())
			results <- outcome{plan, err}
		}

		go run()
		select {
		case <-entered:
		case <-time.After(2 * time.Second):
			t.Fatal("first generation never started")
		}

		// The second caller arrives while the first generation is still
		// in flight and must join it instead of starting its own.
		go run()
		time.Sleep(50 * time.Millisecond)
		close(release)

		for i := 0; i < 2; i++ {
			select {
			case res := <-results:
				assert.NoError(t, res.err)
				assert.Equal(t, "patient-1", res.plan.PatientID)
			case <-time.After(2 * time.Second):
				t.Fatal("generation never completed")
			}
		}

		provider.AssertNumberOfCalls(t, "Complete", 1)
		repo.AssertNumberOfCalls(t, "Upsert", 1)
	})

	t.Run("stops retrying when the caller cancels", func(t *testing.T) {
		provider := new(MockModelProvider)
		repo := new(MockCarePlanRepository)
		service := services.NewCarePlanService(provider, repo, nil, nil, 30*time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		provider.On("Complete", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			cancel()
		}).Return("", errors.New("dial tcp: connection refused")).Once()

		plan, err := service.GenerateAndStore(ctx, "patient-1", validProfile())

		assert.Nil(t, plan)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnavailable))
		assert.True(t, errors.Is(err, context.Canceled))
		provider.AssertNumberOfCalls(t, "Complete", 1)
		repo.AssertNotCalled(t, "Upsert")
	})
}
