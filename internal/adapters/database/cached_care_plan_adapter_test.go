package database_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/adapters/database"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/entities"
)

type stubCarePlanRepo struct {
	plans   map[string]*entities.PatientCarePlan
	reads   int
	deletes int
}

func newStubCarePlanRepo() *stubCarePlanRepo {
	return &stubCarePlanRepo{plans: make(map[string]*entities.PatientCarePlan)}
}

func (r *stubCarePlanRepo) GetByPatientID(ctx context.Context, patientID string) (*entities.PatientCarePlan, error) {
	r.reads++
	if plan, ok := r.plans[patientID]; ok {
		return plan, nil
	}
	return nil, errors.New("not found")
}

func (r *stubCarePlanRepo) Upsert(ctx context.Context, plan *entities.PatientCarePlan) error {
	r.plans[plan.PatientID] = plan
	return nil
}

func (r *stubCarePlanRepo) DeleteByPatientID(ctx context.Context, patientID string) error {
	r.deletes++
	delete(r.plans, patientID)
	return nil
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if val, ok := c.data[key]; ok {
		return val, nil
	}
	return nil, errors.New("cache miss")
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) DeletePattern(ctx context.Context, pattern string) error {
	return nil
}

func (c *memCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok, nil
}

func (c *memCache) seed(t *testing.T, key string, plan *entities.PatientCarePlan) {
	t.Helper()
	data, err := json.Marshal(plan)
	require.NoError(t, err)
	require.NoError(t, c.Set(context.Background(), key, data, time.Minute))
}

func TestCachedCarePlanAdapter(t *testing.T) {
	t.Run("serves the cached plan without touching the database", func(t *testing.T) {
		repo := newStubCarePlanRepo()
		cache := newMemCache()
		adapter := database.NewCachedCarePlanAdapter(repo, cache)

		cache.seed(t, "careplan:patient-1", &entities.PatientCarePlan{
			PatientID: "patient-1",
			CarePlan:  "Rest.",
		})

		plan, err := adapter.GetByPatientID(context.Background(), "patient-1")

		assert.NoError(t, err)
		assert.Equal(t, "Rest.", plan.CarePlan)
		assert.Zero(t, repo.reads)
	})

	t.Run("upsert drops the stale cached entry", func(t *testing.T) {
		repo := newStubCarePlanRepo()
		cache := newMemCache()
		adapter := database.NewCachedCarePlanAdapter(repo, cache)

		cache.seed(t, "careplan:patient-1", &entities.PatientCarePlan{
			PatientID: "patient-1",
			CarePlan:  "Old plan.",
		})

		err := adapter.Upsert(context.Background(), &entities.PatientCarePlan{
			PatientID: "patient-1",
			CarePlan:  "New plan.",
		})

		assert.NoError(t, err)
		exists, err := cache.Exists(context.Background(), "careplan:patient-1")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("delete removes both the row and the cached entry", func(t *testing.T) {
		repo := newStubCarePlanRepo()
		cache := newMemCache()
		adapter := database.NewCachedCarePlanAdapter(repo, cache)

		require.NoError(t, repo.Upsert(context.Background(), &entities.PatientCarePlan{
			PatientID: "patient-1",
			CarePlan:  "Rest.",
		}))
		cache.seed(t, "careplan:patient-1", &entities.PatientCarePlan{
			PatientID: "patient-1",
			CarePlan:  "Rest.",
		})

		err := adapter.DeleteByPatientID(context.Background(), "patient-1")

		assert.NoError(t, err)
		assert.Equal(t, 1, repo.deletes)
		exists, err := cache.Exists(context.Background(), "careplan:patient-1")
		require.NoError(t, err)
		assert.False(t, exists, "cached plan must not outlive the patient")
	})
}
