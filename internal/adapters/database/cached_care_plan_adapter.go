package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/entities"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/providers"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/repositories"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/infrastructure/observability"
)

// CachedCarePlanAdapter wraps a CarePlanRepository with read-through
// caching. A care plan only changes on regeneration, so the cache entry is
// invalidated exactly when Upsert succeeds.
type CachedCarePlanAdapter struct {
	adapter repositories.CarePlanRepository
	cache   providers.CacheProvider
}

// NewCachedCarePlanAdapter creates a new cached care plan adapter
func NewCachedCarePlanAdapter(adapter repositories.CarePlanRepository, cache providers.CacheProvider) repositories.CarePlanRepository {
	return &CachedCarePlanAdapter{
		adapter: adapter,
		cache:   cache,
	}
}

const carePlanTTL = 10 * time.Minute

func carePlanCacheKey(patientID string) string {
	return fmt.Sprintf("careplan:%s", patientID)
}

// GetByPatientID retrieves a care plan, preferring the cache.
func (a *CachedCarePlanAdapter) GetByPatientID(ctx context.Context, patientID string) (*entities.PatientCarePlan, error) {
	cacheKey := carePlanCacheKey(patientID)

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var plan entities.PatientCarePlan
		if err := json.Unmarshal(cached, &plan); err == nil {
			return &plan, nil
		}
		observability.LoggerFromContext(ctx).Warn().
			Str("patient_id", patientID).
			Msg("failed to unmarshal cached care plan, falling back to database")
	}

	plan, err := a.adapter.GetByPatientID(ctx, patientID)
	if err != nil {
		return nil, err
	}

	// Cache write happens off the request path
	go func() {
		bgCtx := context.Background()
		if data, err := json.Marshal(plan); err == nil {
			if err := a.cache.Set(bgCtx, cacheKey, data, carePlanTTL); err != nil {
				observability.GetLogger().Warn().
					Err(err).
					Str("patient_id", patientID).
					Msg("failed to cache care plan")
			}
		}
	}()

	return plan, nil
}

// Upsert writes through to the database and drops the cached entry.
func (a *CachedCarePlanAdapter) Upsert(ctx context.Context, plan *entities.PatientCarePlan) error {
	if err := a.adapter.Upsert(ctx, plan); err != nil {
		return err
	}

	if err := a.cache.Delete(ctx, carePlanCacheKey(plan.PatientID)); err != nil {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("patient_id", plan.PatientID).
			Msg("failed to invalidate care plan cache")
	}

	return nil
}

// DeleteByPatientID deletes the stored plan and drops the cached entry,
// so a deleted patient never leaves a plan behind for the TTL window.
func (a *CachedCarePlanAdapter) DeleteByPatientID(ctx context.Context, patientID string) error {
	if err := a.adapter.DeleteByPatientID(ctx, patientID); err != nil {
		return err
	}

	if err := a.cache.Delete(ctx, carePlanCacheKey(patientID)); err != nil {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("patient_id", patientID).
			Msg("failed to invalidate care plan cache")
	}

	return nil
}
