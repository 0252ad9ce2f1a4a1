package services

import (
	"context"
	"fmt"
	"time"

	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/entities"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/providers"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/infrastructure/observability"
)

// CacheInvalidationService drops cached surgery detail responses when a
// sync or delete changes the template. Without it a synced surgery could
// serve its pre-sync plans from the HTTP cache until the TTL expired.
type CacheInvalidationService struct {
	cache    providers.CacheProvider
	eventBus providers.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewCacheInvalidationService creates a new cache invalidation service.
func NewCacheInvalidationService(cache providers.CacheProvider, eventBus providers.EventBus) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		cache:    cache,
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start subscribes to surgery events and begins invalidating.
func (s *CacheInvalidationService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelSurgeries)
	if err != nil {
		return fmt.Errorf("failed to subscribe to surgery events: %w", err)
	}

	go s.processEvents(eventChan)
	observability.GetLogger().Info().Msg("cache invalidation service started")
	return nil
}

// Stop stops the event loop.
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	observability.GetLogger().Info().Msg("cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.CareEvent) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case event := <-eventChan:
			if event == nil {
				continue
			}
			s.handleEvent(event)
		}
	}
}

// handleEvent invalidates the surgery's cached detail responses. Every
// event on the surgery channel means the stored template changed, so the
// event type does not matter here.
func (s *CacheInvalidationService) handleEvent(event *entities.CareEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.InvalidateSurgeryCache(ctx, event.EntityID); err != nil {
		observability.GetLogger().Warn().
			Err(err).
			Str("surgery_id", event.EntityID).
			Str("event_type", string(event.Type)).
			Msg("failed to invalidate surgery cache")
	}
}

// InvalidateSurgeryCache drops every cached response for one surgery.
// The pattern matches the cache middleware's key layout, including
// query-string variants.
func (s *CacheInvalidationService) InvalidateSurgeryCache(ctx context.Context, surgeryID string) error {
	pattern := fmt.Sprintf("http:cache:GET:/api/surgeries/%s*", surgeryID)
	if err := s.cache.DeletePattern(ctx, pattern); err != nil {
		return fmt.Errorf("failed to invalidate surgery cache: %w", err)
	}
	return nil
}
