package services_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/application/services"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/entities"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/providers"
)

// MockCacheProvider is an in-memory CacheProvider for service tests.
type MockCacheProvider struct {
	mu      sync.RWMutex
	data    map[string][]byte
	deleted []string
	dropped chan string
}

func NewMockCacheProvider() *MockCacheProvider {
	return &MockCacheProvider{
		data:    make(map[string][]byte),
		deleted: make([]string, 0),
		dropped: make(chan string, 16),
	}
}

func (m *MockCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if val, ok := m.data[key]; ok {
		return val, nil
	}
	return nil, nil
}

func (m *MockCacheProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockCacheProvider) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	m.deleted = append(m.deleted, key)
	return nil
}

// DeletePattern supports the one glob shape the services use: a literal
// prefix followed by a trailing asterisk.
func (m *MockCacheProvider) DeletePattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			delete(m.data, key)
			m.deleted = append(m.deleted, key)
			select {
			case m.dropped <- key:
			default:
			}
		}
	}
	return nil
}

func (m *MockCacheProvider) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok, nil
}

func (m *MockCacheProvider) DeletedKeys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.deleted...)
}

// MockEventBus fans published events out to per-channel subscribers.
type MockEventBus struct {
	mu          sync.Mutex
	subscribers map[string][]chan *entities.CareEvent
	published   []*entities.CareEvent
}

func NewMockEventBus() *MockEventBus {
	return &MockEventBus{
		subscribers: make(map[string][]chan *entities.CareEvent),
		published:   make([]*entities.CareEvent, 0),
	}
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.CareEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, event)
	for _, ch := range m.subscribers[channel] {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.CareEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan *entities.CareEvent, 10)
	m.subscribers[channel] = append(m.subscribers[channel], ch)
	return ch, nil
}

func (m *MockEventBus) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, channels := range m.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}
	m.subscribers = make(map[string][]chan *entities.CareEvent)
	return nil
}

func (m *MockEventBus) Published() []*entities.CareEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*entities.CareEvent(nil), m.published...)
}

func (m *MockEventBus) SubscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers)
}

func TestCacheInvalidationService_Start(t *testing.T) {
	cache := NewMockCacheProvider()
	eventBus := NewMockEventBus()
	service := services.NewCacheInvalidationService(cache, eventBus)

	require.NoError(t, service.Start())
	defer service.Stop()

	assert.Equal(t, 1, eventBus.SubscriberCount())
}

func TestCacheInvalidationService_DropsCachedSurgeryOnSync(t *testing.T) {
	cache := NewMockCacheProvider()
	eventBus := NewMockEventBus()
	service := services.NewCacheInvalidationService(cache, eventBus)

	require.NoError(t, service.Start())
	defer service.Stop()

	ctx := context.Background()
	synced := "http:cache:GET:/api/surgeries/surgery-1"
	other := "http:cache:GET:/api/surgeries/surgery-2"
	require.NoError(t, cache.Set(ctx, synced, []byte("stale"), 5*time.Minute))
	require.NoError(t, cache.Set(ctx, other, []byte("fresh"), 5*time.Minute))

	event := &entities.CareEvent{
		ID:         "evt-1",
		Type:       entities.CareEventSurgeryPlansSynced,
		EntityID:   "surgery-1",
		OccurredAt: time.Now().UTC(),
	}
	require.NoError(t, eventBus.Publish(ctx, providers.EventChannelSurgeries, event))

	select {
	case key := <-cache.dropped:
		assert.Equal(t, synced, key)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for cache invalidation")
	}

	exists, err := cache.Exists(ctx, other)
	require.NoError(t, err)
	assert.True(t, exists, "unrelated surgery's cached response must survive")
}

func TestCacheInvalidationService_InvalidateSurgeryCache(t *testing.T) {
	cache := NewMockCacheProvider()
	eventBus := NewMockEventBus()
	service := services.NewCacheInvalidationService(cache, eventBus)

	ctx := context.Background()
	plain := "http:cache:GET:/api/surgeries/surgery-1"
	withQuery := "http:cache:GET:/api/surgeries/surgery-1:a1b2c3d4"
	require.NoError(t, cache.Set(ctx, plain, []byte("data"), 5*time.Minute))
	require.NoError(t, cache.Set(ctx, withQuery, []byte("data"), 5*time.Minute))

	require.NoError(t, service.InvalidateSurgeryCache(ctx, "surgery-1"))

	assert.ElementsMatch(t, []string{plain, withQuery}, cache.DeletedKeys())
}
