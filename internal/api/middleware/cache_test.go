package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/api/middleware"
)

type stubCache struct {
	data map[string][]byte
}

func newStubCache() *stubCache {
	return &stubCache{data: make(map[string][]byte)}
}

func (c *stubCache) Get(ctx context.Context, key string) ([]byte, error) {
	if val, ok := c.data[key]; ok {
		return val, nil
	}
	return nil, errors.New("cache miss")
}

func (c *stubCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.data[key] = value
	return nil
}

func (c *stubCache) Delete(ctx context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func (c *stubCache) DeletePattern(ctx context.Context, pattern string) error {
	return nil
}

func (c *stubCache) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := c.data[key]
	return ok, nil
}

func TestCacheMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"surgery-1"}`))
	})

	t.Run("stores surgery responses under a readable key", func(t *testing.T) {
		cache := newStubCache()
		mw := middleware.NewCacheMiddleware(cache, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/surgeries/surgery-1", nil)
		rec := httptest.NewRecorder()
		mw.Middleware(handler).ServeHTTP(rec, req)

		assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
		// Mutations invalidate by prefix, so the key must carry the
		// plain method and path rather than a digest of them.
		cached, ok := cache.data["http:cache:GET:/api/surgeries/surgery-1"]
		require.True(t, ok, "response was not cached under the readable key")
		assert.JSONEq(t, `{"id":"surgery-1"}`, string(cached))
	})

	t.Run("serves the cached copy on the second read", func(t *testing.T) {
		cache := newStubCache()
		mw := middleware.NewCacheMiddleware(cache, nil)

		first := httptest.NewRecorder()
		mw.Middleware(handler).ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/surgeries/surgery-1", nil))
		second := httptest.NewRecorder()
		mw.Middleware(handler).ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/surgeries/surgery-1", nil))

		assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
		assert.JSONEq(t, `{"id":"surgery-1"}`, second.Body.String())
	})

	t.Run("keeps query variants under the same resource prefix", func(t *testing.T) {
		cache := newStubCache()
		mw := middleware.NewCacheMiddleware(cache, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/surgeries/surgery-1?expand=plans", nil)
		rec := httptest.NewRecorder()
		mw.Middleware(handler).ServeHTTP(rec, req)

		require.Len(t, cache.data, 1)
		for key := range cache.data {
			assert.Contains(t, key, "http:cache:GET:/api/surgeries/surgery-1:")
		}
	})

	t.Run("never caches patient reads", func(t *testing.T) {
		cache := newStubCache()
		mw := middleware.NewCacheMiddleware(cache, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/patients/patient-1", nil)
		rec := httptest.NewRecorder()
		mw.Middleware(handler).ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("X-Cache"))
		assert.Empty(t, cache.data)
	})
}
