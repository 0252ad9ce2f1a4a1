package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/entities"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/providers"
	"github.com/zatekoja/Patientcareplandesign/backend/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&config.OpenAIConfig{
		APIKey:         "test-key",
		Model:          "gpt-4o-mini",
		RequestTimeout: 5 * time.Second,
		RateLimitRPM:   -1,
	})
	require.NoError(t, err)
	client.baseURL = server.URL

	return client
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(&config.OpenAIConfig{})
	assert.Error(t, err)

	_, err = NewClient(nil)
	assert.Error(t, err)
}

func TestComplete_ReturnsMessageContent(t *testing.T) {
	var captured map[string]interface{}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"care_plan\":\"Rest.\"}"}}]}`))
	})

	content, err := client.Complete(context.Background(), &entities.PromptRequest{
		System:      "You are a clinical assistant.",
		User:        "Generate a care plan.",
		Temperature: 0.2,
		MaxTokens:   500,
	})

	require.NoError(t, err)
	assert.Equal(t, `{"care_plan":"Rest."}`, content)

	assert.Equal(t, "gpt-4o-mini", captured["model"])
	assert.Equal(t, map[string]interface{}{"type": "json_object"}, captured["response_format"])
	assert.Equal(t, float64(500), captured["max_tokens"])

	messages, ok := captured["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, messages, 2)
	system := messages[0].(map[string]interface{})
	assert.Equal(t, "system", system["role"])
	assert.Equal(t, "You are a clinical assistant.", system["content"])
	user := messages[1].(map[string]interface{})
	assert.Equal(t, "user", user["role"])
}

func TestComplete_DefaultsMaxTokens(t *testing.T) {
	var captured map[string]interface{}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	})

	_, err := client.Complete(context.Background(), &entities.PromptRequest{System: "s", User: "u"})

	require.NoError(t, err)
	assert.Equal(t, float64(800), captured["max_tokens"])
}

func TestComplete_UnauthorizedMapsToModelUnauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Complete(context.Background(), &entities.PromptRequest{System: "s", User: "u"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, providers.ErrModelUnauthorized))
}

func TestComplete_ServerErrorIsNotUnauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Complete(context.Background(), &entities.PromptRequest{System: "s", User: "u"})

	require.Error(t, err)
	assert.False(t, errors.Is(err, providers.ErrModelUnauthorized))
	assert.Contains(t, err.Error(), "status 500")
}

func TestComplete_MissingContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := client.Complete(context.Background(), &entities.PromptRequest{System: "s", User: "u"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing message content")
}

func TestComplete_NilRequest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := client.Complete(context.Background(), nil)
	assert.Error(t, err)
}
