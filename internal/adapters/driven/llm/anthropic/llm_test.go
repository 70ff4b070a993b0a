package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/intentflow/internal/core/domain"
	"github.com/custodia-labs/intentflow/internal/core/ports/driven"
)

func TestNewLLMService(t *testing.T) {
	_, err := NewLLMService(Config{})
	require.Error(t, err)

	svc, err := NewLLMService(Config{APIKey: "sk-ant"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, DefaultBaseURL, svc.baseURL)
	assert.Equal(t, DefaultMaxTokens, svc.maxTokens)
	assert.NoError(t, svc.Close())
}

func TestLLMService_Generate(t *testing.T) {
	reqs := make(chan messagesRequest, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		var req messagesRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		reqs <- req

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"hello "},{"type":"text","text":"world"}]}`))
	}))
	defer server.Close()

	svc, err := NewLLMService(Config{APIKey: "sk-ant", BaseURL: server.URL + "/", Model: "claude-test", MaxTokens: 512})
	require.NoError(t, err)

	text, err := svc.Generate(context.Background(), "say hi", driven.GenerateOptions{System: "be brief"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)

	got := <-reqs

	assert.Equal(t, "claude-test", got.Model)
	assert.Equal(t, 512, got.MaxTokens)
	assert.Equal(t, "be brief", got.System)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "say hi", got.Messages[0].Content)
}

func TestLLMService_Generate_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		want        string
		unavailable bool
		malformed   bool
	}{
		{name: "api error", status: http.StatusUnauthorized, body: `{"error":{"type":"authentication_error","message":"bad key"}}`, want: "bad key"},
		{name: "status without error body", status: http.StatusBadGateway, body: `{}`, want: "status 502", unavailable: true},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"error":{"type":"rate_limit_error","message":"slow down"}}`, want: "slow down", unavailable: true},
		{name: "overloaded", status: 529, body: `{"error":{"type":"overloaded_error","message":"Overloaded"}}`, want: "Overloaded", unavailable: true},
		{name: "html error page", status: http.StatusServiceUnavailable, body: `<html>down</html>`, want: "<html>down</html>", unavailable: true},
		{name: "no text", status: http.StatusOK, body: `{"content":[]}`, want: "no response content"},
		{name: "truncated", status: http.StatusOK, body: `{"content":[{"type":"text","text":"[{"}],"stop_reason":"max_tokens"}`, want: "truncated", malformed: true},
		{name: "not json", status: http.StatusOK, body: `oops`, want: "decode response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			svc, err := NewLLMService(Config{APIKey: "k", BaseURL: server.URL})
			require.NoError(t, err)

			_, err = svc.Generate(context.Background(), "p", driven.GenerateOptions{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, tt.unavailable, errors.Is(err, domain.ErrLLMUnavailable))
			assert.Equal(t, tt.malformed, errors.Is(err, domain.ErrMalformedOutput))
		})
	}
}

func TestLLMService_Generate_APIErrorFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens too large"}}`))
	}))
	defer server.Close()

	svc, err := NewLLMService(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "p", driven.GenerateOptions{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "invalid_request_error", apiErr.Type)
	assert.Equal(t, "max_tokens too large", apiErr.Message)
}

func TestLLMService_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	svc, err := NewLLMService(Config{APIKey: "k", BaseURL: url})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Ping(context.Background()), domain.ErrLLMUnavailable)
	_, err = svc.Generate(context.Background(), "p", driven.GenerateOptions{})
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestLLMService_Ping(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.WriteHeader(int(status.Load()))
	}))
	defer server.Close()

	svc, err := NewLLMService(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	assert.NoError(t, svc.Ping(context.Background()))

	status.Store(http.StatusForbidden)
	err = svc.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}
