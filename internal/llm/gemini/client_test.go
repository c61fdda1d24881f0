package gemini_test

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

	"github.com/bkyoung/diffcritic/internal/llm/gemini"
	"github.com/bkyoung/diffcritic/internal/llm/llmhttp"
)

func newTestClient(serverURL string) *gemini.Client {
	client := gemini.NewClient("test-key", "gemini-2.0-flash", 5*time.Second, gemini.Options{
		SystemInstruction: "review the code",
		Temperature:       0.2,
		TopP:              0.95,
		MaxOutputTokens:   1024,
	})
	client.SetBaseURL(serverURL)
	return client
}

func TestGenerateSuccess(t *testing.T) {
	var captured gemini.GenerateContentRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"parts": [{"text": "[]"}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 120, "candidatesTokenCount": 4}
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.Generate(context.Background(), "review this diff")
	require.NoError(t, err)

	assert.Equal(t, "[]", resp.Text)
	assert.Equal(t, 120, resp.TokensIn)
	assert.Equal(t, 4, resp.TokensOut)
	assert.Equal(t, "STOP", resp.FinishReason)
	assert.Equal(t, 124, resp.TotalTokens())

	require.NotNil(t, captured.SystemInstruction)
	assert.Equal(t, "review the code", captured.SystemInstruction.Parts[0].Text)
	assert.Equal(t, "review this diff", captured.Contents[0].Parts[0].Text)
	require.NotNil(t, captured.GenerationConfig)
	assert.Equal(t, 0.2, captured.GenerationConfig.Temperature)
	assert.Equal(t, 1024, captured.GenerationConfig.MaxOutputTokens)
	assert.NotEmpty(t, captured.SafetySettings)
}

func TestGenerateRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"code": 429, "message": "Resource has been exhausted", "status": "RESOURCE_EXHAUSTED"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Generate(context.Background(), "prompt")
	require.Error(t, err)

	var apiErr *llmhttp.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, llmhttp.ErrTypeRateLimit, apiErr.Type)
	assert.True(t, apiErr.Retryable)
	assert.Contains(t, apiErr.Message, "Resource has been exhausted")
}

func TestGenerateAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"message": "API key not valid"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Generate(context.Background(), "prompt")

	var apiErr *llmhttp.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, llmhttp.ErrTypeAuthentication, apiErr.Type)
	assert.False(t, apiErr.Retryable)
}

func TestGenerateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Generate(context.Background(), "prompt")

	var apiErr *llmhttp.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, llmhttp.ErrTypeServiceUnavailable, apiErr.Type)
	assert.True(t, apiErr.Retryable)
}

func TestGenerateSafetyBlock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": []}, "finishReason": "SAFETY"}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Generate(context.Background(), "prompt")

	var apiErr *llmhttp.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, llmhttp.ErrTypeContentFiltered, apiErr.Type)
	assert.False(t, apiErr.Retryable)
}

func TestGenerateNoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates": []}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidates")
}

func TestGenerateNetworkFailureIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestClient(server.URL)
	_, err := client.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.True(t, llmhttp.ShouldRetry(err))
	// The API key travels in the URL; it must never leak into error text.
	assert.NotContains(t, err.Error(), "key=test-key")
}
