// Package gemini is an HTTP adapter for the Google Gemini generateContent
// API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bkyoung/diffcritic/internal/llm"
	"github.com/bkyoung/diffcritic/internal/llm/llmhttp"
)

const (
	serviceName    = "gemini"
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultTimeout = 60 * time.Second
)

// Options controls generation parameters for every call made by the client.
type Options struct {
	SystemInstruction string
	Temperature       float64
	TopP              float64
	MaxOutputTokens   int
}

// Client issues generateContent requests. It makes exactly one attempt per
// Generate call and maps failures onto *llmhttp.Error; the caller owns the
// retry policy so quota gating can run before every attempt.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	options Options
	client  *http.Client
	logger  llmhttp.Logger
}

// NewClient creates a Gemini client for the given model.
func NewClient(apiKey, model string, timeout time.Duration, options Options) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		options: options,
		client:  &http.Client{Timeout: timeout},
	}
}

// SetBaseURL sets a custom base URL (for testing).
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// SetLogger sets the logger for this client.
func (c *Client) SetLogger(logger llmhttp.Logger) {
	c.logger = logger
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Generate sends one prompt to the model and returns the raw response text
// plus usage metadata.
func (c *Client) Generate(ctx context.Context, prompt string) (llm.Response, error) {
	startTime := time.Now()

	if c.logger != nil {
		c.logger.LogRequest(ctx, llmhttp.RequestLog{
			Service:     serviceName,
			Model:       c.model,
			Timestamp:   startTime,
			PromptChars: len(prompt),
			APIKey:      c.apiKey,
		})
	}

	reqBody := GenerateContentRequest{
		Contents: []Content{
			{Parts: []Part{{Text: prompt}}, Role: "user"},
		},
	}
	if c.options.SystemInstruction != "" {
		reqBody.SystemInstruction = &Content{Parts: []Part{{Text: c.options.SystemInstruction}}}
	}

	genCfg := &GenerationConfig{CandidateCount: 1}
	if c.options.Temperature > 0 {
		genCfg.Temperature = c.options.Temperature
	}
	if c.options.TopP > 0 {
		genCfg.TopP = c.options.TopP
	}
	if c.options.MaxOutputTokens > 0 {
		genCfg.MaxOutputTokens = c.options.MaxOutputTokens
	}
	reqBody.GenerationConfig = genCfg

	// Block only high-severity content so code snippets with security issues
	// are not refused outright.
	reqBody.SafetySettings = []SafetySetting{
		{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_ONLY_HIGH"},
		{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_ONLY_HIGH"},
		{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_ONLY_HIGH"},
		{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_ONLY_HIGH"},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return llm.Response{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return llm.Response{}, &llmhttp.Error{
			Type:    llmhttp.ErrTypeUnknown,
			Message: llmhttp.RedactURLSecrets(err.Error()),
			Service: serviceName,
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		callErr := llmhttp.NewTimeoutError(serviceName, llmhttp.RedactURLSecrets(err.Error()))
		c.logError(ctx, callErr, time.Since(startTime))
		return llm.Response{}, callErr
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return llm.Response{}, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		callErr := c.handleErrorResponse(resp.StatusCode, bodyBytes)
		c.logError(ctx, callErr, time.Since(startTime))
		return llm.Response{}, callErr
	}

	var genResp GenerateContentResponse
	if err := json.Unmarshal(bodyBytes, &genResp); err != nil {
		return llm.Response{}, fmt.Errorf("parse response: %w", err)
	}

	if len(genResp.Candidates) == 0 {
		return llm.Response{}, &llmhttp.Error{
			Type:    llmhttp.ErrTypeUnknown,
			Message: "no candidates in response",
			Service: serviceName,
		}
	}

	candidate := genResp.Candidates[0]
	if candidate.FinishReason == "SAFETY" {
		callErr := llmhttp.NewContentFilteredError(serviceName, "content blocked by safety filters")
		c.logError(ctx, callErr, time.Since(startTime))
		return llm.Response{}, callErr
	}

	var textParts []string
	for _, part := range candidate.Content.Parts {
		textParts = append(textParts, part.Text)
	}

	response := llm.Response{
		Text:         strings.Join(textParts, ""),
		TokensIn:     genResp.UsageMetadata.PromptTokenCount,
		TokensOut:    genResp.UsageMetadata.CandidatesTokenCount,
		FinishReason: candidate.FinishReason,
	}

	if c.logger != nil {
		c.logger.LogResponse(ctx, llmhttp.ResponseLog{
			Service:      serviceName,
			Model:        c.model,
			Timestamp:    time.Now(),
			Duration:     time.Since(startTime),
			TokensIn:     response.TokensIn,
			TokensOut:    response.TokensOut,
			StatusCode:   resp.StatusCode,
			FinishReason: response.FinishReason,
		})
	}

	return response, nil
}

// handleErrorResponse maps HTTP status codes to typed errors.
func (c *Client) handleErrorResponse(statusCode int, body []byte) *llmhttp.Error {
	message := fmt.Sprintf("HTTP %d", statusCode)

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	return llmhttp.FromStatusCode(serviceName, statusCode, message)
}

func (c *Client) logError(ctx context.Context, callErr error, duration time.Duration) {
	if c.logger == nil {
		return
	}
	var apiErr *llmhttp.Error
	if errors.As(callErr, &apiErr) {
		c.logger.LogError(ctx, llmhttp.ErrorLog{
			Service:    serviceName,
			Model:      c.model,
			Timestamp:  time.Now(),
			Duration:   duration,
			Error:      callErr,
			ErrorType:  apiErr.Type,
			StatusCode: apiErr.StatusCode,
			Retryable:  apiErr.Retryable,
		})
	}
}
