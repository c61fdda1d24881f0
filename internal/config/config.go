// Package config loads and validates the application configuration from
// files and environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/bkyoung/diffcritic/internal/domain"
	"github.com/bkyoung/diffcritic/internal/llm/llmhttp"
)

// Config represents the full application configuration.
type Config struct {
	Provider  ProviderConfig  `yaml:"provider"`
	Review    ReviewConfig    `yaml:"review"`
	Quota     QuotaConfig     `yaml:"quota"`
	HTTP      HTTPConfig      `yaml:"http"`
	GitHub    GitHubConfig    `yaml:"github"`
	Git       GitConfig       `yaml:"git"`
	Logging   LoggingConfig   `yaml:"logging"`
	Redaction RedactionConfig `yaml:"redaction"`
}

// ProviderConfig configures the LLM provider.
type ProviderConfig struct {
	// Name selects the provider implementation: "gemini" or "static".
	Name   string `yaml:"name"`
	Model  string `yaml:"model"`
	APIKey string `yaml:"apiKey"`

	Temperature     float64 `yaml:"temperature"`
	TopP            float64 `yaml:"topP"`
	MaxOutputTokens int     `yaml:"maxOutputTokens"`
	Timeout         string  `yaml:"timeout"`

	// StaticResponse is the canned response used by the static provider.
	StaticResponse string `yaml:"staticResponse"`
}

// ReviewConfig configures the review run itself.
type ReviewConfig struct {
	// ChunkSize is the maximum chunk size in characters.
	ChunkSize int `yaml:"chunkSize"`

	// Threshold is the minimum severity to surface: trivial, important
	// or critical.
	Threshold string `yaml:"threshold"`

	MaxAttempts int `yaml:"maxAttempts"`
	Concurrency int `yaml:"concurrency"`

	// MinRequestInterval spaces out model requests, e.g. "6s".
	MinRequestInterval string `yaml:"minRequestInterval"`

	// Instructions are custom instructions appended to the review prompt.
	Instructions string `yaml:"instructions"`
}

// QuotaConfig holds the provider rate limits. Zero disables a dimension.
type QuotaConfig struct {
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	TokensPerMinute   int  `yaml:"tokensPerMinute"`
	RequestsPerDay    int  `yaml:"requestsPerDay"`
	FailFast          bool `yaml:"failFast"`
}

// HTTPConfig holds retry and backoff settings for outbound API calls.
type HTTPConfig struct {
	Timeout           string  `yaml:"timeout"`
	MaxRetries        int     `yaml:"maxRetries"`
	InitialBackoff    string  `yaml:"initialBackoff"`
	MaxBackoff        string  `yaml:"maxBackoff"`
	BackoffMultiplier float64 `yaml:"backoffMultiplier"`
}

// GitHubConfig configures posting the review back to a pull request.
type GitHubConfig struct {
	Token string `yaml:"token"`
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
}

// GitConfig configures local diff computation.
type GitConfig struct {
	RepositoryDir string `yaml:"repositoryDir"`
	BaseRef       string `yaml:"baseRef"`
	TargetRef     string `yaml:"targetRef"`
}

// LoggingConfig configures request/response logging.
type LoggingConfig struct {
	Level         string `yaml:"level"`  // debug, info, error
	Format        string `yaml:"format"` // json, human
	RedactAPIKeys bool   `yaml:"redactAPIKeys"`
}

// RedactionConfig toggles secret redaction of the diff before prompting.
type RedactionConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Threshold parses the configured severity threshold.
func (c ReviewConfig) ParsedThreshold() (domain.Severity, error) {
	severity, ok := domain.ParseSeverity(c.Threshold)
	if !ok {
		return 0, fmt.Errorf("%w: unknown review threshold %q", domain.ErrConfiguration, c.Threshold)
	}
	return severity, nil
}

// ParsedMinRequestInterval parses the request spacing duration.
func (c ReviewConfig) ParsedMinRequestInterval() (time.Duration, error) {
	return parseDuration("review.minRequestInterval", c.MinRequestInterval, 0)
}

// RetryConfig converts the HTTP settings into a retry configuration,
// falling back to defaults for unset fields.
func (c HTTPConfig) RetryConfig() (llmhttp.RetryConfig, error) {
	retry := llmhttp.DefaultRetryConfig()

	if c.MaxRetries > 0 {
		retry.MaxRetries = c.MaxRetries
	}
	if c.BackoffMultiplier > 0 {
		retry.Multiplier = c.BackoffMultiplier
	}

	initial, err := parseDuration("http.initialBackoff", c.InitialBackoff, retry.InitialBackoff)
	if err != nil {
		return llmhttp.RetryConfig{}, err
	}
	retry.InitialBackoff = initial

	maxBackoff, err := parseDuration("http.maxBackoff", c.MaxBackoff, retry.MaxBackoff)
	if err != nil {
		return llmhttp.RetryConfig{}, err
	}
	retry.MaxBackoff = maxBackoff

	return retry, nil
}

// ParsedTimeout parses the provider request timeout.
func (c ProviderConfig) ParsedTimeout() (time.Duration, error) {
	return parseDuration("provider.timeout", c.Timeout, 0)
}

// Validate checks the settings a review run cannot proceed without.
func (c Config) Validate() error {
	if c.Review.ChunkSize <= 0 {
		return fmt.Errorf("%w: review.chunkSize must be positive, got %d", domain.ErrConfiguration, c.Review.ChunkSize)
	}
	if _, err := c.Review.ParsedThreshold(); err != nil {
		return err
	}
	if c.Provider.Name == "gemini" && c.Provider.APIKey == "" {
		return fmt.Errorf("%w: provider.apiKey is required for the gemini provider", domain.ErrConfiguration)
	}
	return nil
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q: %v", domain.ErrConfiguration, field, value, err)
	}
	return d, nil
}
