package llmhttp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
)

// Logger provides structured logging for external API calls and run events.
type Logger interface {
	// LogRequest logs an outgoing API request (API key redacted).
	LogRequest(ctx context.Context, req RequestLog)

	// LogResponse logs an API response with timing and token info.
	LogResponse(ctx context.Context, resp ResponseLog)

	// LogError logs an API error.
	LogError(ctx context.Context, errLog ErrorLog)

	// LogInfo logs an informational run event with structured fields.
	LogInfo(ctx context.Context, message string, fields map[string]any)

	// LogWarning logs a warning run event with structured fields.
	LogWarning(ctx context.Context, message string, fields map[string]any)
}

// RequestLog contains request information for logging.
type RequestLog struct {
	Service     string
	Model       string
	Timestamp   time.Time
	PromptChars int
	APIKey      string // redacted to last 4 chars on output
}

// ResponseLog contains response information for logging.
type ResponseLog struct {
	Service      string
	Model        string
	Timestamp    time.Time
	Duration     time.Duration
	TokensIn     int
	TokensOut    int
	StatusCode   int
	FinishReason string
}

// ErrorLog contains error information for logging.
type ErrorLog struct {
	Service    string
	Model      string
	Timestamp  time.Time
	Duration   time.Duration
	Error      error
	ErrorType  ErrorType
	StatusCode int
	Retryable  bool
}

// LogLevel defines the logging verbosity level.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelError
)

// ParseLogLevel maps a config string onto a LogLevel, defaulting to info.
func ParseLogLevel(value string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return LogLevelDebug
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// LogFormat defines the output format for logs.
type LogFormat int

const (
	LogFormatHuman LogFormat = iota
	LogFormatJSON
)

// ParseLogFormat maps a config string onto a LogFormat, defaulting to human.
func ParseLogFormat(value string) LogFormat {
	if strings.EqualFold(strings.TrimSpace(value), "json") {
		return LogFormatJSON
	}
	return LogFormatHuman
}

// DefaultLogger writes structured logs via the stdlib log package.
type DefaultLogger struct {
	level      LogLevel
	format     LogFormat
	redactKeys bool
}

// NewDefaultLogger creates a logger with the specified config.
func NewDefaultLogger(level LogLevel, format LogFormat, redactKeys bool) *DefaultLogger {
	return &DefaultLogger{
		level:      level,
		format:     format,
		redactKeys: redactKeys,
	}
}

// RedactAPIKey reduces an API key to its last 4 characters.
func (l *DefaultLogger) RedactAPIKey(key string) string {
	if !l.redactKeys {
		return key
	}
	if len(key) <= 4 {
		return "****"
	}
	return "..." + key[len(key)-4:]
}

// LogRequest logs an API request at debug level.
func (l *DefaultLogger) LogRequest(ctx context.Context, req RequestLog) {
	if l.level > LogLevelDebug {
		return
	}

	redacted := l.RedactAPIKey(req.APIKey)
	if l.format == LogFormatJSON {
		log.Printf(`{"level":"debug","type":"request","service":"%s","model":"%s","timestamp":"%s","prompt_chars":%d,"api_key":"%s"}`,
			req.Service, req.Model, req.Timestamp.Format(time.RFC3339), req.PromptChars, redacted)
	} else {
		log.Printf("[DEBUG] %s/%s: request sent (prompt=%d chars, key=%s)",
			req.Service, req.Model, req.PromptChars, redacted)
	}
}

// LogResponse logs an API response at info level.
func (l *DefaultLogger) LogResponse(ctx context.Context, resp ResponseLog) {
	if l.level > LogLevelInfo {
		return
	}

	if l.format == LogFormatJSON {
		log.Printf(`{"level":"info","type":"response","service":"%s","model":"%s","duration_ms":%d,"tokens_in":%d,"tokens_out":%d,"status":%d,"finish_reason":"%s"}`,
			resp.Service, resp.Model, resp.Duration.Milliseconds(), resp.TokensIn, resp.TokensOut, resp.StatusCode, resp.FinishReason)
	} else {
		log.Printf("[INFO] %s/%s: response in %s (tokens in=%d out=%d, finish=%s)",
			resp.Service, resp.Model, resp.Duration.Round(time.Millisecond), resp.TokensIn, resp.TokensOut, resp.FinishReason)
	}
}

// LogError logs an API error.
func (l *DefaultLogger) LogError(ctx context.Context, errLog ErrorLog) {
	message := ""
	if errLog.Error != nil {
		message = RedactURLSecrets(errLog.Error.Error())
	}

	if l.format == LogFormatJSON {
		encoded, _ := json.Marshal(message)
		log.Printf(`{"level":"error","type":"api_error","service":"%s","model":"%s","error_type":"%s","status":%d,"retryable":%t,"error":%s}`,
			errLog.Service, errLog.Model, errLog.ErrorType.String(), errLog.StatusCode, errLog.Retryable, encoded)
	} else {
		log.Printf("[ERROR] %s/%s: %s (type=%s, status=%d, retryable=%t)",
			errLog.Service, errLog.Model, message, errLog.ErrorType.String(), errLog.StatusCode, errLog.Retryable)
	}
}

// LogInfo logs an informational run event.
func (l *DefaultLogger) LogInfo(ctx context.Context, message string, fields map[string]any) {
	if l.level > LogLevelInfo {
		return
	}
	l.logEvent("info", "INFO", message, fields)
}

// LogWarning logs a warning run event. Warnings are always emitted.
func (l *DefaultLogger) LogWarning(ctx context.Context, message string, fields map[string]any) {
	l.logEvent("warning", "WARN", message, fields)
}

func (l *DefaultLogger) logEvent(jsonLevel, humanLevel, message string, fields map[string]any) {
	if l.format == LogFormatJSON {
		payload := map[string]any{"level": jsonLevel, "message": message}
		for k, v := range fields {
			payload[k] = v
		}
		encoded, err := json.Marshal(payload)
		if err != nil {
			log.Printf(`{"level":"%s","message":%q}`, jsonLevel, message)
			return
		}
		log.Print(string(encoded))
		return
	}

	log.Printf("[%s] %s%s", humanLevel, message, formatFields(fields))
}

func formatFields(fields map[string]any) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var builder strings.Builder
	builder.WriteString(" (")
	for i, k := range keys {
		if i > 0 {
			builder.WriteString(", ")
		}
		fmt.Fprintf(&builder, "%s=%v", k, fields[k])
	}
	builder.WriteString(")")
	return builder.String()
}
