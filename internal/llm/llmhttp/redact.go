package llmhttp

import (
	"fmt"
	"regexp"
)

// MaxLoggedResponseLength is the maximum length of response text to include
// in logs. Longer responses are truncated so source code and secrets from
// the diff under review do not end up in log aggregators.
const MaxLoggedResponseLength = 200

// TruncateForLogging safely truncates a response string for logging.
func TruncateForLogging(response string) string {
	if len(response) <= MaxLoggedResponseLength {
		return response
	}
	return response[:MaxLoggedResponseLength] + fmt.Sprintf("... [truncated, total length=%d bytes]", len(response))
}

var urlSecretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`key=[^&"\s]+`),
	regexp.MustCompile(`apiKey=[^&"\s]+`),
	regexp.MustCompile(`api_key=[^&"\s]+`),
	regexp.MustCompile(`token=[^&"\s]+`),
	regexp.MustCompile(`access_token=[^&"\s]+`),
}

var urlSecretReplacements = []string{
	"key=[REDACTED]",
	"apiKey=[REDACTED]",
	"api_key=[REDACTED]",
	"token=[REDACTED]",
	"access_token=[REDACTED]",
}

// RedactURLSecrets redacts API keys and other secrets from URLs in error
// messages. The Gemini API passes the key as a query parameter, so request
// failures would otherwise leak it into logs verbatim.
func RedactURLSecrets(text string) string {
	if text == "" {
		return text
	}
	result := text
	for i, pattern := range urlSecretPatterns {
		result = pattern.ReplaceAllString(result, urlSecretReplacements[i])
	}
	return result
}
