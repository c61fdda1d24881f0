// Package llm provides the model provider port and shared helpers.
package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	defaultEncoder *tiktoken.Tiktoken
	encoderOnce    sync.Once
	encoderErr     error
)

// getEncoder returns the shared tiktoken encoder, initializing it lazily.
func getEncoder() (*tiktoken.Tiktoken, error) {
	encoderOnce.Do(func() {
		defaultEncoder, encoderErr = tiktoken.GetEncoding("cl100k_base")
	})
	return defaultEncoder, encoderErr
}

// EstimateTokens returns an estimated token count for the given text using
// the cl100k_base encoding. Gemini uses a different tokenizer, but the
// estimate is close enough for quota budgeting; the tracker is reconciled
// with actual usage metadata after each call.
func EstimateTokens(text string) int {
	enc, err := getEncoder()
	if err != nil {
		// Rough chars-per-token fallback if the encoding is unavailable.
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
