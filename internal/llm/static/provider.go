// Package static is a canned provider for offline runs and tests.
package static

import (
	"context"

	"github.com/bkyoung/diffcritic/internal/llm"
)

// Provider returns a fixed response for every prompt. It lets the pipeline
// run end to end without network access or an API key.
type Provider struct {
	text string
}

// NewProvider constructs a static Provider returning the given text. An
// empty text defaults to an empty findings array, the shape the parser
// expects from a clean review.
func NewProvider(text string) *Provider {
	if text == "" {
		text = "[]"
	}
	return &Provider{text: text}
}

// Generate returns the canned response.
func (p *Provider) Generate(ctx context.Context, prompt string) (llm.Response, error) {
	return llm.Response{
		Text:         p.text,
		TokensIn:     len(prompt) / 4,
		TokensOut:    len(p.text) / 4,
		FinishReason: "STOP",
	}, nil
}
