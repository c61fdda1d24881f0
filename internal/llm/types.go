package llm

import "context"

// Response is the raw outcome of a single model call.
type Response struct {
	Text         string
	TokensIn     int
	TokensOut    int
	FinishReason string
}

// TotalTokens returns the combined prompt and completion token count.
func (r Response) TotalTokens() int {
	return r.TokensIn + r.TokensOut
}

// Provider is the outbound port for one model request. Implementations map
// transport failures onto *llmhttp.Error so callers can distinguish
// transient from permanent ones.
type Provider interface {
	Generate(ctx context.Context, prompt string) (Response, error)
}
