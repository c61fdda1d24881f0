package static_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/diffcritic/internal/llm/static"
)

func TestProviderReturnsCannedText(t *testing.T) {
	provider := static.NewProvider(`[{"file": "a.go", "line": 1, "severity": "TRIVIAL", "comment": "x"}]`)

	resp, err := provider.Generate(context.Background(), "any prompt")
	require.NoError(t, err)
	assert.Contains(t, resp.Text, "a.go")
	assert.Equal(t, "STOP", resp.FinishReason)
}

func TestProviderDefaultsToEmptyReview(t *testing.T) {
	provider := static.NewProvider("")

	resp, err := provider.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "[]", resp.Text)
}
