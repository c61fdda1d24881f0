package format_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/diffcritic/internal/domain"
	"github.com/bkyoung/diffcritic/internal/format"
)

func TestCommentSingleChunk(t *testing.T) {
	result := domain.ReviewResult{
		ChunksAttempted: 1,
		ChunksSucceeded: 1,
		Findings: []domain.Finding{
			{File: "main.go", Line: 42, Severity: domain.SeverityCritical, Comment: "SQL injection"},
			{File: "util.go", Severity: domain.SeverityImportant, Comment: "file-level concern"},
		},
	}

	body := format.Comment(result)

	assert.Contains(t, body, "**[CRITICAL]** `main.go:42`: SQL injection")
	assert.Contains(t, body, "**[IMPORTANT]** `util.go`: file-level concern")
	assert.NotContains(t, body, "<details>")
	assert.NotContains(t, body, "Warning")
}

func TestCommentMultiChunkFoldsDetail(t *testing.T) {
	result := domain.ReviewResult{
		ChunksAttempted: 3,
		ChunksSucceeded: 3,
		Summary:         "Mostly fine, one risky query.",
		Findings: []domain.Finding{
			{File: "db.go", Line: 10, Severity: domain.SeverityCritical, Comment: "raw query"},
		},
	}

	body := format.Comment(result)

	assert.Contains(t, body, "<details>")
	assert.Contains(t, body, "<summary>Mostly fine, one risky query.</summary>")
	assert.Contains(t, body, "**[CRITICAL]** `db.go:10`: raw query")
}

func TestCommentTruncationWarning(t *testing.T) {
	result := domain.ReviewResult{
		ChunksAttempted: 4,
		ChunksSucceeded: 3,
		Truncated:       true,
		Findings: []domain.Finding{
			{File: "a.go", Line: 1, Severity: domain.SeverityImportant, Comment: "bug"},
		},
	}

	body := format.Comment(result)

	assert.True(t, strings.HasPrefix(body, "> **Warning:** 1 of 4 diff chunks could not be reviewed"))
	assert.Contains(t, body, "`a.go:1`")
}

func TestCommentNoFindings(t *testing.T) {
	body := format.Comment(domain.ReviewResult{ChunksAttempted: 1, ChunksSucceeded: 1})
	assert.Equal(t, "No issues found at the configured severity threshold.", body)
}

func TestCommentIncludesSuggestionFence(t *testing.T) {
	result := domain.ReviewResult{
		ChunksAttempted: 1,
		ChunksSucceeded: 1,
		Findings: []domain.Finding{
			{File: "a.go", Line: 1, Severity: domain.SeverityImportant, Comment: "fix", Suggestion: "x := safe()"},
		},
	}

	body := format.Comment(result)
	assert.Contains(t, body, "```suggestion\nx := safe()\n```")
}

func TestSuggestionFence(t *testing.T) {
	tests := []struct {
		name       string
		suggestion string
		wantFence  string
	}{
		{"plain code", "x := 1", "```"},
		{"inline backticks", "s := `raw`", "```"},
		{"triple backticks inside", "doc := \"```go\"", "````"},
		{"five backticks inside", "weird := \"`````\"", "``````"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fenced := format.SuggestionFence(tc.suggestion)
			require.True(t, strings.HasPrefix(fenced, "\n"+tc.wantFence+"suggestion\n"), "got %q", fenced)
			assert.True(t, strings.HasSuffix(fenced, "\n"+tc.wantFence))
			// The closing fence must be strictly longer than any run inside.
			assert.NotContains(t, tc.suggestion, tc.wantFence)
		})
	}
}

func TestConsoleWriter(t *testing.T) {
	result := domain.ReviewResult{
		ChunksAttempted: 2,
		ChunksSucceeded: 1,
		Truncated:       true,
		Suppressed:      2,
		Summary:         "One real problem.",
		Findings: []domain.Finding{
			{File: "a.go", Line: 3, Severity: domain.SeverityCritical, Comment: "boom", Suggestion: "x := 1"},
		},
	}

	var buf strings.Builder
	require.NoError(t, format.NewConsoleWriter(&buf, false).Write(result))
	out := buf.String()

	assert.Contains(t, out, "Summary")
	assert.Contains(t, out, "One real problem.")
	assert.Contains(t, out, "[Critical] a.go:3")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "> x := 1")
	assert.Contains(t, out, "2 lower-severity finding(s) suppressed")
	assert.Contains(t, out, "1 of 2 chunks could not be reviewed")
	assert.NotContains(t, out, "\033[")
}

func TestConsoleWriterColor(t *testing.T) {
	result := domain.ReviewResult{
		ChunksAttempted: 1,
		ChunksSucceeded: 1,
		Findings: []domain.Finding{
			{File: "a.go", Line: 3, Severity: domain.SeverityCritical, Comment: "boom"},
		},
	}

	var buf strings.Builder
	require.NoError(t, format.NewConsoleWriter(&buf, true).Write(result))
	assert.Contains(t, buf.String(), "\033[31mCritical\033[0m")
}

func TestConsoleWriterNoFindings(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, format.NewConsoleWriter(&buf, false).Write(domain.ReviewResult{}))
	assert.Contains(t, buf.String(), "No issues found")
}
