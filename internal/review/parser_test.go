package review_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/diffcritic/internal/domain"
	"github.com/bkyoung/diffcritic/internal/review"
)

func TestParseCleanArray(t *testing.T) {
	raw := `[{"file": "main.go", "line": 42, "severity": "CRITICAL", "comment": "SQL injection via string concat"}]`

	result := review.Parse(raw)
	require.False(t, result.Malformed)
	require.Len(t, result.Findings, 1)

	finding := result.Findings[0]
	assert.Equal(t, "main.go", finding.File)
	assert.Equal(t, 42, finding.Line)
	assert.Equal(t, domain.SeverityCritical, finding.Severity)
	assert.Equal(t, "SQL injection via string concat", finding.Comment)
}

func TestParseEmptyArray(t *testing.T) {
	result := review.Parse("[]")
	assert.False(t, result.Malformed)
	assert.Empty(t, result.Findings)
}

func TestParseGarbage(t *testing.T) {
	result := review.Parse("not valid json at all")
	assert.True(t, result.Malformed)
	assert.Empty(t, result.Findings)
	assert.Contains(t, result.Diagnostic, "not valid JSON")
}

func TestParseEmptyResponse(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\t"} {
		result := review.Parse(raw)
		assert.True(t, result.Malformed)
	}
}

func TestParseMarkdownFences(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "json fence",
			raw:  "```json\n[{\"file\": \"a.go\", \"line\": 1, \"severity\": \"IMPORTANT\", \"comment\": \"bug\"}]\n```",
		},
		{
			name: "bare fence",
			raw:  "```\n[{\"file\": \"a.go\", \"line\": 1, \"severity\": \"IMPORTANT\", \"comment\": \"bug\"}]\n```",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := review.Parse(tc.raw)
			require.False(t, result.Malformed)
			require.Len(t, result.Findings, 1)
			assert.Equal(t, domain.SeverityImportant, result.Findings[0].Severity)
		})
	}
}

func TestParseObjectWrappedArray(t *testing.T) {
	raw := `{"reviews": [{"file": "a.go", "line": 3, "severity": "TRIVIAL", "comment": "naming"}]}`

	result := review.Parse(raw)
	require.False(t, result.Malformed)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, "a.go", result.Findings[0].File)
}

func TestParseSingleBareObject(t *testing.T) {
	raw := `{"file": "a.go", "line": 3, "severity": "IMPORTANT", "comment": "off by one"}`

	result := review.Parse(raw)
	require.False(t, result.Malformed)
	require.Len(t, result.Findings, 1)
}

func TestParsePayloadSurroundedByProse(t *testing.T) {
	raw := "Here is my review:\n" +
		`[{"file": "a.go", "line": 7, "severity": "IMPORTANT", "comment": "nil deref"}]` +
		"\nLet me know if you need more detail."

	result := review.Parse(raw)
	require.False(t, result.Malformed)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, 7, result.Findings[0].Line)
}

func TestParseTruncatedArrayRecoversLeadingItems(t *testing.T) {
	raw := `[{"file": "a.go", "line": 1, "severity": "CRITICAL", "comment": "first"},` +
		`{"file": "b.go", "line": 2, "severity": "IMPORTANT", "comment": "second"},` +
		`{"file": "c.go", "line": 3, "sev`

	result := review.Parse(raw)
	require.False(t, result.Malformed)
	require.Len(t, result.Findings, 2)
	assert.Equal(t, "a.go", result.Findings[0].File)
	assert.Equal(t, "b.go", result.Findings[1].File)
}

func TestParseSeverityCoercion(t *testing.T) {
	tests := []struct {
		value string
		want  domain.Severity
	}{
		{"CRITICAL", domain.SeverityCritical},
		{"critical", domain.SeverityCritical},
		{"Important", domain.SeverityImportant},
		{"TRIVIAL", domain.SeverityTrivial},
		{"blocker", domain.SeverityTrivial},
		{"", domain.SeverityTrivial},
	}

	for _, tc := range tests {
		raw := `[{"file": "a.go", "line": 1, "severity": "` + tc.value + `", "comment": "x marks the spot"}]`
		result := review.Parse(raw)
		require.Len(t, result.Findings, 1, "severity %q", tc.value)
		assert.Equal(t, tc.want, result.Findings[0].Severity, "severity %q", tc.value)
	}
}

func TestParseLineCoercion(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"string line", `[{"file": "a.go", "line": "17", "severity": "TRIVIAL", "comment": "c"}]`, 17},
		{"missing line", `[{"file": "a.go", "severity": "TRIVIAL", "comment": "c"}]`, 0},
		{"negative line", `[{"file": "a.go", "line": -4, "severity": "TRIVIAL", "comment": "c"}]`, 0},
		{"non-numeric string", `[{"file": "a.go", "line": "abc", "severity": "TRIVIAL", "comment": "c"}]`, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := review.Parse(tc.raw)
			require.Len(t, result.Findings, 1)
			assert.Equal(t, tc.want, result.Findings[0].Line)
		})
	}
}

func TestParseDropsItemsMissingRequiredFields(t *testing.T) {
	raw := `[
		{"file": "", "line": 1, "severity": "CRITICAL", "comment": "no file"},
		{"file": "a.go", "line": 1, "severity": "CRITICAL", "comment": ""},
		{"line": 1, "severity": "CRITICAL", "comment": "no file key"},
		{"file": "keep.go", "line": 1, "severity": "CRITICAL", "comment": "kept"}
	]`

	result := review.Parse(raw)
	require.False(t, result.Malformed)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, "keep.go", result.Findings[0].File)
}

func TestParseSanitizesSuggestions(t *testing.T) {
	raw := `[
		{"file": "a.go", "line": 1, "severity": "IMPORTANT", "comment": "fix", "suggestion": "value := compute(x)"},
		{"file": "b.go", "line": 2, "severity": "IMPORTANT", "comment": "fix", "suggestion": "Consider refactoring this function to be more readable"}
	]`

	result := review.Parse(raw)
	require.Len(t, result.Findings, 2)
	assert.Equal(t, "value := compute(x)", result.Findings[0].Suggestion)
	assert.Empty(t, result.Findings[1].Suggestion)
}

func TestParseNonArrayScalar(t *testing.T) {
	result := review.Parse(`"just a string"`)
	assert.True(t, result.Malformed)
}
