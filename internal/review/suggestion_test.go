package review_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bkyoung/diffcritic/internal/review"
)

func TestSanitizeSuggestion(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{
			name:   "plain code passes through",
			input:  "result, err := doWork(ctx)\nif err != nil {\n\treturn err\n}",
			want:   "result, err := doWork(ctx)\nif err != nil {\n\treturn err\n}",
			wantOK: true,
		},
		{
			name:   "empty rejected",
			input:  "",
			wantOK: false,
		},
		{
			name:   "whitespace only rejected",
			input:  "  \n\t",
			wantOK: false,
		},
		{
			name:   "prose advice rejected",
			input:  "Consider adding input validation before processing the request",
			wantOK: false,
		},
		{
			name:   "prose starter rejected",
			input:  "Verify that the user has permission to access this resource",
			wantOK: false,
		},
		{
			name:   "unified diff reduced to additions",
			input:  "--- a/main.go\n+++ b/main.go\n@@ -1,2 +1,2 @@\n-x := unsafe()\n+x := safe()",
			want:   "x := safe()",
			wantOK: true,
		},
		{
			name:   "diff-like lines keep additions only",
			input:  "-old := 1\n+new := 2\n+other := 3",
			want:   "new := 2\nother := 3",
			wantOK: true,
		},
		{
			name:   "single line addition prefix stripped",
			input:  "+return fmt.Errorf(\"boom: %w\", err)",
			want:   "return fmt.Errorf(\"boom: %w\", err)",
			wantOK: true,
		},
		{
			name:   "diff with only removals rejected",
			input:  "@@ -1,2 +1,1 @@\n-delete_me()\n-and_me()",
			wantOK: false,
		},
		{
			name:   "short snippet kept even if wordy",
			input:  "return nil",
			want:   "return nil",
			wantOK: true,
		},
		{
			name:   "python comment counts as code",
			input:  "# retry once before giving up entirely on the request",
			want:   "# retry once before giving up entirely on the request",
			wantOK: true,
		},
		{
			name:   "trailing whitespace trimmed",
			input:  "x := 1  \n",
			want:   "x := 1",
			wantOK: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := review.SanitizeSuggestion(tc.input)
			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}
