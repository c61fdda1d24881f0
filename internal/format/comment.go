// Package format renders a review result for its two destinations: a
// hosting-platform comment body and the local console.
package format

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bkyoung/diffcritic/internal/domain"
)

var backtickRuns = regexp.MustCompile("`+")

// Comment renders the final review as a markdown comment body. Multi-chunk
// runs with a summary fold the per-finding detail into a <details> block so
// the summary leads. A truncated run carries an explicit warning so partial
// feedback is never mistaken for a complete review.
func Comment(result domain.ReviewResult) string {
	body := findingsBody(result)

	var parts []string
	if result.Truncated {
		parts = append(parts, fmt.Sprintf(
			"> **Warning:** %d of %d diff chunks could not be reviewed; this feedback may be incomplete.",
			result.ChunksAttempted-result.ChunksSucceeded, result.ChunksAttempted))
	}

	if result.Summary != "" && result.ChunksAttempted > 1 {
		parts = append(parts, fmt.Sprintf("<details>\n<summary>%s</summary>\n\n%s\n\n</details>",
			strings.TrimSpace(result.Summary), body))
	} else if body != "" {
		parts = append(parts, body)
	} else if result.Summary != "" {
		parts = append(parts, strings.TrimSpace(result.Summary))
	} else {
		parts = append(parts, "No issues found at the configured severity threshold.")
	}

	return strings.Join(parts, "\n\n")
}

func findingsBody(result domain.ReviewResult) string {
	if len(result.Findings) == 0 {
		return ""
	}

	lines := make([]string, 0, len(result.Findings))
	for _, finding := range result.Findings {
		entry := fmt.Sprintf("**[%s]** `%s`: %s",
			strings.ToUpper(finding.Severity.String()), location(finding), finding.Comment)
		if finding.Suggestion != "" {
			entry += SuggestionFence(finding.Suggestion)
		}
		lines = append(lines, entry)
	}
	return strings.Join(lines, "\n\n")
}

func location(finding domain.Finding) string {
	if finding.FileLevel() {
		return finding.File
	}
	return fmt.Sprintf("%s:%d", finding.File, finding.Line)
}

// SuggestionFence wraps replacement code in a suggestion block whose fence
// is always longer than any backtick run inside the suggestion, so content
// cannot terminate the block early.
func SuggestionFence(suggestion string) string {
	maxBackticks := 0
	for _, run := range backtickRuns.FindAllString(suggestion, -1) {
		if len(run) > maxBackticks {
			maxBackticks = len(run)
		}
	}

	fenceSize := 3
	if maxBackticks >= fenceSize {
		fenceSize = maxBackticks + 1
	}
	fence := strings.Repeat("`", fenceSize)

	return fmt.Sprintf("\n%ssuggestion\n%s\n%s", fence, suggestion, fence)
}
