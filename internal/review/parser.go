package review

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/bkyoung/diffcritic/internal/domain"
)

// Greedy match from the first opening fence to the last closing fence so
// code blocks nested inside suggestion strings do not terminate the
// extraction early.
var jsonBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*([\\s\\S]*)```")

// ParseResult is the outcome of parsing one chunk's raw model response. A
// malformed response is not an error: the findings degrade to an empty list
// and Malformed carries the diagnostic.
type ParseResult struct {
	Findings   []domain.Finding
	Malformed  bool
	Diagnostic string
}

// Parse extracts structured findings from raw model output. It tolerates
// markdown fences, prose around the payload, object-wrapped arrays,
// truncated arrays (recovering the complete leading items), missing optional
// fields, and unknown severity values (coerced to trivial so a
// misclassification never drops a genuine issue).
func Parse(raw string) ParseResult {
	if strings.TrimSpace(raw) == "" {
		return ParseResult{Malformed: true, Diagnostic: "empty response from model"}
	}

	cleaned := stripMarkdownFences(raw)

	items, diagnostic := decodeItems(cleaned)
	if diagnostic != "" {
		return ParseResult{Malformed: true, Diagnostic: diagnostic}
	}

	findings := make([]domain.Finding, 0, len(items))
	for _, item := range items {
		if finding, ok := validateItem(item); ok {
			findings = append(findings, finding)
		}
	}

	return ParseResult{Findings: findings}
}

// stripMarkdownFences removes a ```json ... ``` wrapper when present.
func stripMarkdownFences(text string) string {
	trimmed := strings.TrimSpace(text)
	matches := jsonBlockRegex.FindStringSubmatch(trimmed)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return trimmed
}

// decodeItems turns cleaned response text into a list of raw review items.
// It returns a non-empty diagnostic when nothing could be decoded.
func decodeItems(cleaned string) ([]map[string]any, string) {
	var parsed any
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		// Prose may surround the payload. Retry on the widest bracketed
		// substring, then fall back to recovering leading array items.
		if sub, ok := bracketedPayload(cleaned); ok {
			if err := json.Unmarshal([]byte(sub), &parsed); err != nil {
				if items := recoverLeadingItems(sub); len(items) > 0 {
					return items, ""
				}
				return nil, "response is not valid JSON: " + previewOf(cleaned)
			}
		} else {
			return nil, "response is not valid JSON: " + previewOf(cleaned)
		}
	}

	switch value := parsed.(type) {
	case []any:
		return objectItems(value), ""
	case map[string]any:
		// Some models wrap the array in an object like {"reviews": [...]}.
		for _, key := range []string{"reviews", "comments", "items", "findings", "review"} {
			if wrapped, ok := value[key].([]any); ok {
				return objectItems(wrapped), ""
			}
		}
		// A single item returned bare.
		return []map[string]any{value}, ""
	default:
		return nil, "response JSON is not an array of review items"
	}
}

// bracketedPayload returns the substring from the first opening bracket to
// the matching last closing bracket, when one exists.
func bracketedPayload(text string) (string, bool) {
	start := strings.IndexAny(text, "[{")
	if start < 0 {
		return "", false
	}
	var end int
	if text[start] == '[' {
		end = strings.LastIndex(text, "]")
	} else {
		end = strings.LastIndex(text, "}")
	}
	if end > start {
		return text[start : end+1], true
	}
	// No closing bracket at all: hand back the tail so leading-item
	// recovery can still salvage complete entries.
	return text[start:], true
}

// recoverLeadingItems decodes as many complete array items as possible from
// a truncated or trailing-comma JSON array.
func recoverLeadingItems(text string) []map[string]any {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "[") {
		return nil
	}

	dec := json.NewDecoder(strings.NewReader(trimmed))
	if _, err := dec.Token(); err != nil {
		return nil
	}

	var items []map[string]any
	for dec.More() {
		var item map[string]any
		if err := dec.Decode(&item); err != nil {
			break
		}
		items = append(items, item)
	}
	return items
}

func objectItems(values []any) []map[string]any {
	items := make([]map[string]any, 0, len(values))
	for _, v := range values {
		if m, ok := v.(map[string]any); ok {
			items = append(items, m)
		}
	}
	return items
}

// validateItem normalizes a single raw review item. Items without a file or
// comment are dropped; everything else is coerced into shape.
func validateItem(item map[string]any) (domain.Finding, bool) {
	file, _ := item["file"].(string)
	comment, _ := item["comment"].(string)
	if strings.TrimSpace(file) == "" || strings.TrimSpace(comment) == "" {
		return domain.Finding{}, false
	}

	line := 0
	switch v := item["line"].(type) {
	case float64:
		line = int(v)
	case string:
		line = atoiSafe(v)
	}
	if line < 0 {
		line = 0
	}

	severityText, _ := item["severity"].(string)
	severity, _ := domain.ParseSeverity(severityText)

	finding := domain.Finding{
		File:     strings.TrimSpace(file),
		Line:     line,
		Severity: severity,
		Comment:  strings.TrimSpace(comment),
	}

	if raw, ok := item["suggestion"].(string); ok {
		if sanitized, ok := SanitizeSuggestion(raw); ok {
			finding.Suggestion = sanitized
		}
	}

	return finding, true
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range strings.TrimSpace(s) {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func previewOf(text string) string {
	const maxPreview = 120
	if len(text) <= maxPreview {
		return text
	}
	return text[:maxPreview] + "..."
}
