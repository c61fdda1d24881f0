package review

import "strings"

// Common prose sentence starters that indicate natural language, not code.
var proseStarters = map[string]bool{
	"verify": true, "review": true, "ensure": true, "update": true,
	"check": true, "consider": true, "identify": true, "investigate": true,
	"add": true, "remove": true, "fix": true, "change": true,
	"thoroughly": true, "please": true, "recommended": true,
	"suggest": true, "avoid": true,
}

// SanitizeSuggestion validates a model-produced suggestion so it contains
// only replacement code. Prose is rejected and unified-diff formatting is
// stripped down to its added lines, because a suggestion block is applied
// verbatim by the hosting platform.
func SanitizeSuggestion(value string) (string, bool) {
	raw := strings.TrimRight(value, " \t\n")
	if raw == "" {
		return "", false
	}

	hasDiffHeaders := strings.Contains(raw, "--- a/") || strings.Contains(raw, "--- b/") ||
		strings.Contains(raw, "+++ a/") || strings.Contains(raw, "+++ b/") ||
		strings.Contains(raw, "\n@@ ") || strings.HasPrefix(raw, "@@ ")

	lines := strings.Split(raw, "\n")
	diffLikeLines := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if (strings.HasPrefix(trimmed, "+") || strings.HasPrefix(trimmed, "-")) &&
			!strings.HasPrefix(trimmed, "++") && !strings.HasPrefix(trimmed, "--") {
			diffLikeLines++
		}
	}

	if hasDiffHeaders || (len(lines) > 1 && diffLikeLines >= 1) {
		extracted, ok := extractDiffAdditions(raw)
		if !ok || looksLikeProse(extracted) {
			return "", false
		}
		return extracted, true
	}

	// Single line written as a diff addition: keep the content after '+'.
	if len(lines) == 1 && strings.HasPrefix(lines[0], "+") && !strings.HasPrefix(lines[0], "++") {
		content := lines[0][1:]
		if strings.TrimSpace(content) == "" || looksLikeProse(content) {
			return "", false
		}
		return content, true
	}

	if looksLikeProse(raw) {
		return "", false
	}
	return raw, true
}

// extractDiffAdditions keeps only the added lines of a unified diff,
// stripping the '+' prefixes.
func extractDiffAdditions(text string) (string, bool) {
	var added []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "++") {
			content := line[1:]
			if strings.HasPrefix(strings.TrimSpace(content), "---") ||
				strings.HasPrefix(strings.TrimSpace(content), "+++") ||
				strings.HasPrefix(strings.TrimSpace(content), "diff ") {
				continue
			}
			added = append(added, content)
		}
	}
	if len(added) == 0 {
		return "", false
	}
	result := strings.TrimRight(strings.Join(added, "\n"), " \t\n")
	return result, result != ""
}

// looksLikeProse reports whether text appears to be natural language rather
// than code.
func looksLikeProse(text string) bool {
	stripped := strings.TrimSpace(text)
	if len(stripped) < 20 {
		return false
	}
	// A comment character strongly indicates code.
	if strings.Contains(stripped, "#") {
		return false
	}

	codeChars := 0
	for _, r := range stripped {
		if strings.ContainsRune("=(){};:[]<>", r) {
			codeChars++
		}
	}
	if codeChars >= 2 {
		return false
	}

	fields := strings.Fields(stripped)
	if len(fields) > 0 && proseStarters[strings.ToLower(fields[0])] {
		return true
	}

	alpha := 0
	for _, r := range stripped {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == ' ' {
			alpha++
		}
	}
	return codeChars == 0 && float64(alpha)/float64(len(stripped)) > 0.85
}
