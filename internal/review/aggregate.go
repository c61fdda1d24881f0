package review

import "github.com/bkyoung/diffcritic/internal/domain"

// Aggregate merges per-chunk finding lists into one ordered, deduplicated,
// threshold-filtered list.
//
// Ordering is the concatenation order: chunk order first, then each chunk's
// own finding order. Two findings are duplicates when they share file, line
// and a normalized comment; the higher-severity copy wins while keeping the
// first occurrence's position, so the deduplicated set is independent of
// input order. Findings below the threshold are dropped and counted as
// suppressed.
func Aggregate(perChunk [][]domain.Finding, threshold domain.Severity) domain.ReviewResult {
	type slot struct {
		index   int
		finding domain.Finding
	}

	var ordered []domain.Finding
	seen := make(map[string]slot)

	for _, findings := range perChunk {
		for _, finding := range findings {
			key := finding.DedupKey()
			if existing, ok := seen[key]; ok {
				if finding.Severity > existing.finding.Severity {
					existing.finding.Severity = finding.Severity
					if existing.finding.Suggestion == "" && finding.Suggestion != "" {
						existing.finding.Suggestion = finding.Suggestion
					}
					seen[key] = existing
					ordered[existing.index] = existing.finding
				}
				continue
			}
			seen[key] = slot{index: len(ordered), finding: finding}
			ordered = append(ordered, finding)
		}
	}

	result := domain.ReviewResult{}
	for _, finding := range ordered {
		if !finding.Severity.AtLeast(threshold) {
			result.Suppressed++
			continue
		}
		result.Findings = append(result.Findings, finding)
	}

	return result
}
