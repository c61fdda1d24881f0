package domain

import "strings"

// Severity classifies how serious a finding is. The ordering is total:
// SeverityTrivial < SeverityImportant < SeverityCritical.
type Severity int

const (
	SeverityTrivial Severity = iota + 1
	SeverityImportant
	SeverityCritical
)

// String returns the canonical lower-case name for the severity.
func (s Severity) String() string {
	switch s {
	case SeverityTrivial:
		return "trivial"
	case SeverityImportant:
		return "important"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// AtLeast reports whether s meets the given threshold.
func (s Severity) AtLeast(threshold Severity) bool {
	return s >= threshold
}

// ParseSeverity converts a string into a Severity. Unrecognized values map to
// SeverityTrivial so a misclassified finding is surfaced at the lowest level
// rather than silently dropped. The second return value reports whether the
// input matched a known severity.
func ParseSeverity(value string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "trivial":
		return SeverityTrivial, true
	case "important":
		return SeverityImportant, true
	case "critical":
		return SeverityCritical, true
	default:
		return SeverityTrivial, false
	}
}
