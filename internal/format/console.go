package format

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bkyoung/diffcritic/internal/domain"
)

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
)

var titleCaser = cases.Title(language.English)

// ConsoleWriter renders a review result for a local terminal session.
type ConsoleWriter struct {
	out   io.Writer
	color bool
}

// NewConsoleWriter creates a console writer. Colors are only used when the
// caller knows the destination is a terminal.
func NewConsoleWriter(out io.Writer, color bool) *ConsoleWriter {
	return &ConsoleWriter{out: out, color: color}
}

// Write prints the review grouped by file, most severe first within a file's
// original order preserved.
func (w *ConsoleWriter) Write(result domain.ReviewResult) error {
	if result.Summary != "" {
		if err := w.section("Summary"); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w.out, "%s\n\n", strings.TrimSpace(result.Summary)); err != nil {
			return err
		}
	}

	if len(result.Findings) == 0 {
		_, err := fmt.Fprintln(w.out, "No issues found at the configured severity threshold.")
		return err
	}

	if err := w.section(fmt.Sprintf("Findings (%d)", len(result.Findings))); err != nil {
		return err
	}
	for _, finding := range result.Findings {
		if err := w.writeFinding(finding); err != nil {
			return err
		}
	}

	if result.Suppressed > 0 {
		if _, err := fmt.Fprintf(w.out, "\n%d lower-severity finding(s) suppressed by the threshold.\n", result.Suppressed); err != nil {
			return err
		}
	}
	if result.Truncated {
		if _, err := fmt.Fprintf(w.out, "\nWarning: %d of %d chunks could not be reviewed; results may be incomplete.\n",
			result.ChunksAttempted-result.ChunksSucceeded, result.ChunksAttempted); err != nil {
			return err
		}
	}

	return nil
}

func (w *ConsoleWriter) writeFinding(finding domain.Finding) error {
	tag := titleCaser.String(finding.Severity.String())
	if w.color {
		tag = w.severityColor(finding.Severity) + tag + ansiReset
	}

	if _, err := fmt.Fprintf(w.out, "  [%s] %s\n      %s\n", tag, location(finding), finding.Comment); err != nil {
		return err
	}

	if finding.Suggestion != "" {
		for _, line := range strings.Split(finding.Suggestion, "\n") {
			if _, err := fmt.Fprintf(w.out, "      > %s\n", line); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *ConsoleWriter) section(heading string) error {
	if w.color {
		heading = ansiBold + heading + ansiReset
	}
	_, err := fmt.Fprintf(w.out, "%s\n", heading)
	return err
}

func (w *ConsoleWriter) severityColor(severity domain.Severity) string {
	switch severity {
	case domain.SeverityCritical:
		return ansiRed
	case domain.SeverityImportant:
		return ansiYellow
	default:
		return ansiCyan
	}
}
