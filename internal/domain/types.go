package domain

import (
	"errors"
	"strconv"
	"strings"
)

// ErrConfiguration indicates invalid configuration detected before any
// network call is made.
var ErrConfiguration = errors.New("invalid configuration")

// DiffChunk is a contiguous, self-valid slice of a unified diff that is sent
// as a single model request.
type DiffChunk struct {
	// Index is the zero-based position of the chunk in the original diff.
	Index int

	// Text is the raw diff text. Concatenating the Text of all chunks in
	// Index order reproduces the source diff exactly.
	Text string

	// Files lists the paths the chunk covers, in order of appearance.
	Files []string

	// Oversized marks a chunk holding a single file segment that alone
	// exceeds the configured budget. Such chunks are sent whole rather than
	// split mid-hunk, which would produce invalid diff syntax.
	Oversized bool
}

// Size returns the chunk length in bytes.
func (c DiffChunk) Size() int {
	return len(c.Text)
}

// Finding represents a single structured review comment from the model.
type Finding struct {
	File       string
	Line       int // 0 means file- or diff-level
	Severity   Severity
	Comment    string
	Suggestion string
	ChunkIndex int // source chunk, for traceability
}

// FileLevel reports whether the finding applies to a whole file rather than
// a specific line.
func (f Finding) FileLevel() bool {
	return f.Line <= 0
}

// DedupKey returns the identity used for duplicate detection: same file, same
// line, and a case-insensitive whitespace-normalized comment.
func (f Finding) DedupKey() string {
	return f.File + "\x00" + strconv.Itoa(f.Line) + "\x00" + NormalizeComment(f.Comment)
}

// NormalizeComment lowercases a comment and collapses all whitespace runs so
// near-identical model phrasings compare equal.
func NormalizeComment(comment string) string {
	return strings.Join(strings.Fields(strings.ToLower(comment)), " ")
}

// ReviewResult is the final outcome of a review run.
type ReviewResult struct {
	// Findings is the ordered, deduplicated, threshold-filtered list.
	Findings []Finding

	// Summary is the overall review summary, present when the model produced
	// one (always attempted when more than one chunk succeeded).
	Summary string

	// Truncated is set when one or more chunks failed irrecoverably and were
	// skipped, so the feedback may be incomplete.
	Truncated bool

	// ChunksAttempted and ChunksSucceeded report per-run chunk accounting.
	ChunksAttempted int
	ChunksSucceeded int

	// Suppressed counts findings dropped by the severity threshold.
	Suppressed int
}
