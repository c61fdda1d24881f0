// Package diff splits unified diffs into model-sized chunks along file
// boundaries.
package diff

import (
	"fmt"
	"strings"

	"github.com/bkyoung/diffcritic/internal/domain"
)

// fileHeaderPrefix marks the start of a per-file segment in git unified diffs.
const fileHeaderPrefix = "diff --git "

// Chunk partitions diffText into ordered chunks of at most maxChunkSize
// bytes. Splits happen only at file boundaries: consecutive file segments are
// accumulated into a chunk while they fit, and a single segment larger than
// the budget becomes its own oversized chunk rather than being split mid-hunk.
//
// Concatenating the returned chunks' Text in order reproduces diffText
// byte for byte. An empty diff yields zero chunks and no error.
func Chunk(diffText string, maxChunkSize int) ([]domain.DiffChunk, error) {
	if maxChunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrConfiguration, maxChunkSize)
	}
	if diffText == "" {
		return nil, nil
	}

	segments := splitFileSegments(diffText)

	var chunks []domain.DiffChunk
	var current strings.Builder
	var currentFiles []string

	flush := func(oversized bool) {
		if current.Len() == 0 {
			return
		}
		chunks = append(chunks, domain.DiffChunk{
			Index:     len(chunks),
			Text:      current.String(),
			Files:     currentFiles,
			Oversized: oversized,
		})
		current.Reset()
		currentFiles = nil
	}

	for _, seg := range segments {
		if len(seg.text) > maxChunkSize {
			// Close whatever is pending, then emit the oversized segment on
			// its own so hunks stay intact.
			flush(false)
			current.WriteString(seg.text)
			if seg.path != "" {
				currentFiles = append(currentFiles, seg.path)
			}
			flush(true)
			continue
		}

		if current.Len() > 0 && current.Len()+len(seg.text) > maxChunkSize {
			flush(false)
		}

		current.WriteString(seg.text)
		if seg.path != "" {
			currentFiles = append(currentFiles, seg.path)
		}
	}
	flush(false)

	return chunks, nil
}

// fileSegment is one file's portion of the diff, headers included.
type fileSegment struct {
	text string
	path string
}

// splitFileSegments cuts the diff at each file header line. Any preamble
// before the first header stays attached to the first segment so no bytes are
// lost. Line terminators are preserved, including a final line without one.
func splitFileSegments(diffText string) []fileSegment {
	lines := strings.SplitAfter(diffText, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	var segments []fileSegment
	var current strings.Builder

	for _, line := range lines {
		if strings.HasPrefix(line, fileHeaderPrefix) && current.Len() > 0 {
			text := current.String()
			segments = append(segments, fileSegment{text: text, path: pathFromSegment(text)})
			current.Reset()
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		text := current.String()
		segments = append(segments, fileSegment{text: text, path: pathFromSegment(text)})
	}

	return segments
}

// pathFromSegment extracts the new-side file path from a segment, falling
// back to the old side for deletions and to the header line for segments
// without +++/--- markers, such as binary changes.
func pathFromSegment(segment string) string {
	for _, line := range strings.Split(segment, "\n") {
		if strings.HasPrefix(line, "+++ b/") {
			return strings.TrimPrefix(line, "+++ b/")
		}
	}
	for _, line := range strings.Split(segment, "\n") {
		if strings.HasPrefix(line, "--- a/") {
			return strings.TrimPrefix(line, "--- a/")
		}
	}
	for _, line := range strings.Split(segment, "\n") {
		if rest, ok := strings.CutPrefix(line, fileHeaderPrefix+"a/"); ok {
			if idx := strings.LastIndex(rest, " b/"); idx >= 0 {
				return rest[idx+len(" b/"):]
			}
		}
	}
	return ""
}
