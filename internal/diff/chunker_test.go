package diff_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/diffcritic/internal/diff"
	"github.com/bkyoung/diffcritic/internal/domain"
)

// fileDiff builds a synthetic per-file diff segment padded to roughly the
// requested size.
func fileDiff(path string, size int) string {
	header := "diff --git a/" + path + " b/" + path + "\n" +
		"--- a/" + path + "\n" +
		"+++ b/" + path + "\n" +
		"@@ -1,3 +1,4 @@\n"
	body := strings.Builder{}
	body.WriteString(header)
	for body.Len() < size {
		body.WriteString("+added line of code\n")
	}
	return body.String()
}

func TestChunkEmptyDiff(t *testing.T) {
	chunks, err := diff.Chunk("", 500)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkInvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		_, err := diff.Chunk("diff --git a/x b/x\n", size)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrConfiguration))
	}
}

func TestChunkReconstruction(t *testing.T) {
	input := fileDiff("a.go", 400) + fileDiff("b.go", 100) + fileDiff("c.go", 900)

	for _, size := range []int{100, 500, 1000, 10000} {
		chunks, err := diff.Chunk(input, size)
		require.NoError(t, err)

		var rebuilt strings.Builder
		for _, chunk := range chunks {
			rebuilt.WriteString(chunk.Text)
		}
		assert.Equal(t, input, rebuilt.String(), "concatenated chunks must reproduce the diff for size %d", size)
	}
}

func TestChunkPacksFilesUpToBudget(t *testing.T) {
	first := fileDiff("a.go", 400)
	second := fileDiff("b.go", 100)
	third := fileDiff("c.go", 900)

	// Pad sizes are approximate; pin the real lengths for the assertion.
	budget := len(first) + len(second)
	require.Greater(t, len(third), budget)

	chunks, err := diff.Chunk(first+second+third, budget)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, first+second, chunks[0].Text)
	assert.Equal(t, []string{"a.go", "b.go"}, chunks[0].Files)
	assert.False(t, chunks[0].Oversized)

	assert.Equal(t, third, chunks[1].Text)
	assert.Equal(t, []string{"c.go"}, chunks[1].Files)
	assert.True(t, chunks[1].Oversized)
}

func TestChunkIndicesAreSequential(t *testing.T) {
	input := fileDiff("a.go", 300) + fileDiff("b.go", 300) + fileDiff("c.go", 300)

	chunks, err := diff.Chunk(input, 350)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.LessOrEqual(t, chunk.Size(), 350)
	}
}

func TestChunkNeverSplitsInsideAFile(t *testing.T) {
	input := fileDiff("big.go", 2000)

	chunks, err := diff.Chunk(input, 500)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.True(t, chunks[0].Oversized)
	assert.Greater(t, chunks[0].Size(), 500)
}

func TestChunkKeepsPreambleWithFirstFile(t *testing.T) {
	preamble := "From 1234abcd Mon Sep 17 00:00:00 2001\nSubject: [PATCH] tweak\n\n"
	input := preamble + fileDiff("a.go", 200)

	chunks, err := diff.Chunk(input, 5000)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.True(t, strings.HasPrefix(chunks[0].Text, preamble))
	assert.Equal(t, []string{"a.go"}, chunks[0].Files)
}

func TestChunkHandlesMissingTrailingNewline(t *testing.T) {
	input := strings.TrimSuffix(fileDiff("a.go", 200), "\n")

	chunks, err := diff.Chunk(input, 5000)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, input, chunks[0].Text)
}

func TestChunkFilePathFromHeaderForBinaryChanges(t *testing.T) {
	binary := "diff --git a/assets/logo.png b/assets/logo.png\n" +
		"index 1111111..2222222 100644\n" +
		"Binary files a/assets/logo.png and b/assets/logo.png differ\n"

	chunks, err := diff.Chunk(binary, 5000)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, []string{"assets/logo.png"}, chunks[0].Files)
}

func TestChunkFilePathFallsBackToOldSide(t *testing.T) {
	deleted := "diff --git a/gone.go b/gone.go\n" +
		"deleted file mode 100644\n" +
		"--- a/gone.go\n" +
		"+++ /dev/null\n" +
		"@@ -1,2 +0,0 @@\n-package gone\n-\n"

	chunks, err := diff.Chunk(deleted, 5000)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, []string{"gone.go"}, chunks[0].Files)
}
