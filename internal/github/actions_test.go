package github_test

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	githubadapter "github.com/bkyoung/diffcritic/internal/github"
)

func TestWriteActionOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output")

	require.NoError(t, githubadapter.WriteActionOutput(path, "review_posted", "true"))
	require.NoError(t, githubadapter.WriteActionOutput(path, "review_body", "line one\nline two"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	pattern := regexp.MustCompile(`(?s)review_posted<<(dc_[0-9a-f]{32})\ntrue\n`)
	match := pattern.FindStringSubmatch(content)
	require.NotNil(t, match, "output file: %s", content)
	assert.Contains(t, content, match[1]+"\n")

	assert.Contains(t, content, "review_body<<")
	assert.Contains(t, content, "line one\nline two\n")
}

func TestWriteActionOutputAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output")
	require.NoError(t, os.WriteFile(path, []byte("existing=1\n"), 0o644))

	require.NoError(t, githubadapter.WriteActionOutput(path, "key", "value"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "existing=1\n"))
	assert.Contains(t, string(data), "key<<")
}
