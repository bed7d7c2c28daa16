package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/euforicio/deckmd/internal/buildinfo"
)

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestBuildFromFile(t *testing.T) {
	input := filepath.Join(t.TempDir(), "slides.md")
	require.NoError(t, os.WriteFile(input, []byte("# A\n\n---\n\n# B\n"), 0o600))

	code, stdout, stderr := runCLI(t, "", "build", "--title", "Demo", input)

	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "<title>Demo</title>")
	assert.Equal(t, 2, strings.Count(stdout, `<div class="slide">`))
}

func TestBuildFromStdinToFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "deck.html")

	code, stdout, stderr := runCLI(t, "hello\n", "build", "-o", out)

	require.Equal(t, exitOK, code, stderr)
	assert.Empty(t, stdout)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<p>hello</p>")
}

func TestBuildUnknownThemeFails(t *testing.T) {
	code, stdout, stderr := runCLI(t, "x\n", "build", "--theme", "no-such-theme")

	assert.Equal(t, exitError, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "no-such-theme")
}

func TestServeRequiresInput(t *testing.T) {
	code, _, stderr := runCLI(t, "", "serve")

	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "input markdown file is required")
}

func TestThemesListsDefault(t *testing.T) {
	code, stdout, _ := runCLI(t, "", "themes")

	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "* github-dark\n")
	assert.Contains(t, stdout, "  monokai\n")
}

func TestUsageAndVersion(t *testing.T) {
	code, _, stderr := runCLI(t, "")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "Usage: deckmd")

	code, _, stderr = runCLI(t, "", "present")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, `unknown command "present"`)

	code, stdout, _ := runCLI(t, "", "--version")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, buildinfo.Summary()+"\n", stdout)

	code, _, _ = runCLI(t, "", "build", "a.md", "b.md")
	assert.Equal(t, exitUsage, code)
}
