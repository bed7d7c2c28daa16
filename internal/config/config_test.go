package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 3030, cfg.Port)
	assert.Equal(t, 100*time.Millisecond, cfg.Debounce)
	assert.False(t, cfg.Watch)
}

func TestRegisterFlags(t *testing.T) {
	t.Parallel()

	cfg := Default()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, &cfg)

	err := fs.Parse([]string{
		"-p", "9000", "-w", "-t", "monokai",
		"--theme-dir", "a", "--theme-dir", "b",
		"--css", "deck.css", "--js", "deck.js", "--title", "Talk",
		"--front-matter", "--anchors", "--debounce", "250ms", "-o", "out.html",
	})
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.True(t, cfg.Watch)
	assert.Equal(t, "monokai", cfg.Theme)
	assert.Equal(t, []string{"a", "b"}, cfg.ThemeDirs)
	assert.Equal(t, "deck.css", cfg.CSS)
	assert.Equal(t, "deck.js", cfg.JS)
	assert.Equal(t, "Talk", cfg.Title)
	assert.True(t, cfg.FrontMatter)
	assert.True(t, cfg.HeadingAnchors)
	assert.Equal(t, 250*time.Millisecond, cfg.Debounce)
	assert.Equal(t, "out.html", cfg.Output)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("DECKMD_PORT", "4242")
	t.Setenv("DECKMD_WATCH", "true")
	t.Setenv("DECKMD_THEME", "dracula")
	t.Setenv("DECKMD_THEME_DIRS", "one"+string(os.PathListSeparator)+"two")
	t.Setenv("DECKMD_DEBOUNCE", "1s")
	t.Setenv("DECKMD_TITLE", "  ")
	t.Setenv("DECKMD_VERBOSE", "not-a-bool")

	cfg := Default()
	cfg.Title = "kept"
	ApplyEnvOverrides(&cfg)

	assert.Equal(t, 4242, cfg.Port)
	assert.True(t, cfg.Watch)
	assert.Equal(t, "dracula", cfg.Theme)
	assert.Equal(t, []string{"one", "two"}, cfg.ThemeDirs)
	assert.Equal(t, time.Second, cfg.Debounce)
	assert.Equal(t, "kept", cfg.Title)
	assert.False(t, cfg.Verbose)
}

func TestConfigPath(t *testing.T) {
	t.Setenv("DECKMD_CONFIG", "env.yaml")

	assert.Equal(t, "flag.yaml", ConfigPath([]string{"serve", "--config", "flag.yaml"}))
	assert.Equal(t, "eq.yaml", ConfigPath([]string{"--config=eq.yaml", "slides.md"}))
	assert.Equal(t, "env.yaml", ConfigPath([]string{"serve", "slides.md"}))
	assert.Equal(t, "env.yaml", ConfigPath([]string{"--", "--config", "ignored.yaml"}))
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "deckmd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 8080\nwatch: true\ntheme: nord\nthemeDirs:\n  - themes\ndebounce: 50ms\n"), 0o600))

	cfg := Default()
	require.NoError(t, LoadFile(path, &cfg))

	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.Watch)
	assert.Equal(t, "nord", cfg.Theme)
	assert.Equal(t, []string{"themes"}, cfg.ThemeDirs)
	assert.Equal(t, 50*time.Millisecond, cfg.Debounce)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, path, cfg.ConfigFile)
}

func TestLoadFileErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("colour: red\n"), 0o600))
	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("\n"), 0o600))

	cfg := Default()
	require.Error(t, LoadFile(unknown, &cfg))
	require.ErrorIs(t, LoadFile(filepath.Join(dir, "missing.yaml"), &cfg), os.ErrNotExist)
	require.NoError(t, LoadFile(empty, &cfg))
	assert.Equal(t, Default(), cfg)
}

func TestFinalize(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Input = "slides.md"
	cfg.CSS = "deck.css"
	cfg.ThemeDirs = []string{"themes", " "}
	cfg.Host = ""
	require.NoError(t, Finalize(&cfg))

	assert.True(t, filepath.IsAbs(cfg.Input))
	assert.True(t, filepath.IsAbs(cfg.CSS))
	assert.Empty(t, cfg.JS)
	require.Len(t, cfg.ThemeDirs, 1)
	assert.True(t, filepath.IsAbs(cfg.ThemeDirs[0]))
	assert.Equal(t, "127.0.0.1", cfg.Host)
}

func TestFinalizeKeepsStdin(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Input = "-"
	require.NoError(t, Finalize(&cfg))
	assert.Equal(t, "-", cfg.Input)
}

func TestFinalizeRejectsInvalidValues(t *testing.T) {
	t.Parallel()

	for _, mutate := range []func(*Config){
		func(c *Config) { c.Port = -1 },
		func(c *Config) { c.Port = 70000 },
		func(c *Config) { c.Debounce = -time.Second },
	} {
		cfg := Default()
		mutate(&cfg)
		require.Error(t, Finalize(&cfg))
	}
}

func TestWatchTargetsAndRequireInput(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.ErrorIs(t, cfg.RequireInput(), ErrInputRequired)

	cfg.Input = "/deck/slides.md"
	require.NoError(t, cfg.RequireInput())
	assert.Equal(t, []string{"/deck/slides.md"}, cfg.WatchTargets())

	cfg.CSS = "/deck/deck.css"
	cfg.JS = "/deck/deck.js"
	assert.Equal(t, []string{"/deck/slides.md", "/deck/deck.css", "/deck/deck.js"}, cfg.WatchTargets())
}
