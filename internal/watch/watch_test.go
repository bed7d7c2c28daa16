package watch_test

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/euforicio/deckmd/internal/watch"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func startWatcher(t *testing.T, paths []string, debounce time.Duration) *watch.Watcher {
	t.Helper()
	w, err := watch.New(paths, watch.Options{Debounce: debounce, Logger: quietLogger()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = w.Close()
	})

	// Give the watcher time to attach.
	time.Sleep(100 * time.Millisecond)
	return w
}

func TestWatcherReportsModification(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	input := filepath.Join(dir, "slides.md")
	writeFile(t, input, "# A\n")

	w := startWatcher(t, []string{input}, 0)
	writeFile(t, input, "# B\n")

	select {
	case evt := <-w.Events():
		assert.Equal(t, input, evt.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("did not receive change event")
	}
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	input := filepath.Join(dir, "slides.md")
	writeFile(t, input, "# A\n")

	w := startWatcher(t, []string{input}, 0)
	writeFile(t, filepath.Join(dir, "notes.md"), "unrelated")

	select {
	case evt := <-w.Events():
		t.Fatalf("unexpected event for %s", evt.Path)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherCoversEveryTarget(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	input := filepath.Join(dir, "slides.md")
	cssDir := filepath.Join(dir, "style")
	require.NoError(t, os.Mkdir(cssDir, 0o755))
	css := filepath.Join(cssDir, "custom.css")
	writeFile(t, input, "# A\n")
	writeFile(t, css, "body{}")

	w := startWatcher(t, []string{input, css}, 0)
	writeFile(t, css, "body{color:red}")

	select {
	case evt := <-w.Events():
		assert.Equal(t, css, evt.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("did not receive change event for css")
	}
}

func TestWatcherDebouncesBursts(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	input := filepath.Join(dir, "slides.md")
	writeFile(t, input, "# A\n")

	w := startWatcher(t, []string{input}, 150*time.Millisecond)
	for i := range 5 {
		writeFile(t, input, "# edit "+string(rune('A'+i))+"\n")
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-w.Events():
	case <-time.After(2 * time.Second):
		t.Fatal("did not receive debounced event")
	}

	select {
	case <-w.Events():
		t.Fatal("burst produced more than one event")
	case <-time.After(400 * time.Millisecond):
	}
}

func TestWatcherFollowsAtomicSave(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	input := filepath.Join(dir, "slides.md")
	writeFile(t, input, "# A\n")

	w := startWatcher(t, []string{input}, 0)
	tmp := filepath.Join(dir, ".slides.md.swp")
	writeFile(t, tmp, "# B\n")
	require.NoError(t, os.Rename(tmp, input))

	select {
	case evt := <-w.Events():
		assert.Equal(t, input, evt.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("did not receive event after rename")
	}
}

func TestNewFailsForMissingPath(t *testing.T) {
	t.Parallel()

	_, err := watch.New([]string{filepath.Join(t.TempDir(), "missing.md")}, watch.Options{Logger: quietLogger()})
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestNewRequiresPaths(t *testing.T) {
	t.Parallel()

	_, err := watch.New(nil, watch.Options{})
	assert.Error(t, err)
}

func TestRunReturnsWhenContextEnds(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	input := filepath.Join(dir, "slides.md")
	writeFile(t, input, "# A\n")

	w, err := watch.New([]string{input}, watch.Options{Logger: quietLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
