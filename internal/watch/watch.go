// Package watch reports modifications to a fixed set of files.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events an editor produces for one save.
const DefaultDebounce = 100 * time.Millisecond

// Event reports that a watched file changed.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// Options configure a Watcher.
type Options struct {
	// Debounce is the quiet period before an event is delivered. Zero delivers
	// every event immediately.
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watcher watches files through their parent directories so that editors that
// save by writing a temp file and renaming it over the target keep triggering events.
type Watcher struct {
	fs      *fsnotify.Watcher
	logger  *slog.Logger
	events  chan Event
	targets map[string]struct{}
	delay   time.Duration

	closeOnce sync.Once
}

// New starts watching paths. It fails if any path cannot be resolved, stated, or watched.
func New(paths []string, opts Options) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, errors.New("no paths to watch")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	targets := make(map[string]struct{}, len(paths))
	dirs := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		if _, err := os.Stat(abs); err != nil {
			return nil, fmt.Errorf("watch target: %w", err)
		}
		targets[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	return &Watcher{
		fs:      fsw,
		logger:  logger.With("component", "watcher"),
		events:  make(chan Event, 1),
		targets: targets,
		delay:   opts.Debounce,
	}, nil
}

// Events delivers change events. At most one event is pending; events that
// arrive while one is pending are folded into it.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Run forwards filesystem notifications until ctx ends or the underlying watcher
// reports an error. It returns nil when ctx ends.
func (w *Watcher) Run(ctx context.Context) error {
	emit := w.emit
	if w.delay > 0 {
		debounced := debounce.New(w.delay)
		emit = func(evt Event) {
			debounced(func() { w.emit(evt) })
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(evt) {
				continue
			}
			w.logger.Debug("file changed", slog.String("path", evt.Name), slog.String("op", evt.Op.String()))
			emit(Event{Path: evt.Name, Op: evt.Op})
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher: %w", err)
		}
	}
}

func (w *Watcher) relevant(evt fsnotify.Event) bool {
	if !evt.Op.Has(fsnotify.Write) && !evt.Op.Has(fsnotify.Create) {
		return false
	}
	_, ok := w.targets[filepath.Clean(evt.Name)]
	return ok
}

func (w *Watcher) emit(evt Event) {
	select {
	case w.events <- evt:
	default:
		w.logger.Debug("change already pending", slog.String("path", evt.Path))
	}
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.fs.Close()
	})
	return err
}
