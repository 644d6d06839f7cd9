package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Change describes the file that opened a change episode.
type Change struct {
	// Path is the absolute path of the changed file.
	Path string

	// Op is a short description of what happened (e.g. "write").
	Op string
}

// ChangeFunc receives accepted changes. It is called from the detector's
// goroutine, at most once per debounce window.
type ChangeFunc func(Change)

// Detector watches a directory tree and reports debounced changes.
type Detector interface {
	// Watch blocks until ctx is cancelled, calling onChange for every
	// accepted change. It returns an error only when watching cannot start.
	Watch(ctx context.Context, onChange ChangeFunc) error

	// Name identifies the strategy for logs.
	Name() string
}

// New validates opts and returns the detector for the configured strategy.
// With StrategyAuto it tries fsnotify and falls back to polling when OS
// notifications are unavailable.
func New(opts Options) (Detector, error) {
	opts = opts.withDefaults()

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %q: %w", opts.Root, err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("watching root: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("watching root: %s is not a directory", root)
	}

	opts.Root = root

	exts := NewExtensions(opts.Extensions...)
	if len(exts) == 0 {
		return nil, fmt.Errorf("no valid extensions in %v", opts.Extensions)
	}

	switch opts.Strategy {
	case StrategyEvent:
		return newEventDetector(opts, exts), nil
	case StrategyPoll:
		return newPollDetector(opts, exts), nil
	case StrategyAuto:
		if notificationsAvailable() {
			return newEventDetector(opts, exts), nil
		}

		opts.Logger.Warn("file system notifications unavailable, falling back to polling",
			slog.Duration("interval", opts.PollInterval))

		return newPollDetector(opts, exts), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", opts.Strategy)
	}
}

// notificationsAvailable reports whether an fsnotify watcher can be created
// on this system.
func notificationsAvailable() bool {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return false
	}

	_ = w.Close()

	return true
}
