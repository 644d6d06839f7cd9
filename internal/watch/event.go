package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// EventDetector reacts to OS file-system notifications.
type EventDetector struct {
	opts      Options
	exts      Extensions
	debouncer *Debouncer
}

func newEventDetector(opts Options, exts Extensions) *EventDetector {
	return &EventDetector{
		opts:      opts,
		exts:      exts,
		debouncer: NewDebouncer(opts.Debounce),
	}
}

// Name implements Detector.
func (d *EventDetector) Name() string { return string(StrategyEvent) }

// Watch implements Detector.
func (d *EventDetector) Watch(ctx context.Context, onChange ChangeFunc) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Walk the root and add all subdirectories.
	if err := addRecursive(watcher, d.opts.Root); err != nil {
		return fmt.Errorf("watching %s: %w", d.opts.Root, err)
	}

	logger := d.opts.Logger
	logger.Debug("event detector started",
		slog.String("root", d.opts.Root),
		slog.Int("directories", len(watcher.WatchList())))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if c, ok := d.handle(watcher, event); ok {
				onChange(c)
			}

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.Warn("watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// handle filters a single notification and applies the debounce gate.
func (d *EventDetector) handle(watcher *fsnotify.Watcher, event fsnotify.Event) (Change, bool) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return Change{}, false
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		// Vanished before we could look at it.
		return Change{}, false
	}

	if info.IsDir() {
		// A new directory must be watched too; the event itself is not a change.
		if event.Has(fsnotify.Create) && !isIgnoredDir(event.Name, d.opts.Root, info.Name()) {
			if err := addRecursive(watcher, event.Name); err != nil {
				d.opts.Logger.Debug("cannot watch new directory",
					slog.String("path", event.Name), slog.String("error", err.Error()))
			}
		}

		return Change{}, false
	}

	if !d.relevant(event.Name) {
		return Change{}, false
	}

	if !d.debouncer.Allow() {
		d.opts.Logger.Debug("change debounced", slog.String("path", event.Name))
		return Change{}, false
	}

	op := "write"
	if event.Has(fsnotify.Create) {
		op = "create"
	}

	return Change{Path: filepath.Clean(event.Name), Op: op}, true
}

func (d *EventDetector) relevant(path string) bool {
	return !isIgnoredName(filepath.Base(path)) && d.exts.Match(path)
}

// addRecursive walks root and adds all directories to the watcher.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			// Skip hidden directories (e.g., .git) and node_modules.
			if isIgnoredDir(path, root, d.Name()) {
				return filepath.SkipDir
			}

			return watcher.Add(path)
		}

		return nil
	})
}
