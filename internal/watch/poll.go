package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"
)

// errStopScan ends a walk early once a change has been accepted.
var errStopScan = errors.New("stop scan")

// PollDetector rescans the tree on a fixed period and compares modification
// times with a Snapshot.
type PollDetector struct {
	opts      Options
	exts      Extensions
	debouncer *Debouncer
	snapshot  *Snapshot
}

func newPollDetector(opts Options, exts Extensions) *PollDetector {
	return &PollDetector{
		opts:      opts,
		exts:      exts,
		debouncer: NewDebouncer(opts.Debounce),
		snapshot:  NewSnapshot(),
	}
}

// Name implements Detector.
func (d *PollDetector) Name() string { return string(StrategyPoll) }

// Watch implements Detector.
func (d *PollDetector) Watch(ctx context.Context, onChange ChangeFunc) error {
	d.scan()

	d.opts.Logger.Debug("poll detector started",
		slog.String("root", d.opts.Root),
		slog.Int("files", d.snapshot.Len()),
		slog.Duration("interval", d.opts.PollInterval))

	ticker := time.NewTicker(d.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if c, ok := d.check(); ok {
				onChange(c)
			}
		}
	}
}

// scan records every relevant file without reporting anything.
func (d *PollDetector) scan() {
	seen := make(map[string]struct{})

	d.walk(func(path string, modTime time.Time) error {
		seen[path] = struct{}{}
		d.snapshot.Observe(path, modTime)

		return nil
	})

	d.snapshot.Retain(seen)
}

// check runs one detection cycle. The first file with a strictly newer
// modification time wins; remaining files are left for the next cycle.
// Files seen for the first time are recorded but do not count as a change.
func (d *PollDetector) check() (Change, bool) {
	if !d.debouncer.Ready() {
		return Change{}, false
	}

	var (
		changed  Change
		found    bool
		complete = true
		seen     = make(map[string]struct{})
	)

	err := d.walk(func(path string, modTime time.Time) error {
		seen[path] = struct{}{}

		switch d.snapshot.Observe(path, modTime) {
		case Added:
			d.opts.Logger.Debug("new file tracked", slog.String("path", path))
		case Modified:
			changed = Change{Path: path, Op: "modified"}
			found = true

			return errStopScan
		}

		return nil
	})
	if errors.Is(err, errStopScan) {
		complete = false
	}

	// Only a full pass knows which files are gone.
	if complete {
		for _, p := range d.snapshot.Retain(seen) {
			d.opts.Logger.Debug("file no longer tracked", slog.String("path", p))
		}
	}

	if !found || !d.debouncer.Allow() {
		return Change{}, false
	}

	return changed, true
}

// walk calls fn for every relevant regular file below the root. Errors on
// individual paths are skipped; only fn can stop the walk.
func (d *PollDetector) walk(fn func(path string, modTime time.Time) error) error {
	return filepath.WalkDir(d.opts.Root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable directory or a path that vanished mid-walk.
			return nil
		}

		if entry.IsDir() {
			if isIgnoredDir(path, d.opts.Root, entry.Name()) {
				return filepath.SkipDir
			}

			return nil
		}

		if isIgnoredName(entry.Name()) || !d.exts.Match(path) {
			return nil
		}

		info, statErr := entry.Info()
		if statErr != nil || !info.Mode().IsRegular() {
			return nil
		}

		return fn(filepath.Clean(path), info.ModTime())
	})
}
