package watch

import (
	"path/filepath"
	"time"
)

// WatchedFile is the last known state of a relevant file.
type WatchedFile struct {
	Path    string
	ModTime time.Time
}

// Observation classifies a file seen during a scan.
type Observation int

const (
	// Unchanged means the stored modification time is not older.
	Unchanged Observation = iota
	// Added means the path was not in the snapshot before.
	Added
	// Modified means the file carries a strictly newer modification time.
	Modified
)

// Snapshot maps canonical file paths to their last known modification time.
// It is owned by a single detector and is not safe for concurrent use.
type Snapshot struct {
	files map[string]WatchedFile
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{files: make(map[string]WatchedFile)}
}

// Observe records modTime for path and reports how it compares with the
// previous entry. Entries are only ever moved forward in time.
func (s *Snapshot) Observe(path string, modTime time.Time) Observation {
	path = filepath.Clean(path)

	prev, ok := s.files[path]
	if !ok {
		s.files[path] = WatchedFile{Path: path, ModTime: modTime}
		return Added
	}

	if !modTime.After(prev.ModTime) {
		return Unchanged
	}

	s.files[path] = WatchedFile{Path: path, ModTime: modTime}

	return Modified
}

// Len returns the number of tracked files.
func (s *Snapshot) Len() int {
	return len(s.files)
}

// Retain drops every entry whose path is not in seen and returns the
// removed paths.
func (s *Snapshot) Retain(seen map[string]struct{}) []string {
	var removed []string

	for p := range s.files {
		if _, ok := seen[p]; !ok {
			delete(s.files, p)
			removed = append(removed, p)
		}
	}

	return removed
}
