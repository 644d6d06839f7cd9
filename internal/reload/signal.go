// Package reload holds the process-wide reload signal shared between the
// change detector (writer) and HTTP request handling (reader).
package reload

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// State is a point-in-time view of a Signal.
type State struct {
	Epoch     string
	Version   uint64
	ChangedAt time.Time
}

// ChangedSince reports whether a client that last saw version of epoch is
// out of date. Versions restart at 0 with every process, so a client from a
// different epoch is always out of date. An empty epoch compares versions
// only.
func (st State) ChangedSince(epoch string, version uint64) bool {
	if epoch != "" && epoch != st.Epoch {
		return true
	}

	return st.Version > version
}

// Signal is a monotonically increasing version counter stamped with the time
// of its last advance. The zero value is ready to use and reports version 0
// with an empty epoch.
//
// All methods are safe for concurrent use. Readers never block on Advance.
type Signal struct {
	epoch     string
	version   atomic.Uint64
	changedAt atomic.Int64 // unix nanoseconds, 0 until the first advance
	now       func() time.Time
}

// New returns a Signal at version 0 with a fresh epoch.
func New() *Signal {
	return &Signal{epoch: uuid.NewString()}
}

// Epoch identifies the process lifetime the versions belong to.
func (s *Signal) Epoch() string {
	return s.epoch
}

// Advance increments the version by one, records the current time and
// returns the new version.
func (s *Signal) Advance() uint64 {
	// Stamp first so a reader that sees the new version also sees a
	// timestamp at least as recent as the advance that produced it.
	s.changedAt.Store(s.clock().UnixNano())

	return s.version.Add(1)
}

// Version returns the current version.
func (s *Signal) Version() uint64 {
	return s.version.Load()
}

// LastChangedAt returns the time of the most recent advance, or the zero
// time if the signal never advanced.
func (s *Signal) LastChangedAt() time.Time {
	ns := s.changedAt.Load()
	if ns == 0 {
		return time.Time{}
	}

	return time.Unix(0, ns)
}

// Snapshot returns the epoch and version together with the change
// timestamp.
func (s *Signal) Snapshot() State {
	v := s.Version()

	return State{Epoch: s.epoch, Version: v, ChangedAt: s.LastChangedAt()}
}

func (s *Signal) clock() time.Time {
	if s.now != nil {
		return s.now()
	}

	return time.Now()
}
