// Package watch detects changes below a served directory tree. It offers
// two interchangeable detectors behind the Detector interface: one driven by
// OS file-system notifications (fsnotify) and one that periodically rescans
// the tree and diffs modification times against a Snapshot. Both coalesce
// bursts of changes with a Debouncer so a save that touches several files
// produces a single notification.
package watch
