// Package storage persists schedule snapshots keyed by user or session
// identifier.
//
// The body of a record is opaque here; callers hand in encoded snapshots
// and get the same bytes back. Saving under an existing key replaces the
// previous record (last write wins). Every write can be journaled with
// AppendAudit.
//
// Drivers: "file", "sqlite", "redis", "memory". An empty driver or "none"
// disables storage.
package storage
