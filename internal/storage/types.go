package storage

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrDisabled = errors.New("storage: disabled")
	ErrNotFound = errors.New("storage: snapshot not found")
	ErrBadKey   = errors.New("storage: invalid key")
)

// Config configures storage.
//
// Driver values:
//   - "file": one JSON file per key under Path (a directory), plus audit.jsonl
//   - "sqlite": SQLite database file at Path
//   - "redis": Redis server at Addr, keys under Prefix
//   - "memory": process-local, for tests and dry runs
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default

	Addr     string // redis
	Password string // redis
	DB       int    // redis
	Prefix   string // redis; default "studyplan:"
}

// Record is one stored snapshot.
type Record struct {
	Key        string    `json:"key"`
	SnapshotID string    `json:"snapshot_id"`
	CreatedAt  time.Time `json:"created_at"`
	Body       []byte    `json:"body,omitempty"`
}

// AuditEntry records a write to the store.
// Keep it compact and schema-stable.
type AuditEntry struct {
	At         time.Time `json:"at"`
	Key        string    `json:"key"`
	Action     string    `json:"action"` // "save", "edit", "delete"
	SnapshotID string    `json:"snapshot_id,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	Error      string    `json:"error,omitempty"`
	TookMS     int64     `json:"took_ms,omitempty"`
}

const maxKeyLen = 128

// CheckKey rejects keys that are empty, too long, or contain characters
// other than letters, digits, '.', '_', '-' and '@'. Keys become file names
// in the file driver.
func CheckKey(key string) error {
	if key == "" || len(key) > maxKeyLen {
		return fmt.Errorf("%w: %q", ErrBadKey, key)
	}
	if key == "." || key == ".." {
		return fmt.Errorf("%w: %q", ErrBadKey, key)
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '_', r == '-', r == '@':
		default:
			return fmt.Errorf("%w: %q", ErrBadKey, key)
		}
	}
	return nil
}

func checkRecord(r Record) error {
	if err := CheckKey(r.Key); err != nil {
		return err
	}
	if len(r.Body) == 0 {
		return fmt.Errorf("storage: empty body for %q", r.Key)
	}
	return nil
}
