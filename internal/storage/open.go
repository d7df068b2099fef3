package storage

import (
	"context"
	"errors"
	"strings"

	logx "studyplan/pkg/logx"
)

// Store is the snapshot persistence API.
//
// List returns records without bodies, newest first.
type Store interface {
	Put(ctx context.Context, r Record) error
	Get(ctx context.Context, key string) (Record, error)
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context) ([]Record, error)
	AppendAudit(ctx context.Context, e AuditEntry) error
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "redis":
		return openRedis(context.Background(), cfg, log)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
