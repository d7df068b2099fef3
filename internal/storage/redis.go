package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	logx "studyplan/pkg/logx"
)

const (
	defaultRedisPrefix = "studyplan:"
	redisAuditMax      = 10000
	redisPingTimeout   = 3 * time.Second
)

// redisStore keeps each record as a JSON string under <prefix>snapshot:<key>,
// the key set under <prefix>snapshots and the audit journal as a capped list
// under <prefix>audit.
type redisStore struct {
	rdb    *redis.Client
	log    logx.Logger
	prefix string
}

func openRedis(ctx context.Context, cfg Config, log logx.Logger) (Store, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("storage.addr is required for redis driver")
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pctx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	log.Debug("redis storage connected", logx.String("addr", addr), logx.Int("db", cfg.DB))
	return &redisStore{rdb: rdb, log: log, prefix: prefix}, nil
}

func (s *redisStore) recordKey(key string) string { return s.prefix + "snapshot:" + key }
func (s *redisStore) setKey() string              { return s.prefix + "snapshots" }
func (s *redisStore) auditKey() string            { return s.prefix + "audit" }

func (s *redisStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func (s *redisStore) Put(ctx context.Context, r Record) error {
	if err := checkRecord(r); err != nil {
		return err
	}
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.recordKey(r.Key), b, 0)
		p.SAdd(ctx, s.setKey(), r.Key)
		return nil
	})
	return err
}

func (s *redisStore) Get(ctx context.Context, key string) (Record, error) {
	if err := CheckKey(key); err != nil {
		return Record{}, err
	}
	raw, err := s.rdb.Get(ctx, s.recordKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	var r Record
	if err := json.Unmarshal(raw, &r); err != nil {
		return Record{}, fmt.Errorf("storage: decode %q: %w", key, err)
	}
	return r, nil
}

func (s *redisStore) Delete(ctx context.Context, key string) (bool, error) {
	if err := CheckKey(key); err != nil {
		return false, err
	}
	var del *redis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		del = p.Del(ctx, s.recordKey(key))
		p.SRem(ctx, s.setKey(), key)
		return nil
	})
	if err != nil {
		return false, err
	}
	return del.Val() > 0, nil
}

func (s *redisStore) List(ctx context.Context) ([]Record, error) {
	keys, err := s.rdb.SMembers(ctx, s.setKey()).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(keys))
	for _, k := range keys {
		r, err := s.Get(ctx, k)
		if errors.Is(err, ErrNotFound) {
			// Set member without a value; drop it.
			_ = s.rdb.SRem(ctx, s.setKey(), k).Err()
			continue
		}
		if err != nil {
			s.log.Warn("skipping unreadable snapshot", logx.String("key", k), logx.Err(err))
			continue
		}
		r.Body = nil
		out = append(out, r)
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *redisStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, s.auditKey(), b)
		p.LTrim(ctx, s.auditKey(), -redisAuditMax, -1)
		return nil
	})
	return err
}
