package storage

import (
	"context"
	"sync"
)

// Memory is an in-process Store. Records are copied in and out.
type Memory struct {
	mu    sync.RWMutex
	recs  map[string]Record
	audit []AuditEntry
}

func NewMemory() *Memory {
	return &Memory{recs: map[string]Record{}}
}

func (m *Memory) Put(_ context.Context, r Record) error {
	if err := checkRecord(r); err != nil {
		return err
	}
	r.Body = append([]byte(nil), r.Body...)
	m.mu.Lock()
	m.recs[r.Key] = r
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (Record, error) {
	if err := CheckKey(key); err != nil {
		return Record{}, err
	}
	m.mu.RLock()
	r, ok := m.recs[key]
	m.mu.RUnlock()
	if !ok {
		return Record{}, ErrNotFound
	}
	r.Body = append([]byte(nil), r.Body...)
	return r, nil
}

func (m *Memory) Delete(_ context.Context, key string) (bool, error) {
	if err := CheckKey(key); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.recs[key]
	delete(m.recs, key)
	return ok, nil
}

func (m *Memory) List(_ context.Context) ([]Record, error) {
	m.mu.RLock()
	out := make([]Record, 0, len(m.recs))
	for _, r := range m.recs {
		r.Body = nil
		out = append(out, r)
	}
	m.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}

func (m *Memory) AppendAudit(_ context.Context, e AuditEntry) error {
	m.mu.Lock()
	m.audit = append(m.audit, e)
	m.mu.Unlock()
	return nil
}

// Audit returns a copy of the audit journal.
func (m *Memory) Audit() []AuditEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]AuditEntry(nil), m.audit...)
}

func (m *Memory) Close() error { return nil }
