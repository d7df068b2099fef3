package sequencer

import (
	"encoding/json"
	"hash/fnv"
	"sync"

	"studyplan/internal/calendar"
	"studyplan/internal/plan"
)

const defaultMemoSize = 16

// Memo is an optional cache around Sequence. Sequence itself stays a pure
// function; callers that re-render often (month navigation, config reloads
// that did not touch the planner section) can route through a Memo instead.
//
// Results are cloned on the way in and out, so cached assignments can never
// be mutated by a caller.
type Memo struct {
	mu    sync.Mutex
	max   int
	order []uint64
	items map[uint64]plan.Assignment

	hits, misses uint64
}

// NewMemo returns a Memo holding at most size results (16 when size <= 0).
func NewMemo(size int) *Memo {
	if size <= 0 {
		size = defaultMemoSize
	}
	return &Memo{max: size, items: map[uint64]plan.Assignment{}}
}

// Sequence returns the cached assignment for identical inputs, computing it
// on a miss. Errors are never cached.
func (m *Memo) Sequence(tracks []plan.Track, quota plan.Quota, start calendar.Date) (plan.Assignment, error) {
	key := InputHash(tracks, quota, start)

	m.mu.Lock()
	if a, ok := m.items[key]; ok && key != 0 {
		m.hits++
		m.mu.Unlock()
		return a.Clone(), nil
	}
	m.misses++
	m.mu.Unlock()

	a, err := Sequence(tracks, quota, start)
	if err != nil {
		return nil, err
	}
	if key == 0 {
		return a, nil
	}

	m.mu.Lock()
	if _, ok := m.items[key]; !ok {
		m.order = append(m.order, key)
		for len(m.order) > m.max {
			delete(m.items, m.order[0])
			m.order = m.order[1:]
		}
	}
	m.items[key] = a.Clone()
	m.mu.Unlock()
	return a, nil
}

// Stats returns cache hit and miss counters.
func (m *Memo) Stats() (hits, misses uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits, m.misses
}

// Reset drops every cached result.
func (m *Memo) Reset() {
	m.mu.Lock()
	m.items = map[uint64]plan.Assignment{}
	m.order = nil
	m.mu.Unlock()
}

// InputHash returns a stable 64-bit hash of the sequencer inputs.
// It returns 0 if the inputs cannot be encoded.
func InputHash(tracks []plan.Track, quota plan.Quota, start calendar.Date) uint64 {
	b, err := json.Marshal(struct {
		Tracks []plan.Track  `json:"tracks"`
		Quota  plan.Quota    `json:"quota"`
		Start  calendar.Date `json:"start"`
	}{tracks, quota, start})
	if err != nil {
		return 0
	}
	return hashBytes(b)
}

// hashBytes returns a stable 64-bit hash of bytes. Empty input returns 0.
func hashBytes(b []byte) uint64 {
	if len(b) == 0 {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}
