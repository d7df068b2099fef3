package reminder

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"studyplan/internal/eventbus"
	logx "studyplan/pkg/logx"
)

// ErrOverlapSkip is returned by Trigger when the job is already running.
var ErrOverlapSkip = errors.New("reminder: previous run still in flight")

// ErrUnknownJob is returned by Trigger for names that are not registered.
var ErrUnknownJob = errors.New("reminder: unknown job")

const (
	defaultTimeout     = 30 * time.Second
	defaultHistorySize = 32
)

// Config controls the service.
type Config struct {
	Enabled        bool
	Timezone       string // IANA TZ, e.g. "Europe/Berlin"; empty means Local
	DefaultTimeout time.Duration
	HistorySize    int
}

// Job is one unit of scheduled work.
type Job func(ctx context.Context) error

type scheduleDef struct {
	name          string
	spec          string // cron spec or "@every <d>"
	timeout       time.Duration
	job           Job
	entryID       cron.EntryID
	startupSpread time.Duration

	running atomic.Bool
	runs    atomic.Uint64
	skips   atomic.Uint64
}

type Service struct {
	mu sync.Mutex

	log logx.Logger
	cfg Config
	loc *time.Location
	bus eventbus.Bus

	// base is the context handed to Start; job contexts derive from it.
	base context.Context

	parser cron.Parser
	c      *cron.Cron
	defs   []*scheduleDef

	hmu        sync.Mutex
	history    []HistoryItem
	historyMax atomic.Int64
}

type ScheduleInfo struct {
	Name    string        `json:"name"`
	Spec    string        `json:"spec"`
	Timeout time.Duration `json:"timeout"`
	Next    time.Time     `json:"next"`
	Prev    time.Time     `json:"prev"`
	Runs    uint64        `json:"runs"`
	Skips   uint64        `json:"skips"`
	Running bool          `json:"running"`
}

// HistoryItem records one finished run.
type HistoryItem struct {
	Name    string        `json:"name"`
	Started time.Time     `json:"started"`
	Took    time.Duration `json:"took"`
	Err     string        `json:"err,omitempty"`
}

type Snapshot struct {
	Enabled   bool           `json:"enabled"`
	Running   bool           `json:"running"`
	Timezone  string         `json:"timezone"`
	Schedules []ScheduleInfo `json:"schedules"`
	History   []HistoryItem  `json:"history"`
}
