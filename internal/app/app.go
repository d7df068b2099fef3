// Package app wires the planner together: configuration, logging, the
// sequencer, snapshot persistence and the reminder daemon.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"studyplan/internal/calendar"
	"studyplan/internal/config"
	"studyplan/internal/eventbus"
	"studyplan/internal/plan"
	"studyplan/internal/schedule"
	"studyplan/internal/sequencer"
	"studyplan/internal/storage"
	"studyplan/internal/trackfile"
	logx "studyplan/pkg/logx"
)

// ErrNoStorage is returned by operations that need a configured store.
var ErrNoStorage = errors.New("storage disabled (set storage.driver)")

type App struct {
	cfgPath string
	baseDir string

	cfgm *config.ConfigManager

	log  logx.Logger
	logs *logx.Service
	bus  *eventbus.MemBus

	storeMu sync.Mutex
	store   storage.Store

	memo *sequencer.Memo
	now  func() time.Time

	consoleOut io.Writer
}

type Option func(*options)

type options struct {
	now        func() time.Time
	consoleOut io.Writer
	store      storage.Store
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// WithConsoleOut sends console logs to w instead of stdout.
func WithConsoleOut(w io.Writer) Option { return func(o *options) { o.consoleOut = w } }

// WithStore uses st instead of opening the configured driver.
func WithStore(st storage.Store) Option { return func(o *options) { o.store = st } }

// New loads the config file at cfgPath and builds the app. Storage is
// opened when configured.
func New(cfgPath string, opts ...Option) (*App, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	if o.now == nil {
		o.now = time.Now
	}

	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logCfg := mapLogConfig(cfg)
	logCfg.ConsoleOut = o.consoleOut
	logSvc, log := logx.New(logCfg)

	a := &App{
		cfgPath: cfgPath,
		baseDir: filepath.Dir(cfgPath),
		cfgm:    cfgm,
		log:     log.With(logx.String("comp", "app")),
		logs:    logSvc,
		bus:     eventbus.New(),
		memo:    sequencer.NewMemo(0),
		now:     o.now,

		consoleOut: o.consoleOut,
	}
	cfgm.SetLogger(log.With(logx.String("comp", "config")))
	cfgm.SetValidator(a.validate)

	if o.store != nil {
		a.store = o.store
		return a, nil
	}
	sc, enabled, err := mapStorageConfig(cfg, a.baseDir)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			_ = logSvc.Close()
			return nil, fmt.Errorf("storage: %w", err)
		}
		a.store = st
		a.log.Debug("storage enabled", logx.String("driver", sc.Driver))
	}
	return a, nil
}

func (a *App) Config() *config.Config { return a.cfgm.Get() }

func (a *App) Logger() logx.Logger { return a.log }

func (a *App) Bus() eventbus.Bus { return a.bus }

// Now returns the app clock.
func (a *App) Now() time.Time { return a.now() }

// Today returns the current date in the planner timezone.
func (a *App) Today() calendar.Date {
	loc, err := a.Config().Planner.Location()
	if err != nil {
		loc = time.Local
	}
	return calendar.FromTime(a.now().In(loc))
}

func (a *App) storeOrErr() (storage.Store, error) {
	a.storeMu.Lock()
	defer a.storeMu.Unlock()
	if a.store == nil {
		return nil, ErrNoStorage
	}
	return a.store, nil
}

// Close releases the store and the log sinks.
func (a *App) Close() error {
	a.storeMu.Lock()
	st := a.store
	a.store = nil
	a.storeMu.Unlock()

	var err error
	if st != nil {
		err = st.Close()
	}
	_ = a.logs.Close()
	return err
}

// Tracks loads the configured track file and applies the track selection.
func (a *App) Tracks() ([]plan.Track, error) {
	p := a.Config().Planner
	all, err := trackfile.Load(resolvePath(a.baseDir, p.TracksFile))
	if err != nil {
		return nil, err
	}
	return trackfile.Select(all, p.Tracks)
}

// Result is one sequencing run with the inputs that produced it.
type Result struct {
	Assignment plan.Assignment
	Quota      plan.Quota
	TrackIDs   []string
	Start      calendar.Date
}

// Sequence schedules the configured tracks from the configured start date
// (today when unset).
func (a *App) Sequence(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	cfg := a.Config()
	tracks, err := a.Tracks()
	if err != nil {
		return Result{}, err
	}
	start, err := cfg.Planner.Start(a.now())
	if err != nil {
		return Result{}, err
	}
	quota := cfg.Planner.Quota()

	began := time.Now()
	asg, err := a.memo.Sequence(tracks, quota, start)
	if err != nil {
		return Result{}, err
	}
	res := Result{Assignment: asg, Quota: quota, TrackIDs: trackfile.IDs(tracks), Start: start}

	span := sequencer.SpanOf(asg)
	a.log.Debug("plan sequenced",
		logx.Int("tracks", len(tracks)),
		logx.String("start", start.Key()),
		logx.Int("study_days", span.StudyDays),
		logx.Duration("took", time.Since(began)),
	)
	a.bus.Publish(eventbus.Event{Type: eventbus.PlanSequenced, Data: span})
	return res, nil
}

// Save sequences the current configuration and stores it under user.
func (a *App) Save(ctx context.Context, user string) (schedule.Snapshot, error) {
	res, err := a.Sequence(ctx)
	if err != nil {
		return schedule.Snapshot{}, err
	}
	snap := schedule.SaveAssignment(res.Assignment, res.Quota, res.TrackIDs, res.Start, a.now())
	if err := a.put(ctx, a.userKey(user), snap, "save"); err != nil {
		return schedule.Snapshot{}, err
	}
	return snap, nil
}

// Load returns the snapshot stored under user.
func (a *App) Load(ctx context.Context, user string) (schedule.Snapshot, error) {
	st, err := a.storeOrErr()
	if err != nil {
		return schedule.Snapshot{}, err
	}
	key := a.userKey(user)
	rec, err := st.Get(ctx, key)
	if err != nil {
		return schedule.Snapshot{}, err
	}
	snap, err := schedule.Decode(rec.Body)
	if err != nil {
		return schedule.Snapshot{}, fmt.Errorf("snapshot %q: %w", key, err)
	}
	return snap, nil
}

// LoadAssignment rehydrates the snapshot stored under user.
func (a *App) LoadAssignment(ctx context.Context, user string) (plan.Assignment, schedule.Snapshot, error) {
	snap, err := a.Load(ctx, user)
	if err != nil {
		return nil, schedule.Snapshot{}, err
	}
	asg, err := schedule.Load(snap)
	if err != nil {
		return nil, schedule.Snapshot{}, err
	}
	return asg, snap, nil
}

// Edit applies m to one entry of the stored snapshot and stores the
// result as a new snapshot with the same inputs. A rejected edit leaves
// the store untouched.
func (a *App) Edit(ctx context.Context, user, entryID string, m schedule.Mutation) (schedule.Snapshot, error) {
	old, err := a.Load(ctx, user)
	if err != nil {
		return schedule.Snapshot{}, err
	}
	edited, err := schedule.ApplyEdit(old.Plan(), entryID, m)
	if err != nil {
		a.audit(ctx, storage.AuditEntry{Key: a.userKey(user), Action: "edit", SnapshotID: old.ID, Detail: entryID, Error: err.Error()})
		return schedule.Snapshot{}, err
	}
	snap := schedule.Save(edited, old.Quota, old.TrackIDs, old.StartDate, a.now())
	if err := a.put(ctx, a.userKey(user), snap, "edit"); err != nil {
		return schedule.Snapshot{}, err
	}
	a.log.Info("snapshot edited",
		logx.String("user", a.userKey(user)),
		logx.String("entry", entryID),
		logx.String("edit", m.Kind()),
	)
	return snap, nil
}

// Delete removes the snapshot stored under user.
func (a *App) Delete(ctx context.Context, user string) (bool, error) {
	st, err := a.storeOrErr()
	if err != nil {
		return false, err
	}
	key := a.userKey(user)
	ok, err := st.Delete(ctx, key)
	if err != nil {
		return false, err
	}
	if ok {
		a.audit(ctx, storage.AuditEntry{Key: key, Action: "delete"})
	}
	return ok, nil
}

// Snapshots lists stored snapshots, newest first.
func (a *App) Snapshots(ctx context.Context) ([]storage.Record, error) {
	st, err := a.storeOrErr()
	if err != nil {
		return nil, err
	}
	return st.List(ctx)
}

// Agenda returns the entries on day. The stored snapshot for user wins
// over a fresh sequencing run when storage is enabled and one exists.
func (a *App) Agenda(ctx context.Context, user string, day calendar.Date) ([]plan.Entry, error) {
	asg, _, err := a.LoadAssignment(ctx, user)
	switch {
	case err == nil:
		return asg.On(day), nil
	case errors.Is(err, ErrNoStorage), errors.Is(err, storage.ErrNotFound):
	default:
		return nil, err
	}
	res, err := a.Sequence(ctx)
	if err != nil {
		return nil, err
	}
	return res.Assignment.On(day), nil
}

// WeeklyLoad reports per-week totals against the configured hour bounds.
func (a *App) WeeklyLoad(asg plan.Assignment) []sequencer.WeekLoad {
	return sequencer.WeeklyLoad(asg, a.Config().Planner.Quota())
}

func (a *App) userKey(user string) string {
	if user != "" {
		return user
	}
	return a.Config().Planner.UserKey()
}

func (a *App) put(ctx context.Context, key string, snap schedule.Snapshot, action string) error {
	st, err := a.storeOrErr()
	if err != nil {
		return err
	}
	body, err := schedule.Encode(snap)
	if err != nil {
		return err
	}
	began := time.Now()
	err = st.Put(ctx, storage.Record{Key: key, SnapshotID: snap.ID, CreatedAt: snap.CreatedAt, Body: body})
	entry := storage.AuditEntry{Key: key, Action: action, SnapshotID: snap.ID, TookMS: time.Since(began).Milliseconds()}
	if err != nil {
		entry.Error = err.Error()
		a.audit(ctx, entry)
		return fmt.Errorf("save %q: %w", key, err)
	}
	a.audit(ctx, entry)
	a.log.Info("snapshot saved",
		logx.String("user", key),
		logx.String("id", snap.ID),
		logx.Int("entries", len(snap.Entries)),
	)
	a.bus.Publish(eventbus.Event{Type: eventbus.SnapshotSaved, Data: key})
	return nil
}

// audit failures are logged, never returned.
func (a *App) audit(ctx context.Context, e storage.AuditEntry) {
	st, err := a.storeOrErr()
	if err != nil {
		return
	}
	if e.At.IsZero() {
		e.At = a.now()
	}
	if err := st.AppendAudit(ctx, e); err != nil {
		a.log.Warn("audit append failed", logx.String("key", e.Key), logx.Err(err))
	}
}
