package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"studyplan/internal/calendar"
	"studyplan/internal/config"
	"studyplan/internal/eventbus"
	"studyplan/internal/observability/status"
	"studyplan/internal/plan"
	"studyplan/internal/reminder"
	"studyplan/internal/runtime/supervisor"
	"studyplan/internal/storage"
	logx "studyplan/pkg/logx"
)

const stopTimeout = 5 * time.Second

// AgendaNotice is the payload of eventbus.AgendaDue.
type AgendaNotice struct {
	Date    calendar.Date
	Entries []plan.Entry
	Minutes int
}

// Serve runs the daemon until ctx ends or a supervised goroutine fails:
// config hot reload, reminder jobs, the status endpoint and systemd
// notifications. It returns the first fatal goroutine error, if any.
func (a *App) Serve(ctx context.Context) error {
	sup := supervisor.New(ctx,
		supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))),
		supervisor.WithCancelOnError(true),
	)

	js, err := mapReminderConfig(a.Config())
	if err != nil {
		return err
	}
	rem := reminder.New(reminderConfig(js), a.log.With(logx.String("comp", "reminder")), a.bus)
	if err := a.registerJobs(rem, js); err != nil {
		return err
	}
	if js.enabled {
		rem.Start(sup.Context())
	}

	sc, err := mapStatusConfig(a.Config())
	if err != nil {
		return err
	}
	st := status.New(sc, &daemonStatus{app: a, rem: rem, sup: sup}, a.log.With(logx.String("comp", "status")))
	st.Reconfigure(sup.Context(), sc)

	events, unsub := a.bus.Subscribe(64)
	sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	sub := a.cfgm.Subscribe(4)
	sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		last := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case next, ok := <-sub:
				if !ok {
					return
				}
				a.applyConfig(c, rem, st, last, next)
				last = next
			}
		}
	})

	sup.GoRestart("config.watch", a.cfgm.Watch, supervisor.WithRestartBackoff(time.Second, time.Minute))

	if interval, err := daemon.SdWatchdogEnabled(false); err == nil && interval > 0 {
		sup.Go0("systemd.watchdog", func(c context.Context) {
			t := time.NewTicker(interval / 2)
			defer t.Stop()
			for {
				select {
				case <-c.Done():
					return
				case <-t.C:
					_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
				}
			}
		})
	}

	a.sdNotify(daemon.SdNotifyReady)
	a.log.Info("planner daemon started",
		logx.Bool("reminders", js.enabled),
		logx.Int("jobs", len(js.specs)),
		logx.String("config", a.cfgPath),
	)

	<-sup.Context().Done()

	reason := StopSignal
	if sup.Err() != nil {
		reason = StopFatalError
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	a.sdNotify(daemon.SdNotifyStopping)

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	rem.Stop(stopCtx)
	st.Stop(stopCtx)
	if err := sup.Stop(stopCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	a.log.Info("stopped")
	return sup.Err()
}

func (a *App) sdNotify(state string) {
	ok, err := daemon.SdNotify(false, state)
	if err != nil {
		a.log.Debug("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if ok {
		a.log.Debug("sd_notify sent", logx.String("state", strings.TrimSpace(state)))
	}
}

func reminderConfig(js jobSpecs) reminder.Config {
	return reminder.Config{Enabled: js.enabled, Timezone: js.tz, DefaultTimeout: js.timeout}
}

// registerJobs makes the reminder service's jobs match js.
func (a *App) registerJobs(rem *reminder.Service, js jobSpecs) error {
	jobs := map[string]reminder.Job{
		jobAgenda:    a.agendaJob,
		jobAutosave:  a.autosaveJob,
		jobLoadCheck: a.loadCheckJob,
	}
	names := make([]string, 0, len(jobs))
	for name := range jobs {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		spec, ok := js.specs[name]
		if !ok {
			rem.Remove(name)
			continue
		}
		if _, err := rem.AddSchedule(name, spec, js.timeout, jobs[name]); err != nil {
			return fmt.Errorf("reminder.%s: %w", fieldOf(name), err)
		}
	}
	return nil
}

func (a *App) agendaJob(ctx context.Context) error {
	day := a.Today()
	entries, err := a.Agenda(ctx, "", day)
	if err != nil {
		return err
	}
	n := AgendaNotice{Date: day, Entries: entries}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID())
		n.Minutes += e.TotalMinutes
	}
	a.log.Info("agenda due",
		logx.String("date", day.Key()),
		logx.String("entries", strings.Join(ids, ",")),
		logx.Int("minutes", n.Minutes),
	)
	a.bus.Publish(eventbus.Event{Type: eventbus.AgendaDue, Data: n})
	return nil
}

func (a *App) autosaveJob(ctx context.Context) error {
	_, err := a.Save(ctx, "")
	if errors.Is(err, ErrNoStorage) {
		a.log.Debug("autosave skipped: storage disabled")
		return nil
	}
	return err
}

// loadCheckJob warns about weeks outside the configured hour bounds in the
// stored plan (or a fresh one when nothing is stored).
func (a *App) loadCheckJob(ctx context.Context) error {
	asg, _, err := a.LoadAssignment(ctx, "")
	if errors.Is(err, ErrNoStorage) || errors.Is(err, storage.ErrNotFound) {
		res, serr := a.Sequence(ctx)
		if serr != nil {
			return serr
		}
		asg, err = res.Assignment, nil
	}
	if err != nil {
		return err
	}
	flagged := 0
	for _, w := range a.WeeklyLoad(asg) {
		if !w.UnderMin && !w.OverMax {
			continue
		}
		flagged++
		a.log.Warn("week outside hour bounds",
			logx.String("week", w.Monday.Key()),
			logx.Float64("hours", w.Hours()),
			logx.Bool("under_min", w.UnderMin),
			logx.Bool("over_max", w.OverMax),
		)
	}
	a.log.Debug("load check done", logx.Int("flagged_weeks", flagged))
	return nil
}

// applyConfig applies a reloaded config to the running daemon.
func (a *App) applyConfig(ctx context.Context, rem *reminder.Service, st *status.Service, oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}

	logCfg := mapLogConfig(newCfg)
	logCfg.ConsoleOut = a.consoleOut
	a.logs.Apply(logCfg)

	if config.PlannerChanged(oldCfg, newCfg) {
		a.memo.Reset()
	}
	if slices.Contains(sections, "storage") {
		a.log.Warn("storage config changed; restart required for changes to take effect")
	}

	js, err := mapReminderConfig(newCfg)
	if err != nil {
		// The reload validator rejects these; keep the running jobs.
		a.log.Warn("invalid reminder config; keeping previous", logx.Err(err))
	} else {
		wasEnabled := rem.Enabled()
		rem.Apply(reminderConfig(js))
		if err := a.registerJobs(rem, js); err != nil {
			a.log.Warn("reminder jobs not updated", logx.Err(err))
		}
		switch {
		case wasEnabled && !js.enabled:
			stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			rem.Stop(stopCtx)
			cancel()
			a.log.Info("reminders disabled via config")
		case !wasEnabled && js.enabled:
			rem.Start(ctx)
			a.log.Info("reminders enabled via config")
		}
	}

	if slices.Contains(sections, "status") {
		if sc, err := mapStatusConfig(newCfg); err != nil {
			a.log.Warn("invalid status config; keeping previous", logx.Err(err))
		} else {
			st.Reconfigure(ctx, sc)
		}
	}

	a.bus.Publish(eventbus.Event{Type: eventbus.ConfigReloaded, Data: sections})
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

// daemonStatus is the status endpoint's view of a running daemon.
type daemonStatus struct {
	app *App
	rem *reminder.Service
	sup *supervisor.Supervisor
}

type statusReport struct {
	Time       time.Time                   `json:"time"`
	Today      string                      `json:"today"`
	Config     string                      `json:"config"`
	Storage    bool                        `json:"storage"`
	Reminders  reminder.Snapshot           `json:"reminders"`
	Goroutines []supervisor.GoroutineStats `json:"goroutines"`
	Events     struct {
		Published uint64 `json:"published"`
		Dropped   uint64 `json:"dropped"`
	} `json:"events"`
	Memo struct {
		Hits   uint64 `json:"hits"`
		Misses uint64 `json:"misses"`
	} `json:"memo"`
}

func (d *daemonStatus) Report(context.Context) any {
	a := d.app
	r := statusReport{
		Time:       a.Now(),
		Today:      a.Today().Key(),
		Config:     a.cfgPath,
		Reminders:  d.rem.Snapshot(),
		Goroutines: d.sup.Stats(),
	}
	_, err := a.storeOrErr()
	r.Storage = err == nil
	r.Events.Published, r.Events.Dropped = a.bus.Stats()
	r.Memo.Hits, r.Memo.Misses = a.memo.Stats()
	return r
}

func (d *daemonStatus) Today() calendar.Date { return d.app.Today() }

func (d *daemonStatus) Agenda(ctx context.Context, user string, day calendar.Date) ([]plan.Entry, error) {
	return d.app.Agenda(ctx, user, day)
}
