package reminder

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"studyplan/internal/eventbus"
	logx "studyplan/pkg/logx"
)

// AddSchedule parses schedule (see ParseSchedule) and registers job under
// name. Registering an existing name replaces it.
func (s *Service) AddSchedule(name, schedule string, timeout time.Duration, job Job) (string, error) {
	ps, err := ParseSchedule(schedule)
	if err != nil {
		return "", err
	}
	switch ps.Kind {
	case SpecCron:
		return s.AddCron(name, ps.Cron, timeout, job)
	case SpecInterval:
		return s.AddInterval(name, ps.Every, timeout, job)
	default:
		return "", fmt.Errorf("unsupported schedule kind %d", ps.Kind)
	}
}

func (s *Service) AddCron(name, spec string, timeout time.Duration, job Job) (string, error) {
	if _, err := s.parser.Parse(spec); err != nil {
		return "", fmt.Errorf("cron %q: %w", spec, err)
	}
	return s.add(name, spec, timeout, job)
}

func (s *Service) AddInterval(name string, every, timeout time.Duration, job Job) (string, error) {
	if every <= 0 {
		return "", errors.New("interval must be > 0")
	}
	return s.add(name, "@every "+every.String(), timeout, job)
}

// AddDaily runs job every day at HH:MM in the service timezone.
func (s *Service) AddDaily(name, atHHMM string, timeout time.Duration, job Job) (string, error) {
	h, m, err := parseClock(atHHMM)
	if err != nil {
		return "", err
	}
	return s.AddCron(name, fmt.Sprintf("%d %d * * *", m, h), timeout, job)
}

// AddWeekly runs job every week on weekday at HH:MM.
func (s *Service) AddWeekly(name string, weekday time.Weekday, atHHMM string, timeout time.Duration, job Job) (string, error) {
	h, m, err := parseClock(atHHMM)
	if err != nil {
		return "", err
	}
	return s.AddCron(name, fmt.Sprintf("%d %d * * %d", m, h, int(weekday)), timeout, job)
}

func (s *Service) add(name, spec string, timeout time.Duration, job Job) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("name required")
	}
	if job == nil {
		return "", errors.New("job required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(name)
	d := &scheduleDef{name: name, spec: spec, timeout: timeout, job: job}
	s.defs = append(s.defs, d)
	if s.c == nil {
		// Registered with cron on Start.
		return name, nil
	}
	s.registerLocked(d)
	if d.entryID == 0 {
		return name, fmt.Errorf("schedule %q not registered", name)
	}
	fields := []logx.Field{logx.String("name", name), logx.String("spec", spec), logx.Duration("timeout", timeout)}
	if next := s.previewNextRunsLocked(spec, 3); next != "" {
		fields = append(fields, logx.String("next", next))
	}
	s.log.Debug("schedule registered", fields...)
	return name, nil
}

// Remove unschedules name. It reports whether anything was removed.
func (s *Service) Remove(name string) bool {
	s.mu.Lock()
	removed := s.removeLocked(strings.TrimSpace(name))
	s.mu.Unlock()
	if removed {
		s.log.Debug("schedule removed", logx.String("name", name))
	}
	return removed
}

func (s *Service) removeLocked(name string) bool {
	if name == "" {
		return false
	}
	n := 0
	removed := false
	for _, d := range s.defs {
		if d.name == name {
			if s.c != nil && d.entryID != 0 {
				s.c.Remove(d.entryID)
			}
			removed = true
			continue
		}
		s.defs[n] = d
		n++
	}
	for i := n; i < len(s.defs); i++ {
		s.defs[i] = nil
	}
	s.defs = s.defs[:n]
	return removed
}

// Trigger runs a registered job now on the caller's goroutine.
func (s *Service) Trigger(ctx context.Context, name string) error {
	s.mu.Lock()
	var d *scheduleDef
	for _, cand := range s.defs {
		if cand.name == name {
			d = cand
			break
		}
	}
	timeout := s.timeoutLocked(d)
	s.mu.Unlock()
	if d == nil {
		return fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	return s.run(ctx, d, timeout)
}

func (s *Service) timeoutLocked(d *scheduleDef) time.Duration {
	if d != nil && d.timeout > 0 {
		return d.timeout
	}
	if s.cfg.DefaultTimeout > 0 {
		return s.cfg.DefaultTimeout
	}
	return defaultTimeout
}

// registerLocked adds d to the running cron. Interval schedules get a
// random first-run delay so that jobs registered together do not fire
// together.
func (s *Service) registerLocked(d *scheduleDef) {
	base := s.base
	timeout := s.timeoutLocked(d)
	job := cron.FuncJob(func() {
		if err := s.run(base, d, timeout); err != nil && !errors.Is(err, ErrOverlapSkip) {
			s.log.Warn("reminder job failed", logx.String("name", d.name), logx.Err(err))
		}
	})

	if every, ok := strings.CutPrefix(d.spec, "@every "); ok {
		if dur, err := time.ParseDuration(every); err == nil && dur > 0 {
			sched, jitter := makeIntervalScheduleWithSpread(dur, time.Now().In(s.loc), d.name)
			d.startupSpread = jitter
			d.entryID = s.c.Schedule(sched, job)
			return
		}
	}
	d.startupSpread = 0
	id, err := s.c.AddJob(d.spec, job)
	if err != nil {
		s.log.Error("schedule register failed", logx.String("name", d.name), logx.String("spec", d.spec), logx.Err(err))
		d.entryID = 0
		return
	}
	d.entryID = id
}

func (s *Service) run(ctx context.Context, d *scheduleDef, timeout time.Duration) (err error) {
	if !d.running.CompareAndSwap(false, true) {
		d.skips.Add(1)
		s.log.Debug("schedule trigger skipped", logx.String("name", d.name))
		return ErrOverlapSkip
	}
	defer d.running.Store(false)
	d.runs.Add(1)

	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", d.name, r)
		}
		item := HistoryItem{Name: d.name, Started: started, Took: time.Since(started)}
		if err != nil {
			item.Err = err.Error()
		}
		s.record(item)
		s.bus.Publish(eventbus.Event{Type: eventbus.JobFinished, Data: item})
	}()
	return d.job(rctx)
}

func (s *Service) record(it HistoryItem) {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	max := int(s.historyMax.Load())
	s.history = append(s.history, it)
	if over := len(s.history) - max; over > 0 {
		s.history = append(s.history[:0:0], s.history[over:]...)
	}
}

// previewNextRunsLocked lists upcoming run times for debug logs.
func (s *Service) previewNextRunsLocked(spec string, n int) string {
	if !s.log.Enabled(logx.LevelDebug) || n <= 0 {
		return ""
	}
	sched, err := s.parser.Parse(spec)
	if err != nil {
		return ""
	}
	loc := s.loc
	if loc == nil {
		loc = time.Local
	}
	t := time.Now().In(loc)
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		t = sched.Next(t)
		if t.IsZero() {
			break
		}
		parts = append(parts, t.Format("2006-01-02 15:04"))
	}
	return strings.Join(parts, ", ")
}

// parseClock parses a 24h "HH:MM" clock time.
func parseClock(s string) (hour, minute int, err error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	hour, err = strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}
