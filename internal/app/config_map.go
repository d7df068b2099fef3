package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"studyplan/internal/config"
	"studyplan/internal/observability/status"
	"studyplan/internal/reminder"
	"studyplan/internal/storage"
	logx "studyplan/pkg/logx"
)

var defaultJobTimeout = config.DurationDefault("reminder.timeout")

func mapLogConfig(cfg *config.Config) logx.Config {
	l := cfg.Logging
	return logx.Config{
		Level:   l.Level,
		Console: l.Console,
		File:    logx.FileConfig{Enabled: l.File.Enabled, Path: l.File.Path},
		Alerts: logx.AlertConfig{
			Enabled:    l.Alerts.Enabled,
			MinLevel:   l.Alerts.MinLevel,
			RatePerSec: l.Alerts.RatePerSec,
		},
	}
}

// mapStorageConfig reports enabled=false when no storage section is set or
// the driver is "none". Relative paths resolve against baseDir.
func mapStorageConfig(cfg *config.Config, baseDir string) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	out := storage.Config{
		Driver:   driver,
		Path:     resolvePath(baseDir, sc.Path),
		Addr:     strings.TrimSpace(sc.Addr),
		Password: sc.Password,
		DB:       sc.DB,
		Prefix:   sc.Prefix,
	}
	switch driver {
	case "file", "sqlite", "sqlite3":
		if out.Path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=%s", driver)
		}
		busy, err := config.Duration("storage.busy_timeout", sc.BusyTimeout)
		if err != nil {
			return storage.Config{}, false, err
		}
		out.BusyTimeout = busy
	case "redis":
		if out.Addr == "" {
			return storage.Config{}, false, fmt.Errorf("storage.addr is required when storage.driver=redis")
		}
	case "memory":
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
	return out, true, nil
}

// jobSpecs are the reminder jobs named in the config, keyed by job name.
type jobSpecs struct {
	enabled bool
	timeout time.Duration
	tz      string
	specs   map[string]string
}

const (
	jobAgenda    = "agenda"
	jobAutosave  = "autosave"
	jobLoadCheck = "load_check"
)

func mapReminderConfig(cfg *config.Config) (jobSpecs, error) {
	js := jobSpecs{timeout: defaultJobTimeout, specs: map[string]string{}}
	if cfg == nil {
		return js, nil
	}
	js.tz = cfg.Planner.Timezone
	r := cfg.Reminder
	if r == nil {
		return js, nil
	}
	js.enabled = r.Enabled
	timeout, err := config.Duration("reminder.timeout", r.Timeout)
	if err != nil {
		return jobSpecs{}, err
	}
	js.timeout = timeout

	if at := strings.TrimSpace(r.AgendaAt); at != "" {
		js.specs[jobAgenda] = "daily:" + at
	}
	if s := strings.TrimSpace(r.Autosave); s != "" {
		js.specs[jobAutosave] = s
	}
	if s := strings.TrimSpace(r.LoadCheck); s != "" {
		js.specs[jobLoadCheck] = s
	}
	for name, spec := range js.specs {
		if err := reminder.Validate(spec); err != nil {
			return jobSpecs{}, fmt.Errorf("reminder.%s: %w", fieldOf(name), err)
		}
	}
	return js, nil
}

func fieldOf(job string) string {
	if job == jobAgenda {
		return "agenda_at"
	}
	return job
}

// validate is installed as the config manager's reload hook: it rejects
// configs whose derived settings cannot be applied.
func (a *App) validate(_ context.Context, cfg *config.Config) error {
	if _, err := mapReminderConfig(cfg); err != nil {
		return err
	}
	if _, _, err := mapStorageConfig(cfg, a.baseDir); err != nil {
		return err
	}
	if _, err := mapStatusConfig(cfg); err != nil {
		return err
	}
	return nil
}

func mapStatusConfig(cfg *config.Config) (status.Config, error) {
	if cfg == nil || cfg.Status == nil {
		return status.Config{}, nil
	}
	st := cfg.Status
	out := status.Config{
		Enabled:       st.Enabled,
		Addr:          strings.TrimSpace(st.Addr),
		Token:         strings.TrimSpace(st.Token),
		AllowInsecure: st.AllowInsecure,
		Pprof:         st.Pprof,
	}
	var err error
	if out.ReadTimeout, err = config.Duration("status.read_timeout", st.ReadTimeout); err != nil {
		return status.Config{}, err
	}
	if out.WriteTimeout, err = config.Duration("status.write_timeout", st.WriteTimeout); err != nil {
		return status.Config{}, err
	}
	if out.IdleTimeout, err = config.Duration("status.idle_timeout", st.IdleTimeout); err != nil {
		return status.Config{}, err
	}
	return out, nil
}

func resolvePath(baseDir, p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) || baseDir == "" {
		return p
	}
	return filepath.Join(baseDir, p)
}
