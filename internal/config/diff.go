package config

import (
	"reflect"
	"sort"
	"strings"

	logx "studyplan/pkg/logx"
)

// SummarizeConfigChange returns a compact list of changed sections and safe
// structured attrs for logging (never includes secrets like the redis
// password).
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 4)
	attrs := make([]logx.Field, 0, 16)

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logx.alerts_enabled", newCfg.Logging.Alerts.Enabled),
		)
	}

	op, np := oldCfg.Planner, newCfg.Planner
	if !reflect.DeepEqual(op, np) {
		changed = append(changed, "planner")
		attrs = append(attrs,
			logx.Int("planner.days_per_week", np.DaysPerWeek),
			logx.Float64("planner.min_hours_per_week", np.MinHoursPerWeek),
			logx.Float64("planner.max_hours_per_week", np.MaxHoursPerWeek),
			logx.String("planner.start_date", strings.TrimSpace(np.StartDate)),
			logx.String("planner.tracks_file", strings.TrimSpace(np.TracksFile)),
			logx.Int("planner.track_count", len(np.Tracks)),
			logx.String("planner.timezone", strings.TrimSpace(np.Timezone)),
		)
	}

	// Storage: nil means disabled. Compare without the password, only
	// surface whether one is set.
	oldS, newS := storageView(oldCfg.Storage), storageView(newCfg.Storage)
	if oldS != newS {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", newS.driver),
			logx.Bool("storage.path_set", newS.pathSet),
			logx.String("storage.addr", newS.addr),
			logx.Bool("storage.password_set", newS.passwordSet),
		)
	}

	var oldR, newR ReminderConfig
	if oldCfg.Reminder != nil {
		oldR = *oldCfg.Reminder
	}
	if newCfg.Reminder != nil {
		newR = *newCfg.Reminder
	}
	if oldR != newR {
		changed = append(changed, "reminder")
		attrs = append(attrs,
			logx.Bool("reminder.enabled", newR.Enabled),
			logx.String("reminder.agenda_at", newR.AgendaAt),
			logx.String("reminder.autosave", newR.Autosave),
			logx.String("reminder.load_check", newR.LoadCheck),
		)
	}

	var oldSt, newSt StatusConfig
	if oldCfg.Status != nil {
		oldSt = *oldCfg.Status
	}
	if newCfg.Status != nil {
		newSt = *newCfg.Status
	}
	if oldSt != newSt {
		changed = append(changed, "status")
		attrs = append(attrs,
			logx.Bool("status.enabled", newSt.Enabled),
			logx.String("status.addr", newSt.Addr),
			logx.Bool("status.token_set", newSt.Token != ""),
			logx.Bool("status.pprof", newSt.Pprof),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}

// PlannerChanged reports whether a reload affects sequencing inputs.
func PlannerChanged(oldCfg, newCfg *Config) bool {
	if oldCfg == nil || newCfg == nil {
		return oldCfg != newCfg
	}
	return !reflect.DeepEqual(oldCfg.Planner, newCfg.Planner)
}

type storageSummary struct {
	driver, addr, prefix, busy string
	pathSet, passwordSet       bool
	db                         int
}

func storageView(s *StorageConfig) storageSummary {
	if s == nil {
		return storageSummary{}
	}
	return storageSummary{
		driver:      strings.ToLower(strings.TrimSpace(s.Driver)),
		addr:        strings.TrimSpace(s.Addr),
		prefix:      s.Prefix,
		busy:        strings.TrimSpace(s.BusyTimeout),
		pathSet:     strings.TrimSpace(s.Path) != "",
		passwordSet: s.Password != "",
		db:          s.DB,
	}
}
