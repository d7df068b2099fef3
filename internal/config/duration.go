package config

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// durationDefaults holds the fallback for every duration field in the
// planner config, keyed by its yaml path.
var durationDefaults = map[string]time.Duration{
	"storage.busy_timeout": 5 * time.Second,
	"reminder.timeout":     30 * time.Second,
	"status.read_timeout":  10 * time.Second,
	"status.write_timeout": 60 * time.Second, // pprof profiles run for 30s
	"status.idle_timeout":  2 * time.Minute,
}

// DurationDefault returns the fallback for a known duration field, or 0.
func DurationDefault(path string) time.Duration {
	return durationDefaults[path]
}

// Duration parses the field at path, falling back to its table default
// when raw is empty or zero.
func Duration(path, raw string) (time.Duration, error) {
	def, ok := durationDefaults[path]
	if !ok {
		return 0, fmt.Errorf("%s: not a duration field", path)
	}
	return ParseDurationOrDefault(path, raw, def)
}

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

// durationFields lists the raw duration values set in cfg, keyed by path.
// Sections that are absent contribute nothing.
func durationFields(cfg *Config) map[string]string {
	out := map[string]string{}
	if s := cfg.Storage; s != nil {
		out["storage.busy_timeout"] = s.BusyTimeout
	}
	if r := cfg.Reminder; r != nil {
		out["reminder.timeout"] = r.Timeout
	}
	if st := cfg.Status; st != nil {
		out["status.read_timeout"] = st.ReadTimeout
		out["status.write_timeout"] = st.WriteTimeout
		out["status.idle_timeout"] = st.IdleTimeout
	}
	return out
}

// validateDurations checks every duration field in path order so the
// first reported error is stable.
func validateDurations(cfg *Config) error {
	fields := durationFields(cfg)
	paths := make([]string, 0, len(fields))
	for p := range fields {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if _, err := ParseDurationField(p, fields[p]); err != nil {
			return err
		}
	}
	return nil
}
