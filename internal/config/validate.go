package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var storageDrivers = map[string]bool{"none": true, "file": true, "sqlite": true, "redis": true, "memory": true}

// Validate checks static constraints. Errors name the offending field path.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	p := cfg.Planner
	if p.DaysPerWeek < 1 || p.DaysPerWeek > 7 {
		return fmt.Errorf("planner.days_per_week: must be in [1, 7], got %d", p.DaysPerWeek)
	}
	if err := p.Quota().Validate(); err != nil {
		return fmt.Errorf("planner: %w", err)
	}
	if strings.TrimSpace(p.TracksFile) == "" {
		return errors.New("planner.tracks_file: required")
	}
	if _, err := p.Location(); err != nil {
		return err
	}
	if strings.TrimSpace(p.StartDate) != "" {
		if _, err := p.Start(time.Time{}); err != nil {
			return err
		}
	}
	seen := map[string]bool{}
	for i, id := range p.Tracks {
		id = strings.TrimSpace(id)
		if id == "" {
			return fmt.Errorf("planner.tracks[%d]: empty id", i)
		}
		if seen[id] {
			return fmt.Errorf("planner.tracks[%d]: duplicate id %q", i, id)
		}
		seen[id] = true
	}

	if cfg.Logging.Alerts.RatePerSec < 0 {
		return errors.New("logging.alerts.rate_per_sec: must be >= 0")
	}

	if s := cfg.Storage; s != nil {
		d := strings.ToLower(strings.TrimSpace(s.Driver))
		if d != "" && !storageDrivers[d] {
			return fmt.Errorf("storage.driver: unsupported %q", s.Driver)
		}
		if s.DB < 0 {
			return errors.New("storage.db: must be >= 0")
		}
	}

	return validateDurations(cfg)
}
