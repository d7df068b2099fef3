package config

import (
	"fmt"
	"strings"
	"time"

	"studyplan/internal/calendar"
	"studyplan/internal/plan"
)

type Config struct {
	Logging LoggingConfig `json:"logging"`
	Planner PlannerConfig `json:"planner"`

	// Storage is optional; nil disables snapshot persistence.
	Storage *StorageConfig `json:"storage,omitempty"`

	// Reminder is optional; nil disables the serve-mode jobs.
	Reminder *ReminderConfig `json:"reminder,omitempty"`

	// Status is the optional serve-mode HTTP endpoint.
	Status *StatusConfig `json:"status,omitempty"`
}

type LoggingConfig struct {
	Level   string        `json:"level"`
	Console bool          `json:"console"`
	File    LoggingFile   `json:"file"`
	Alerts  LoggingAlerts `json:"alerts"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingAlerts struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// PlannerConfig holds the learner's quota and track selection.
//
// Example (YAML):
//
//	planner:
//	  days_per_week: 5
//	  max_hours_per_week: 10
//	  start_date: "2026-10-19"   # empty = today in timezone
//	  tracks_file: ./tracks.yaml
//	  tracks: [basics, ielts]    # empty = every track in the file
//	  timezone: Asia/Jakarta
//	  user: alice
type PlannerConfig struct {
	DaysPerWeek     int     `json:"days_per_week"`
	MinHoursPerWeek float64 `json:"min_hours_per_week,omitempty"`
	MaxHoursPerWeek float64 `json:"max_hours_per_week,omitempty"`

	StartDate  string   `json:"start_date,omitempty"`
	TracksFile string   `json:"tracks_file"`
	Tracks     []string `json:"tracks,omitempty"`
	Timezone   string   `json:"timezone,omitempty"`

	// User is the default snapshot key.
	User string `json:"user,omitempty"`
}

func (p PlannerConfig) Quota() plan.Quota {
	return plan.Quota{
		DaysPerWeek:     p.DaysPerWeek,
		MinHoursPerWeek: p.MinHoursPerWeek,
		MaxHoursPerWeek: p.MaxHoursPerWeek,
	}
}

// Location returns the planner timezone (time.Local when unset).
func (p PlannerConfig) Location() (*time.Location, error) {
	tz := strings.TrimSpace(p.Timezone)
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("planner.timezone: %w", err)
	}
	return loc, nil
}

// Start returns the configured start date, or today in the planner
// timezone when start_date is empty.
func (p PlannerConfig) Start(now time.Time) (calendar.Date, error) {
	if s := strings.TrimSpace(p.StartDate); s != "" {
		d, err := calendar.ParseKey(s)
		if err != nil {
			return calendar.Date{}, fmt.Errorf("planner.start_date: %w", err)
		}
		return d, nil
	}
	loc, err := p.Location()
	if err != nil {
		return calendar.Date{}, err
	}
	return calendar.FromTime(now.In(loc)), nil
}

// UserKey returns User or "default".
func (p PlannerConfig) UserKey() string {
	if u := strings.TrimSpace(p.User); u != "" {
		return u
	}
	return "default"
}

// StorageConfig controls the optional persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./studyplan_store" }
//	"storage": { "driver": "redis", "addr": "127.0.0.1:6379", "prefix": "studyplan:" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)

	// redis
	Addr     string `json:"addr,omitempty"`
	Password string `json:"password,omitempty"` // never logged
	DB       int    `json:"db,omitempty"`
	Prefix   string `json:"prefix,omitempty"`
}

// ReminderConfig controls the serve-mode jobs. Schedules accept the forms
// understood by reminder.ParseSchedule; Agenda additionally accepts a
// daily "HH:MM" clock time via agenda_at.
type ReminderConfig struct {
	Enabled bool `json:"enabled"`

	// AgendaAt is a daily clock time ("07:30") for today's agenda.
	AgendaAt string `json:"agenda_at,omitempty"`
	// Autosave re-sequences and saves the default user's snapshot.
	Autosave string `json:"autosave,omitempty"`
	// LoadCheck reports weeks outside the hour bounds.
	LoadCheck string `json:"load_check,omitempty"`

	// Timeout is a Go duration string applied to each job run.
	Timeout string `json:"timeout,omitempty"`
}

// StatusConfig controls the serve-mode HTTP endpoint (health, status,
// agenda and optional pprof).
//
// Security: a non-loopback addr needs token or allow_insecure.
type StatusConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`  // default 127.0.0.1:8086
	Token         string `json:"token,omitempty"` // never logged
	AllowInsecure bool   `json:"allow_insecure,omitempty"`
	Pprof         bool   `json:"pprof,omitempty"`

	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`
}
