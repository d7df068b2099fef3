package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"studyplan/internal/calendar"
)

const sampleYAML = `
logging:
  level: debug
  console: true
planner:
  days_per_week: 5
  max_hours_per_week: 10
  start_date: 2026-10-19
  tracks_file: ./tracks.yaml
  tracks: [basics, ielts]
  timezone: UTC
  user: alice
storage:
  driver: sqlite
  path: ./plans.db
  busy_timeout: 3s
reminder:
  enabled: true
  agenda_at: "07:30"
  autosave: 1h
`

func TestParseBytesYAML(t *testing.T) {
	t.Parallel()
	cfg, err := ParseBytes("studyplan.yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("ParseBytes: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Planner.DaysPerWeek != 5 || cfg.Planner.MaxHoursPerWeek != 10 {
		t.Fatalf("planner = %+v", cfg.Planner)
	}
	start, err := cfg.Planner.Start(time.Now())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if want := calendar.New(2026, time.October, 19); start != want {
		t.Fatalf("Start = %v, want %v", start, want)
	}
	if cfg.Storage == nil || cfg.Storage.Driver != "sqlite" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if cfg.Reminder == nil || cfg.Reminder.AgendaAt != "07:30" {
		t.Fatalf("reminder = %+v", cfg.Reminder)
	}
	if got := cfg.Planner.UserKey(); got != "alice" {
		t.Fatalf("UserKey = %q", got)
	}
}

func TestParseBytesStrict(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		file string
		body string
	}{
		{"unknown json field", "c.json", `{"planner":{"days_per_week":3,"tracks_file":"x"},"webhook":{}}`},
		{"unknown yaml field", "c.yml", "planner:\n  days_per_week: 3\n  colour: red\n"},
		{"trailing json", "c.json", `{"planner":{}} {"planner":{}}`},
		{"broken yaml", "c.yaml", "planner: [\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ParseBytes(tt.file, []byte(tt.body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	base := func() *Config {
		return &Config{Planner: PlannerConfig{DaysPerWeek: 3, TracksFile: "tracks.json"}}
	}
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"ok", func(c *Config) {}, ""},
		{"seven days accepted", func(c *Config) { c.Planner.DaysPerWeek = 7 }, ""},
		{"zero days", func(c *Config) { c.Planner.DaysPerWeek = 0 }, "planner.days_per_week"},
		{"eight days", func(c *Config) { c.Planner.DaysPerWeek = 8 }, "planner.days_per_week"},
		{"min over max", func(c *Config) { c.Planner.MinHoursPerWeek = 9; c.Planner.MaxHoursPerWeek = 3 }, "planner"},
		{"no tracks file", func(c *Config) { c.Planner.TracksFile = " " }, "planner.tracks_file"},
		{"bad timezone", func(c *Config) { c.Planner.Timezone = "Mars/Olympus" }, "planner.timezone"},
		{"bad start", func(c *Config) { c.Planner.StartDate = "19.10.2026" }, "planner.start_date"},
		{"dup track", func(c *Config) { c.Planner.Tracks = []string{"a", "a"} }, "planner.tracks[1]"},
		{"bad driver", func(c *Config) { c.Storage = &StorageConfig{Driver: "mongo"} }, "storage.driver"},
		{"bad busy timeout", func(c *Config) { c.Storage = &StorageConfig{Driver: "sqlite", BusyTimeout: "soon"} }, "storage.busy_timeout"},
		{"bad reminder timeout", func(c *Config) { c.Reminder = &ReminderConfig{Timeout: "-1s"} }, "reminder.timeout"},
		{"bad status timeout", func(c *Config) { c.Status = &StatusConfig{ReadTimeout: "fast"} }, "status.read_timeout"},
		{"first bad duration by path", func(c *Config) { c.Status = &StatusConfig{ReadTimeout: "x", IdleTimeout: "y"} }, "status.idle_timeout"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := base()
			tt.mutate(c)
			err := Validate(c)
			if tt.want == "" {
				if err != nil {
					t.Fatalf("Validate = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	t.Parallel()
	a := &Config{Planner: PlannerConfig{DaysPerWeek: 3, TracksFile: "t.json"}}
	b := &Config{
		Planner:  PlannerConfig{DaysPerWeek: 4, TracksFile: "t.json"},
		Storage:  &StorageConfig{Driver: "redis", Password: "secret"},
		Reminder: &ReminderConfig{Enabled: true},
		Status:   &StatusConfig{Enabled: true, Token: "t0k"},
	}
	changed, attrs := SummarizeConfigChange(a, b)
	if got := strings.Join(changed, ","); got != "planner,reminder,status,storage" {
		t.Fatalf("changed = %q", got)
	}
	if len(attrs) == 0 {
		t.Fatal("no attrs")
	}
	if !PlannerChanged(a, b) || PlannerChanged(b, b) {
		t.Fatal("PlannerChanged mismatch")
	}
	if changed, _ := SummarizeConfigChange(b, b); len(changed) != 0 {
		t.Fatalf("identical configs changed = %v", changed)
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	if d, err := ParseDurationField("x", ""); err != nil || d != 0 {
		t.Fatalf("empty = %v, %v", d, err)
	}
	if d, err := ParseDurationOrDefault("x", "0s", time.Minute); err != nil || d != time.Minute {
		t.Fatalf("default = %v, %v", d, err)
	}
	if _, err := ParseDurationField("reminder.timeout", "-2s"); err == nil || !strings.Contains(err.Error(), "reminder.timeout") {
		t.Fatalf("negative = %v", err)
	}
}

func TestDuration(t *testing.T) {
	t.Parallel()
	tests := []struct {
		path string
		raw  string
		want time.Duration
		err  bool
	}{
		{"storage.busy_timeout", "", 5 * time.Second, false},
		{"reminder.timeout", "0s", 30 * time.Second, false},
		{"reminder.timeout", "45s", 45 * time.Second, false},
		{"status.read_timeout", "", 10 * time.Second, false},
		{"status.write_timeout", " ", time.Minute, false},
		{"status.idle_timeout", "5m", 5 * time.Minute, false},
		{"status.idle_timeout", "-1m", 0, true},
		{"planner.start_date", "1s", 0, true},
	}
	for _, tt := range tests {
		got, err := Duration(tt.path, tt.raw)
		if (err != nil) != tt.err {
			t.Fatalf("Duration(%q, %q) err = %v, want err %v", tt.path, tt.raw, err, tt.err)
		}
		if got != tt.want {
			t.Fatalf("Duration(%q, %q) = %v, want %v", tt.path, tt.raw, got, tt.want)
		}
	}
	for path := range durationDefaults {
		if DurationDefault(path) <= 0 {
			t.Fatalf("DurationDefault(%q) = %v, want > 0", path, DurationDefault(path))
		}
	}
	if d := DurationDefault("planner.timezone"); d != 0 {
		t.Fatalf("DurationDefault(unknown) = %v, want 0", d)
	}
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestReloadPublishesOnlyChanges(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "studyplan.json")
	writeFile(t, path, `{"planner":{"days_per_week":3,"tracks_file":"t.json"}}`)

	m := NewConfigManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	sub := m.Subscribe(1)
	defer m.Unsubscribe(sub)

	ctx := context.Background()
	if ok, err := m.Reload(ctx); err != nil || ok {
		t.Fatalf("unchanged Reload = %v, %v", ok, err)
	}

	writeFile(t, path, `{"planner":{"days_per_week":9,"tracks_file":"t.json"}}`)
	if ok, err := m.Reload(ctx); err == nil || ok {
		t.Fatalf("invalid Reload = %v, %v", ok, err)
	}
	if m.Get().Planner.DaysPerWeek != 3 {
		t.Fatal("invalid config was committed")
	}

	writeFile(t, path, `{"planner":{"days_per_week":4,"tracks_file":"t.json"}}`)
	if ok, err := m.Reload(ctx); err != nil || !ok {
		t.Fatalf("Reload = %v, %v", ok, err)
	}
	select {
	case cfg := <-sub:
		if cfg.Planner.DaysPerWeek != 4 {
			t.Fatalf("published days = %d", cfg.Planner.DaysPerWeek)
		}
	default:
		t.Fatal("no config published")
	}
}

func TestWatchPicksUpEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studyplan.yaml")
	writeFile(t, path, "planner:\n  days_per_week: 3\n  tracks_file: t.yaml\n")

	m := NewConfigManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	sub := m.Subscribe(4)
	defer m.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = m.Watch(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher time to register, then edit until it notices.
	deadline := time.After(10 * time.Second)
	tick := time.NewTicker(300 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case cfg := <-sub:
			if cfg.Planner.DaysPerWeek != 6 {
				t.Fatalf("days = %d, want 6", cfg.Planner.DaysPerWeek)
			}
			return
		case <-tick.C:
			writeFile(t, path, "planner:\n  days_per_week: 6\n  tracks_file: t.yaml\n")
		case <-deadline:
			t.Fatal("watcher never published the edited config")
		}
	}
}
