package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"studyplan/internal/calendar"
	"studyplan/internal/plan"
	"studyplan/internal/storage"
	logx "studyplan/pkg/logx"
)

// 2026-10-19 is a Monday.
var monday = calendar.New(2026, time.October, 19)

type fakeSource struct {
	entries map[calendar.Date][]plan.Entry
	err     error
}

func (f fakeSource) Report(context.Context) any { return map[string]any{"ok": true} }
func (f fakeSource) Today() calendar.Date       { return monday }
func (f fakeSource) Agenda(_ context.Context, _ string, d calendar.Date) ([]plan.Entry, error) {
	return f.entries[d], f.err
}

func newSource() fakeSource {
	return fakeSource{entries: map[calendar.Date][]plan.Entry{
		monday: {{Date: monday, TrackID: "basics", DayIndex: 1, TotalMinutes: 45}},
	}}
}

func do(t *testing.T, h http.Handler, target, auth string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerRoutes(t *testing.T) {
	t.Parallel()
	s := New(Config{}, newSource(), logx.Nop())
	h := s.Handler(Config{})

	if rec := do(t, h, "/healthz", ""); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}
	if rec := do(t, h, "/status", ""); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec := do(t, h, "/agenda", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("agenda = %d", rec.Code)
	}
	var got agendaResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Date != "2026-10-19" || got.Minutes != 45 || len(got.Entries) != 1 || got.Rest {
		t.Fatalf("agenda = %+v", got)
	}

	rec = do(t, h, "/agenda?date=2026-10-25", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Rest || got.Entries == nil || len(got.Entries) != 0 {
		t.Fatalf("sunday agenda = %+v", got)
	}

	if rec := do(t, h, "/agenda?date=tomorrow", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date = %d, want 400", rec.Code)
	}
	if rec := do(t, h, "/debug/pprof/", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("pprof without flag = %d, want 404", rec.Code)
	}
}

func TestHandlerAgendaError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"store failure", errors.New("boom"), http.StatusInternalServerError},
		{"bad user key", fmt.Errorf("load: %w", storage.ErrBadKey), http.StatusBadRequest},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			src := newSource()
			src.err = tt.err
			h := New(Config{}, src, logx.Nop()).Handler(Config{})
			if rec := do(t, h, "/agenda?user=a/b", ""); rec.Code != tt.want {
				t.Fatalf("agenda = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestTokenAuth(t *testing.T) {
	t.Parallel()
	cfg := Config{Token: "s3cret", Pprof: true}
	h := New(cfg, newSource(), logx.Nop()).Handler(cfg)

	tests := []struct {
		name   string
		target string
		auth   string
		want   int
	}{
		{"health is open", "/healthz", "", http.StatusOK},
		{"missing", "/status", "", http.StatusUnauthorized},
		{"wrong", "/status", "Bearer nope", http.StatusUnauthorized},
		{"bearer", "/status", "Bearer s3cret", http.StatusOK},
		{"query", "/status?token=s3cret", "", http.StatusOK},
		{"pprof index", "/debug/pprof/?token=s3cret", "", http.StatusOK},
		{"pprof guarded", "/debug/pprof/", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if rec := do(t, h, tt.target, tt.auth); rec.Code != tt.want {
				t.Fatalf("%s = %d, want %d", tt.target, rec.Code, tt.want)
			}
		})
	}
}

func TestIsLoopbackAddr(t *testing.T) {
	t.Parallel()
	tests := map[string]bool{
		"127.0.0.1:8086": true,
		"localhost:1":    true,
		"[::1]:80":       true,
		":8086":          false,
		"0.0.0.0:8086":   false,
		"10.0.0.5:80":    false,
		"nonsense":       false,
	}
	for addr, want := range tests {
		if got := isLoopbackAddr(addr); got != want {
			t.Fatalf("isLoopbackAddr(%q) = %v, want %v", addr, got, want)
		}
	}
}

func TestStartStop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New(Config{}, newSource(), logx.Nop())
	s.Reconfigure(ctx, Config{Enabled: true, Addr: "127.0.0.1:0"})

	var addr string
	deadline := time.Now().Add(3 * time.Second)
	for addr == "" && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
		addr = s.Addr()
	}
	if addr == "" {
		t.Fatal("server did not start")
	}
	resp, err := http.Get("http://" + addr + "/healthz")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if string(body) != "ok" {
		t.Fatalf("body = %q", body)
	}

	stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	s.Reconfigure(stopCtx, Config{Enabled: false})
	if s.Addr() != "" {
		t.Fatalf("Addr after stop = %q", s.Addr())
	}
}
