package supervisor

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestGoStopsOnCancel(t *testing.T) {
	t.Parallel()
	s := New(context.Background())
	s.Go0("loop", func(ctx context.Context) { <-ctx.Done() })
	if c := s.Counters(); c.Started != 1 {
		t.Fatalf("started = %d, want 1", c.Started)
	}
	if err := s.Stop(waitCtx(t)); err != nil {
		t.Fatalf("Stop = %v, want nil", err)
	}
	if c := s.Counters(); c.Active != 0 {
		t.Fatalf("active = %d, want 0", c.Active)
	}
}

func TestGoRecordsFirstErrorAndCancels(t *testing.T) {
	t.Parallel()
	s := New(context.Background(), WithCancelOnError(true))
	s.Go("bad", func(ctx context.Context) error { return errors.New("boom") })
	s.Go0("waiter", func(ctx context.Context) { <-ctx.Done() })

	err := s.Wait(waitCtx(t))
	if err == nil || !strings.Contains(err.Error(), "bad: boom") {
		t.Fatalf("Wait = %v, want bad: boom", err)
	}
}

func TestGoRecoversPanic(t *testing.T) {
	t.Parallel()
	s := New(context.Background())
	s.Go0("panicky", func(ctx context.Context) { panic("oops") })
	err := s.Wait(waitCtx(t))
	if err == nil || !strings.Contains(err.Error(), "panic: oops") {
		t.Fatalf("Wait = %v, want panic error", err)
	}
	st := s.Stats()
	if len(st) != 1 || st[0].Panics != 1 {
		t.Fatalf("stats = %+v, want one panic", st)
	}
}

func TestCanceledIsClean(t *testing.T) {
	t.Parallel()
	s := New(context.Background())
	s.Go("c", func(ctx context.Context) error { return context.Canceled })
	if err := s.Wait(waitCtx(t)); err != nil {
		t.Fatalf("Wait = %v, want nil", err)
	}
}

func TestGoRestartRetriesUntilSuccess(t *testing.T) {
	t.Parallel()
	s := New(context.Background())
	var runs atomic.Int32
	s.GoRestart("flaky", func(ctx context.Context) error {
		if runs.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, WithRestartBackoff(time.Millisecond, 5*time.Millisecond))

	if err := s.Wait(waitCtx(t)); err != nil {
		t.Fatalf("Wait = %v, want nil", err)
	}
	if got := runs.Load(); got != 3 {
		t.Fatalf("runs = %d, want 3", got)
	}
	for _, st := range s.Stats() {
		if st.Name == "flaky" && st.Restarts != 2 {
			t.Fatalf("restarts = %d, want 2", st.Restarts)
		}
	}
}

func TestGoRestartGivesUp(t *testing.T) {
	t.Parallel()
	s := New(context.Background())
	var runs atomic.Int32
	s.GoRestart("doomed", func(ctx context.Context) error {
		runs.Add(1)
		panic("always")
	}, WithRestartBackoff(time.Millisecond, time.Millisecond), WithMaxRestarts(2))

	err := s.Wait(waitCtx(t))
	if err == nil || !strings.Contains(err.Error(), "doomed") {
		t.Fatalf("Wait = %v, want doomed error", err)
	}
	if got := runs.Load(); got != 3 {
		t.Fatalf("runs = %d, want 3", got)
	}
}
