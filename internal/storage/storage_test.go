package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	logx "studyplan/pkg/logx"
)

type storeCase struct {
	name string
	open func(t *testing.T) Store
}

func storeCases() []storeCase {
	return []storeCase{
		{"memory", func(t *testing.T) Store { return NewMemory() }},
		{"file", func(t *testing.T) Store {
			st, err := Open(Config{Driver: "file", Path: t.TempDir()}, logx.Nop())
			if err != nil {
				t.Fatalf("open file: %v", err)
			}
			return st
		}},
		{"sqlite", func(t *testing.T) Store {
			st, err := Open(Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "plans.db")}, logx.Nop())
			if err != nil {
				t.Fatalf("open sqlite: %v", err)
			}
			return st
		}},
		{"redis", openTestRedis},
	}
}

// openTestRedis opens a redis store against STUDYPLAN_TEST_REDIS when set,
// otherwise against an in-process miniredis.
func openTestRedis(t *testing.T) Store {
	t.Helper()
	addr := os.Getenv("STUDYPLAN_TEST_REDIS")
	if addr == "" {
		addr = miniredis.RunT(t).Addr()
	}
	prefix := "studyplan-test:" + t.Name() + ":" + time.Now().Format("150405.000000000") + ":"
	st, err := Open(Config{Driver: "redis", Addr: addr, Prefix: prefix}, logx.Nop())
	if err != nil {
		t.Fatalf("open redis: %v", err)
	}
	return st
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()
	base := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	for _, tc := range storeCases() {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			st := tc.open(t)
			t.Cleanup(func() { _ = st.Close() })

			if _, err := st.Get(ctx, "alice"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get missing = %v, want ErrNotFound", err)
			}

			old := Record{Key: "alice", SnapshotID: "s1", CreatedAt: base, Body: []byte(`{"v":1}`)}
			if err := st.Put(ctx, old); err != nil {
				t.Fatalf("Put: %v", err)
			}
			got, err := st.Get(ctx, "alice")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.SnapshotID != "s1" || !got.CreatedAt.Equal(base) || string(got.Body) != `{"v":1}` {
				t.Fatalf("Get = %+v", got)
			}

			// Overwrite replaces.
			newer := Record{Key: "alice", SnapshotID: "s2", CreatedAt: base.Add(time.Hour), Body: []byte(`{"v":2}`)}
			if err := st.Put(ctx, newer); err != nil {
				t.Fatalf("Put overwrite: %v", err)
			}
			got, err = st.Get(ctx, "alice")
			if err != nil || got.SnapshotID != "s2" || string(got.Body) != `{"v":2}` {
				t.Fatalf("Get after overwrite = %+v, %v", got, err)
			}

			if err := st.Put(ctx, Record{Key: "bob", SnapshotID: "s3", CreatedAt: base.Add(2 * time.Hour), Body: []byte("x")}); err != nil {
				t.Fatalf("Put bob: %v", err)
			}
			list, err := st.List(ctx)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(list) != 2 || list[0].Key != "bob" || list[1].Key != "alice" {
				t.Fatalf("List = %+v, want bob then alice", list)
			}
			for _, r := range list {
				if len(r.Body) != 0 {
					t.Fatalf("List returned body for %q", r.Key)
				}
			}

			ok, err := st.Delete(ctx, "alice")
			if err != nil || !ok {
				t.Fatalf("Delete = %v, %v, want true", ok, err)
			}
			ok, err = st.Delete(ctx, "alice")
			if err != nil || ok {
				t.Fatalf("Delete again = %v, %v, want false", ok, err)
			}
			if _, err := st.Get(ctx, "alice"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get deleted = %v, want ErrNotFound", err)
			}

			if err := st.AppendAudit(ctx, AuditEntry{Key: "bob", Action: "save", SnapshotID: "s3"}); err != nil {
				t.Fatalf("AppendAudit: %v", err)
			}
		})
	}
}

func TestStoreRejectsBadInput(t *testing.T) {
	t.Parallel()
	for _, tc := range storeCases() {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			st := tc.open(t)
			t.Cleanup(func() { _ = st.Close() })

			for _, key := range []string{"", "..", "a/b", "x y"} {
				if err := st.Put(ctx, Record{Key: key, Body: []byte("x")}); !errors.Is(err, ErrBadKey) {
					t.Fatalf("Put(%q) = %v, want ErrBadKey", key, err)
				}
				if _, err := st.Get(ctx, key); !errors.Is(err, ErrBadKey) {
					t.Fatalf("Get(%q) = %v, want ErrBadKey", key, err)
				}
			}
			if err := st.Put(ctx, Record{Key: "ok"}); err == nil {
				t.Fatal("Put with empty body succeeded")
			}
		})
	}
}

func TestCheckKey(t *testing.T) {
	t.Parallel()
	tests := []struct {
		key string
		ok  bool
	}{
		{"default", true},
		{"user@example.com", true},
		{"a.b_c-d", true},
		{"", false},
		{".", false},
		{"..", false},
		{"../etc", false},
		{"tab\tkey", false},
		{string(make([]byte, maxKeyLen+1)), false},
	}
	for _, tt := range tests {
		err := CheckKey(tt.key)
		if (err == nil) != tt.ok {
			t.Fatalf("CheckKey(%q) = %v, want ok=%v", tt.key, err, tt.ok)
		}
	}
}

func TestOpenDisabledAndUnknown(t *testing.T) {
	t.Parallel()
	for _, d := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: d}, logx.Logger{})
		if err != nil || st != nil {
			t.Fatalf("Open(%q) = %v, %v, want nil, nil", d, st, err)
		}
	}
	if _, err := Open(Config{Driver: "postgres"}, logx.Nop()); err == nil {
		t.Fatal("expected unknown driver error")
	}
	if _, err := Open(Config{Driver: "file"}, logx.Nop()); err == nil {
		t.Fatal("expected missing path error for file driver")
	}
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatal("expected missing addr error for redis driver")
	}
}

func TestFileStoreLayout(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	st, err := Open(Config{Driver: "file", Path: dir}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	if err := st.Put(ctx, Record{Key: "k", SnapshotID: "s", CreatedAt: time.Now(), Body: []byte("{}")}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := st.AppendAudit(ctx, AuditEntry{At: time.Now(), Key: "k", Action: "save"}); err != nil {
		t.Fatalf("AppendAudit: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "k.snapshot.json")); err != nil {
		t.Fatalf("snapshot file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "k.snapshot.json.tmp")); !os.IsNotExist(err) {
		t.Fatalf("tmp file left behind: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "audit.jsonl"))
	if err != nil || len(b) == 0 {
		t.Fatalf("audit.jsonl = %q, %v", b, err)
	}

	// A corrupt file is skipped by List.
	if err := os.WriteFile(filepath.Join(dir, "bad.snapshot.json"), []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	st2, err := Open(Config{Driver: "file", Path: dir}, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()
	list, err := st2.List(ctx)
	if err != nil || len(list) != 1 || list[0].Key != "k" {
		t.Fatalf("List = %+v, %v", list, err)
	}
}

func TestMemoryAuditAndCopies(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()
	body := []byte("abc")
	if err := m.Put(ctx, Record{Key: "k", Body: body}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	body[0] = 'z'
	r, _ := m.Get(ctx, "k")
	if string(r.Body) != "abc" {
		t.Fatalf("stored body = %q, want abc", r.Body)
	}
	_ = m.AppendAudit(ctx, AuditEntry{Key: "k", Action: "save"})
	if got := m.Audit(); len(got) != 1 || got[0].Action != "save" {
		t.Fatalf("Audit = %+v", got)
	}
}

func TestRedisLayout(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	ctx := context.Background()
	st, err := Open(Config{Driver: "redis", Addr: mr.Addr(), Prefix: "sp:"}, logx.Nop())
	if err != nil {
		t.Fatalf("open redis: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	if err := st.Put(ctx, Record{Key: "alice", SnapshotID: "s1", Body: []byte(`{"v":1}`)}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !mr.Exists("sp:snapshot:alice") {
		t.Fatalf("keys = %v, want sp:snapshot:alice", mr.Keys())
	}
	if ok, _ := mr.IsMember("sp:snapshots", "alice"); !ok {
		t.Fatal("alice missing from sp:snapshots")
	}

	// A set member whose value is gone is pruned by List.
	if _, err := mr.SetAdd("sp:snapshots", "ghost"); err != nil {
		t.Fatalf("SetAdd: %v", err)
	}
	recs, err := st.List(ctx)
	if err != nil || len(recs) != 1 || recs[0].Key != "alice" {
		t.Fatalf("List = %+v, %v", recs, err)
	}
	if ok, _ := mr.IsMember("sp:snapshots", "ghost"); ok {
		t.Fatal("ghost still in sp:snapshots after List")
	}

	if err := st.AppendAudit(ctx, AuditEntry{Key: "alice", Action: "save"}); err != nil {
		t.Fatalf("AppendAudit: %v", err)
	}
	if l, err := mr.List("sp:audit"); err != nil || len(l) != 1 {
		t.Fatalf("audit list = %v, %v", l, err)
	}

	mr.Close()
	if _, err := st.Get(ctx, "alice"); err == nil {
		t.Fatal("Get after server close: want error")
	}
}
