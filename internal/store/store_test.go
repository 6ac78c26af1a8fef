package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Load(ctx, "missing-session"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Save(ctx, "sess-1", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, "sess-1", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}
	got, err := s.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(got) != `{"v":2}` {
		t.Fatalf("expected latest snapshot, got %s", got)
	}
	if err := s.Save(ctx, "../escape", []byte("{}")); err == nil {
		t.Fatal("expected invalid id to be rejected")
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemoryStoreCopiesSnapshots(t *testing.T) {
	m := NewMemory()
	blob := []byte("abc")
	if err := m.Save(context.Background(), "s1", blob); err != nil {
		t.Fatalf("Save: %v", err)
	}
	blob[0] = 'x'
	got, _ := m.Load(context.Background(), "s1")
	if string(got) != "abc" {
		t.Fatalf("stored snapshot aliased caller buffer: %s", got)
	}
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sessions")
	f, err := NewFile(dir)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	exerciseStore(t, f)
	if _, err := os.Stat(filepath.Join(dir, "sess-1.json.tmp")); !os.IsNotExist(err) {
		t.Fatalf("expected temp file to be renamed, stat err=%v", err)
	}
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "brd.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brd.db")
	s, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	if err := s.Save(context.Background(), "sess-1", []byte("snap")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	s.Close()

	s2, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, err := s2.Load(context.Background(), "sess-1")
	if err != nil || string(got) != "snap" {
		t.Fatalf("got %q err=%v", got, err)
	}
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("BRD_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("BRD_TEST_DATABASE_URL not set")
	}
	s, err := NewPostgres(context.Background(), url)
	if err != nil {
		t.Fatalf("NewPostgres: %v", err)
	}
	defer s.Close()
	if _, err := s.db.Exec(`DELETE FROM brd_sessions WHERE session_id IN ('sess-1', 'missing-session')`); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	exerciseStore(t, s)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	r, err := NewRedis("redis://"+mr.Addr(), time.Hour)
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	defer r.Close()
	exerciseStore(t, r)

	if ttl := mr.TTL("brd:session:sess-1"); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", ttl)
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	r, err := NewRedis("redis://"+mr.Addr(), time.Minute)
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	defer r.Close()

	ctx := context.Background()
	if err := r.Save(ctx, "sess-1", []byte("snap")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := r.Load(ctx, "sess-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired snapshot, got %v", err)
	}
}

func TestNewRedisBadURL(t *testing.T) {
	if _, err := NewRedis("not a url", 0); err == nil {
		t.Fatal("expected parse error")
	}
}
