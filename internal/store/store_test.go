package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNew_SchemaAndReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sessions.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("database file not created: %v", err)
	}

	objects := []struct{ kind, name string }{
		{"table", "sessions"},
		{"table", "movements"},
		{"index", "idx_movements_session_id"},
	}
	for _, o := range objects {
		var name string
		err := s.DB().QueryRow("SELECT name FROM sqlite_master WHERE type=? AND name=?", o.kind, o.name).Scan(&name)
		if err != nil {
			t.Errorf("%s %q missing: %v", o.kind, o.name, err)
		}
	}

	sess := &Session{Source: "camera 0"}
	if err := s.Sessions().Create(sess); err != nil {
		t.Fatal(err)
	}
	if err := s.Movements().Create(NewMovement(sess.ID, time.Unix(10, 0), time.Unix(12, 0))); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Migrations must be idempotent and keep earlier sessions.
	s, err = New(dbPath)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	movements, err := s.Movements().ListBySession(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(movements) != 1 || movements[0].Duration != 2 {
		t.Errorf("expected the stored movement after reopen, got %+v", movements)
	}
}

func TestSchema_RejectsNegativeDuration(t *testing.T) {
	s := newTestStore(t)

	sess := &Session{}
	if err := s.Sessions().Create(sess); err != nil {
		t.Fatal(err)
	}

	_, err := s.DB().Exec(
		"INSERT INTO movements (session_id, start_time, end_time, duration) VALUES (?, 5, 4, -1)",
		sess.ID,
	)
	if err == nil {
		t.Error("negative duration should violate the check constraint")
	}
}

func TestSchema_EndedAtNullUntilEnd(t *testing.T) {
	s := newTestStore(t)

	sess := &Session{StartedAt: time.Unix(100, 0)}
	if err := s.Sessions().Create(sess); err != nil {
		t.Fatal(err)
	}

	var open bool
	query := "SELECT ended_at IS NULL FROM sessions WHERE id = ?"
	if err := s.DB().QueryRow(query, sess.ID).Scan(&open); err != nil {
		t.Fatal(err)
	}
	if !open {
		t.Error("ended_at should be NULL for a running session")
	}

	if err := s.Sessions().End(sess.ID, time.Unix(160, 0), 42); err != nil {
		t.Fatal(err)
	}
	if err := s.DB().QueryRow(query, sess.ID).Scan(&open); err != nil {
		t.Fatal(err)
	}
	if open {
		t.Error("ended_at should be set after End")
	}
}

func TestNew_ForeignKeysOnEveryQuery(t *testing.T) {
	s := newTestStore(t)

	// Pragmas are per connection; several round trips must all see them.
	for i := 0; i < 5; i++ {
		var fk int
		if err := s.DB().QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
			t.Fatal(err)
		}
		if fk != 1 {
			t.Fatalf("query %d: foreign keys disabled", i)
		}
	}
}

func TestNew_UnwritableDirectory(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing", "sessions.db")); err == nil {
		t.Error("expected error for a database in a missing directory")
	}
}

func TestStore_Close(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if _, err := s.DB().Exec("SELECT 1"); err == nil {
		t.Error("queries should fail after Close")
	}
	if s.Path() == "" {
		t.Error("Path should survive Close")
	}
}
