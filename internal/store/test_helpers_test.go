package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/michaeltuccillo/taskd/internal/task"
)

// createTestStore opens a migrated SQLite store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(Options{Driver: "sqlite", DSN: path})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	return s
}

func fields(name, due string, cat task.Category) task.Fields {
	d, err := time.Parse(task.DateLayout, due)
	if err != nil {
		panic(err)
	}
	return task.Fields{Name: name, DueDate: d, Category: cat}
}

func createTestUser(t *testing.T, s *Store, email string) *User {
	t.Helper()
	u := &User{Email: email, Username: email, Password: "hash"}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return u
}
