package db

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
)

func TestMigrationsEmbedded_PairedUpAndDown(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("expected embedded migrations")
	}

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Fatalf("unexpected file in migrations: %s", name)
		}
	}
	for base := range ups {
		if !downs[base] {
			t.Fatalf("migration %s has no down file", base)
		}
	}
	if len(ups) != len(downs) {
		t.Fatalf("expected paired migrations, got %d up and %d down", len(ups), len(downs))
	}
}

func TestMigrationsSource_Opens(t *testing.T) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("open iofs source: %v", err)
	}
	defer src.Close()

	first, err := src.First()
	if err != nil {
		t.Fatalf("first migration: %v", err)
	}
	if first != 1 {
		t.Fatalf("expected first version 1, got %d", first)
	}
	next, err := src.Next(first)
	if err != nil {
		t.Fatalf("next migration: %v", err)
	}
	if next != 2 {
		t.Fatalf("expected second version 2, got %d", next)
	}
}

func TestTasksMigration_ScopesTasksToUsers(t *testing.T) {
	raw, err := fs.ReadFile(migrationsFS, "migrations/000002_create_users_and_tasks.up.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	sql := string(raw)
	for _, want := range []string{
		"REFERENCES users(id) ON DELETE CASCADE",
		"email          TEXT NOT NULL UNIQUE",
		"idx_tasks_user_created",
	} {
		if !strings.Contains(sql, want) {
			t.Fatalf("expected migration to contain %q", want)
		}
	}
}
