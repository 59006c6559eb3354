package postgres

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestLoadMigrationsFromFS_Success(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/migrations/0001_init.up.sql": {
			Data: []byte("CREATE TABLE test_a (id INT);"),
		},
		"sql/migrations/0001_init.down.sql": {
			Data: []byte("DROP TABLE IF EXISTS test_a;"),
		},
		"sql/migrations/0002_more.up.sql": {
			Data: []byte("CREATE TABLE test_b (id INT);"),
		},
		"sql/migrations/0002_more.down.sql": {
			Data: []byte("DROP TABLE IF EXISTS test_b;"),
		},
	}

	migrations, err := loadMigrationsFromFS(fsys)
	if err != nil {
		t.Fatalf("loadMigrationsFromFS failed: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}

	if migrations[0].Version != 1 || migrations[0].Name != "init" {
		t.Fatalf("unexpected first migration: %+v", migrations[0])
	}
	if migrations[1].Version != 2 || migrations[1].Name != "more" {
		t.Fatalf("unexpected second migration: %+v", migrations[1])
	}
}

func TestLoadMigrationsFromFS_MissingDown(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/migrations/0001_init.up.sql": {
			Data: []byte("CREATE TABLE test_a (id INT);"),
		},
	}

	_, err := loadMigrationsFromFS(fsys)
	if err == nil {
		t.Fatal("expected error for missing down migration")
	}
	if !strings.Contains(err.Error(), "both up and down") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadMigrationsFromFS_InvalidFilename(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/migrations/not_a_migration.sql": {
			Data: []byte("SELECT 1;"),
		},
	}

	_, err := loadMigrationsFromFS(fsys)
	if err == nil {
		t.Fatal("expected error for invalid migration file name")
	}
}

func TestLoadMigrationsFromFS_EmptyFile(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/migrations/0001_init.up.sql": {
			Data: []byte("   \n"),
		},
		"sql/migrations/0001_init.down.sql": {
			Data: []byte("DROP TABLE IF EXISTS test;"),
		},
	}

	_, err := loadMigrationsFromFS(fsys)
	if err == nil {
		t.Fatal("expected error for empty migration file body")
	}
}

func TestLoadMigrationsFromFS_Embedded(t *testing.T) {
	t.Parallel()

	migrations, err := loadMigrationsFromFS(migrationsFS)
	if err != nil {
		t.Fatalf("load embedded migrations: %v", err)
	}

	want := []string{"catalog", "orders", "outbox"}
	if len(migrations) != len(want) {
		t.Fatalf("expected %d migrations, got %d", len(want), len(migrations))
	}
	for i, name := range want {
		if migrations[i].Version != int64(i+1) || migrations[i].Name != name {
			t.Fatalf("unexpected migration %d: %+v", i, migrations[i])
		}
	}
}

func TestPlanMigrations(t *testing.T) {
	t.Parallel()

	all := []migration{
		{Version: 1, Name: "catalog"},
		{Version: 2, Name: "orders"},
		{Version: 3, Name: "outbox"},
	}

	tests := []struct {
		name      string
		applied   map[int64]bool
		direction migrationDirection
		steps     int
		want      []int64
	}{
		{name: "up all from scratch", applied: map[int64]bool{}, direction: migrationUp, want: []int64{1, 2, 3}},
		{name: "up one step", applied: map[int64]bool{1: true}, direction: migrationUp, steps: 1, want: []int64{2}},
		{name: "up nothing left", applied: map[int64]bool{1: true, 2: true, 3: true}, direction: migrationUp},
		{name: "down newest first", applied: map[int64]bool{1: true, 2: true, 3: true}, direction: migrationDown, steps: 2, want: []int64{3, 2}},
		{name: "down skips unapplied", applied: map[int64]bool{1: true}, direction: migrationDown, steps: 5, want: []int64{1}},
		{name: "down on empty schema", applied: map[int64]bool{}, direction: migrationDown, steps: 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			plan, err := planMigrations(all, tt.applied, tt.direction, tt.steps)
			if err != nil {
				t.Fatalf("plan failed: %v", err)
			}
			got := make([]int64, 0, len(plan))
			for _, m := range plan {
				got = append(got, m.Version)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected versions %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("expected versions %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestPlanMigrations_Errors(t *testing.T) {
	t.Parallel()

	all := []migration{{Version: 1, Name: "catalog"}}

	if _, err := planMigrations(all, map[int64]bool{1: true, 9: true}, migrationDown, 1); err == nil || !strings.Contains(err.Error(), "unknown migration version 9") {
		t.Fatalf("expected unknown version error, got %v", err)
	}
	if _, err := planMigrations(all, nil, migrationDirection("sideways"), 0); err == nil {
		t.Fatal("expected error for unsupported direction")
	}
}

func TestMigrationString(t *testing.T) {
	t.Parallel()

	m := migration{Version: 2, Name: "orders", UpSQL: "up", DownSQL: "down"}
	if m.String() != "0002_orders" {
		t.Fatalf("unexpected migration name: %s", m)
	}
	if m.body(migrationUp) != "up" || m.body(migrationDown) != "down" {
		t.Fatal("unexpected migration bodies")
	}
}

func TestLoadMigrationsFromFS_Duplicate(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/migrations/0001_init.up.sql":   {Data: []byte("SELECT 1;")},
		"sql/migrations/0001_init.down.sql": {Data: []byte("SELECT 1;")},
		"sql/migrations/0001_other.up.sql":  {Data: []byte("SELECT 2;")},
	}

	_, err := loadMigrationsFromFS(fsys)
	if err == nil || !strings.Contains(err.Error(), "name mismatch") {
		t.Fatalf("expected name mismatch error, got %v", err)
	}
}
