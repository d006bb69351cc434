package database

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/forecastkit/wsctl/internal/config"
)

const latestVersion = 2

func setupTestDB(t *testing.T) *Context {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("WSCTL_DIR", tmp)

	ctx, err := CreateDatabase("")
	if err != nil {
		t.Fatalf("CreateDatabase returned error: %v", err)
	}

	t.Cleanup(func() {
		if err := CloseDatabase(ctx); err != nil {
			t.Fatalf("CloseDatabase error: %v", err)
		}
	})

	return ctx
}

func TestDatabaseCreationAndMigration(t *testing.T) {
	ctx := setupTestDB(t)

	dbPath := filepath.Join(config.GetWorkspaceDir(), "journal.db")
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected journal file to exist at %s: %v", dbPath, err)
	}

	version, dirty, err := SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion returned error: %v", err)
	}
	if dirty || version != latestVersion {
		t.Fatalf("expected clean version %d, got %d (dirty=%v)", latestVersion, version, dirty)
	}

	for _, table := range []string{"operations", "migration_runs"} {
		if !tableExists(t, ctx.DB, table) {
			t.Fatalf("expected table %s to exist", table)
		}
	}
}

func TestReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	first, err := CreateDatabase(path)
	if err != nil {
		t.Fatalf("CreateDatabase returned error: %v", err)
	}
	insertOperation(t, first.DB, "op-1", "createProfile")
	if err := CloseDatabase(first); err != nil {
		t.Fatalf("CloseDatabase error: %v", err)
	}

	second, err := CreateDatabase(path)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	defer func() {
		_ = CloseDatabase(second)
	}()
	assertCount(t, second.DB, "operations", 1)
}

func TestInMemoryDatabase(t *testing.T) {
	ctx, err := CreateDatabase(":memory:")
	if err != nil {
		t.Fatalf("CreateDatabase returned error: %v", err)
	}
	defer func() {
		_ = CloseDatabase(ctx)
	}()

	insertOperation(t, ctx.DB, "op-1", "switchQuery")
	assertCount(t, ctx.DB, "operations", 1)
}

func TestClearDatabaseRemovesAllRows(t *testing.T) {
	ctx := setupTestDB(t)

	insertOperation(t, ctx.DB, "op-1", "createProfile")
	insertOperation(t, ctx.DB, "op-2", "deleteQuery")
	if _, err := ctx.DB.Exec(`INSERT INTO migration_runs(id, state, created_at) VALUES(?, ?, ?)`, "run-1", "committed", time.Now().UTC()); err != nil {
		t.Fatalf("insert migration run failed: %v", err)
	}

	assertCount(t, ctx.DB, "operations", 2)
	assertCount(t, ctx.DB, "migration_runs", 1)

	if err := ClearDatabase(ctx); err != nil {
		t.Fatalf("ClearDatabase returned error: %v", err)
	}

	assertCount(t, ctx.DB, "operations", 0)
	assertCount(t, ctx.DB, "migration_runs", 0)
}

func tableExists(t *testing.T, db *sql.DB, table string) bool {
	t.Helper()
	var name string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		t.Fatalf("tableExists query failed for %s: %v", table, err)
	}
	return true
}

func insertOperation(t *testing.T, db *sql.DB, id, name string) {
	t.Helper()
	if _, err := db.Exec(`INSERT INTO operations(id, name, outcome, duration_ms, created_at) VALUES(?, ?, 'ok', 3, ?)`, id, name, time.Now().UTC()); err != nil {
		t.Fatalf("insertOperation failed: %v", err)
	}
}

func assertCount(t *testing.T, db *sql.DB, table string, expected int) {
	t.Helper()
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
		t.Fatalf("count query failed for %s: %v", table, err)
	}
	if count != expected {
		t.Fatalf("expected %s to have %d rows, got %d", table, expected, count)
	}
}
