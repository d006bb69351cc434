package database

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestOperationRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewOperationRepository(setupTestDB(t))
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	inputs := []OperationRecord{
		{Name: "createProfile", Outcome: "ok", ProfileID: "kafka", Duration: 12 * time.Millisecond, CreatedAt: base},
		{Name: "createQuery", Outcome: "dependency", Message: "connection not tested", ProfileID: "kafka", CreatedAt: base.Add(time.Second)},
		{Name: "switchQuery", Outcome: "ok", ProfileID: "default", QueryID: "default", CreatedAt: base.Add(2 * time.Second)},
	}
	var stored []OperationRecord
	for _, in := range inputs {
		rec, err := repo.Record(ctx, in)
		if err != nil {
			t.Fatalf("Record returned error: %v", err)
		}
		if rec.ID == "" {
			t.Fatalf("expected generated id")
		}
		stored = append(stored, rec)
	}

	all, err := repo.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 operations, got %d", len(all))
	}
	if all[0].Name != "switchQuery" || all[2].Name != "createProfile" {
		t.Fatalf("expected newest first, got %s ... %s", all[0].Name, all[2].Name)
	}

	kafka, err := repo.List(ctx, ListFilter{ProfileID: "kafka", Limit: 1})
	if err != nil {
		t.Fatalf("List by profile returned error: %v", err)
	}
	if len(kafka) != 1 || kafka[0].Name != "createQuery" {
		t.Fatalf("unexpected filtered list: %#v", kafka)
	}

	found, err := repo.FindByID(ctx, stored[0].ID)
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if found.Duration != 12*time.Millisecond || !found.CreatedAt.Equal(base) {
		t.Fatalf("unexpected record: %#v", found)
	}
	if found.Message != "" || found.QueryID != "" {
		t.Fatalf("expected empty optional fields, got %#v", found)
	}

	if _, err := repo.FindByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	counts, err := repo.CountByOutcome(ctx)
	if err != nil {
		t.Fatalf("CountByOutcome returned error: %v", err)
	}
	if len(counts) != 2 || counts[0].Outcome != "dependency" || counts[1].Count != 2 {
		t.Fatalf("unexpected counts: %#v", counts)
	}

	removed, err := repo.Prune(ctx, base.Add(time.Second))
	if err != nil {
		t.Fatalf("Prune returned error: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned row, got %d", removed)
	}
}

func TestMigrationRunRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMigrationRunRepository(setupTestDB(t))

	if err := repo.Record(ctx, MigrationRunRecord{State: "committed"}); err == nil {
		t.Fatalf("expected error for missing run id")
	}

	first := MigrationRunRecord{ID: "run-1", State: "rolled_back", Error: "checksum mismatch", CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	second := MigrationRunRecord{ID: "run-2", State: "committed", BackupDir: "/ws/backups/migration-run-2", MovedCount: 3, CreatedAt: first.CreatedAt.Add(time.Minute)}
	for _, rec := range []MigrationRunRecord{first, second} {
		if err := repo.Record(ctx, rec); err != nil {
			t.Fatalf("Record returned error: %v", err)
		}
	}

	runs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-2" || runs[0].MovedCount != 3 || runs[1].Error != "checksum mismatch" {
		t.Fatalf("unexpected runs: %#v", runs)
	}
}

func TestRepositoryWithoutContext(t *testing.T) {
	if _, err := NewOperationRepository(nil).List(context.Background(), ListFilter{}); err == nil {
		t.Fatalf("expected error without database context")
	}
}
