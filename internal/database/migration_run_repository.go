package database

import (
	"context"
	"fmt"
	"time"

	sqldb "github.com/forecastkit/wsctl/internal/database/sqlc"
)

type MigrationRunRepository struct {
	ctx *Context
}

func NewMigrationRunRepository(dbCtx *Context) *MigrationRunRepository {
	return &MigrationRunRepository{ctx: dbCtx}
}

func (r *MigrationRunRepository) Record(ctx context.Context, rec MigrationRunRecord) error {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return fmt.Errorf("migration run repository: missing database context")
	}
	if rec.ID == "" {
		return fmt.Errorf("migration run repository: run id is required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	return queries.InsertMigrationRun(ctx, sqldb.InsertMigrationRunParams{
		ID:         rec.ID,
		State:      rec.State,
		BackupDir:  nullString(rec.BackupDir),
		MovedCount: int64(rec.MovedCount),
		Error:      nullString(rec.Error),
		CreatedAt:  rec.CreatedAt.UTC(),
	})
}

func (r *MigrationRunRepository) List(ctx context.Context) ([]MigrationRunRecord, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, fmt.Errorf("migration run repository: missing database context")
	}

	rows, err := queries.ListMigrationRuns(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]MigrationRunRecord, 0, len(rows))
	for _, row := range rows {
		result = append(result, MigrationRunRecordFromRow(row))
	}
	return result, nil
}
