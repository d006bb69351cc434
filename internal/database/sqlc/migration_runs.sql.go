package sqldb

import (
	"context"
	"database/sql"
	"time"
)

const insertMigrationRun = `INSERT INTO migration_runs (id, state, backup_dir, moved_count, error, created_at)
VALUES (?, ?, ?, ?, ?, ?)`

type InsertMigrationRunParams struct {
	ID         string
	State      string
	BackupDir  sql.NullString
	MovedCount int64
	Error      sql.NullString
	CreatedAt  time.Time
}

func (q *Queries) InsertMigrationRun(ctx context.Context, arg InsertMigrationRunParams) error {
	_, err := q.db.ExecContext(ctx, insertMigrationRun,
		arg.ID,
		arg.State,
		arg.BackupDir,
		arg.MovedCount,
		arg.Error,
		arg.CreatedAt,
	)
	return err
}

const listMigrationRuns = `SELECT id, state, backup_dir, moved_count, error, created_at
FROM migration_runs
ORDER BY created_at DESC, rowid DESC`

func (q *Queries) ListMigrationRuns(ctx context.Context) ([]MigrationRun, error) {
	rows, err := q.db.QueryContext(ctx, listMigrationRuns)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MigrationRun
	for rows.Next() {
		var i MigrationRun
		if err := rows.Scan(
			&i.ID,
			&i.State,
			&i.BackupDir,
			&i.MovedCount,
			&i.Error,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
