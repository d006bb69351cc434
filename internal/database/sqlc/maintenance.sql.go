package sqldb

import "context"

const deleteAllOperations = `DELETE FROM operations`

func (q *Queries) DeleteAllOperations(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllOperations)
	return err
}

const deleteAllMigrationRuns = `DELETE FROM migration_runs`

func (q *Queries) DeleteAllMigrationRuns(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllMigrationRuns)
	return err
}
