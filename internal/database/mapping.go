package database

import (
	"time"

	sqldb "github.com/forecastkit/wsctl/internal/database/sqlc"
)

// OperationRecordFromRow converts a database operation row to an OperationRecord.
func OperationRecordFromRow(row sqldb.Operation) OperationRecord {
	return OperationRecord{
		ID:        row.ID,
		Name:      row.Name,
		Outcome:   row.Outcome,
		Message:   optionalString(row.Message),
		ProfileID: optionalString(row.ProfileID),
		QueryID:   optionalString(row.QueryID),
		Duration:  time.Duration(row.DurationMs) * time.Millisecond,
		CreatedAt: row.CreatedAt.UTC(),
	}
}

// OperationInsertParams creates insert parameters from a record.
func OperationInsertParams(rec OperationRecord) sqldb.InsertOperationParams {
	return sqldb.InsertOperationParams{
		ID:         rec.ID,
		Name:       rec.Name,
		Outcome:    rec.Outcome,
		Message:    nullString(rec.Message),
		ProfileID:  nullString(rec.ProfileID),
		QueryID:    nullString(rec.QueryID),
		DurationMs: rec.Duration.Milliseconds(),
		CreatedAt:  rec.CreatedAt.UTC(),
	}
}

// MigrationRunRecordFromRow converts a database migration run row to a MigrationRunRecord.
func MigrationRunRecordFromRow(row sqldb.MigrationRun) MigrationRunRecord {
	return MigrationRunRecord{
		ID:         row.ID,
		State:      row.State,
		BackupDir:  optionalString(row.BackupDir),
		MovedCount: int(row.MovedCount),
		Error:      optionalString(row.Error),
		CreatedAt:  row.CreatedAt.UTC(),
	}
}
