package sqldb

import (
	"database/sql"
	"time"
)

type Operation struct {
	ID         string
	Name       string
	Outcome    string
	Message    sql.NullString
	ProfileID  sql.NullString
	QueryID    sql.NullString
	DurationMs int64
	CreatedAt  time.Time
}

type MigrationRun struct {
	ID         string
	State      string
	BackupDir  sql.NullString
	MovedCount int64
	Error      sql.NullString
	CreatedAt  time.Time
}
