package sqldb

import (
	"context"
	"database/sql"
	"time"
)

const insertOperation = `INSERT INTO operations (id, name, outcome, message, profile_id, query_id, duration_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

type InsertOperationParams struct {
	ID         string
	Name       string
	Outcome    string
	Message    sql.NullString
	ProfileID  sql.NullString
	QueryID    sql.NullString
	DurationMs int64
	CreatedAt  time.Time
}

func (q *Queries) InsertOperation(ctx context.Context, arg InsertOperationParams) error {
	_, err := q.db.ExecContext(ctx, insertOperation,
		arg.ID,
		arg.Name,
		arg.Outcome,
		arg.Message,
		arg.ProfileID,
		arg.QueryID,
		arg.DurationMs,
		arg.CreatedAt,
	)
	return err
}

const getOperation = `SELECT id, name, outcome, message, profile_id, query_id, duration_ms, created_at
FROM operations WHERE id = ?`

func (q *Queries) GetOperation(ctx context.Context, id string) (Operation, error) {
	row := q.db.QueryRowContext(ctx, getOperation, id)
	var i Operation
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Outcome,
		&i.Message,
		&i.ProfileID,
		&i.QueryID,
		&i.DurationMs,
		&i.CreatedAt,
	)
	return i, err
}

const listOperations = `SELECT id, name, outcome, message, profile_id, query_id, duration_ms, created_at
FROM operations
WHERE (?1 = '' OR profile_id = ?1)
ORDER BY created_at DESC, rowid DESC
LIMIT ?2`

type ListOperationsParams struct {
	ProfileID string
	Limit     int64
}

func (q *Queries) ListOperations(ctx context.Context, arg ListOperationsParams) ([]Operation, error) {
	rows, err := q.db.QueryContext(ctx, listOperations, arg.ProfileID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Operation
	for rows.Next() {
		var i Operation
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Outcome,
			&i.Message,
			&i.ProfileID,
			&i.QueryID,
			&i.DurationMs,
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

const countOperationsByOutcome = `SELECT outcome, COUNT(*) FROM operations GROUP BY outcome ORDER BY outcome`

type CountOperationsByOutcomeRow struct {
	Outcome string
	Count   int64
}

func (q *Queries) CountOperationsByOutcome(ctx context.Context) ([]CountOperationsByOutcomeRow, error) {
	rows, err := q.db.QueryContext(ctx, countOperationsByOutcome)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CountOperationsByOutcomeRow
	for rows.Next() {
		var i CountOperationsByOutcomeRow
		if err := rows.Scan(&i.Outcome, &i.Count); err != nil {
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

const deleteOperationsBefore = `DELETE FROM operations WHERE created_at < ?`

func (q *Queries) DeleteOperationsBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteOperationsBefore, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
