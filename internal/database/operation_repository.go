package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	sqldb "github.com/forecastkit/wsctl/internal/database/sqlc"
)

type OperationRepository struct {
	ctx *Context
}

func NewOperationRepository(dbCtx *Context) *OperationRepository {
	return &OperationRepository{ctx: dbCtx}
}

// Record appends rec to the journal. Missing ids and timestamps are filled
// in, and the stored record is returned.
func (r *OperationRepository) Record(ctx context.Context, rec OperationRecord) (OperationRecord, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return OperationRecord{}, fmt.Errorf("operation repository: missing database context")
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()

	if err := queries.InsertOperation(ctx, OperationInsertParams(rec)); err != nil {
		return OperationRecord{}, err
	}
	return rec, nil
}

func (r *OperationRepository) FindByID(ctx context.Context, id string) (*OperationRecord, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, fmt.Errorf("operation repository: missing database context")
	}

	row, err := queries.GetOperation(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	record := OperationRecordFromRow(row)
	return &record, nil
}

// List returns the newest operations first.
func (r *OperationRepository) List(ctx context.Context, filter ListFilter) ([]OperationRecord, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, fmt.Errorf("operation repository: missing database context")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := queries.ListOperations(ctx, sqldb.ListOperationsParams{ProfileID: filter.ProfileID, Limit: int64(limit)})
	if err != nil {
		return nil, err
	}

	result := make([]OperationRecord, 0, len(rows))
	for _, row := range rows {
		result = append(result, OperationRecordFromRow(row))
	}
	return result, nil
}

func (r *OperationRepository) CountByOutcome(ctx context.Context) ([]OutcomeCount, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, fmt.Errorf("operation repository: missing database context")
	}

	rows, err := queries.CountOperationsByOutcome(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]OutcomeCount, 0, len(rows))
	for _, row := range rows {
		result = append(result, OutcomeCount{Outcome: row.Outcome, Count: row.Count})
	}
	return result, nil
}

// Prune deletes operations recorded before cutoff and reports how many went.
func (r *OperationRepository) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return 0, fmt.Errorf("operation repository: missing database context")
	}
	return queries.DeleteOperationsBefore(ctx, cutoff.UTC())
}
