// Package usecase is the operations API consumed by the CLI and the MCP
// server. Each operation wraps one workspace call, turns its error into a
// Result, logs it and appends it to the operation journal.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/forecastkit/wsctl/internal/database"
	"github.com/forecastkit/wsctl/internal/logging"
	"github.com/forecastkit/wsctl/internal/workspace"
)

// OperationJournal persists operation outcomes.
type OperationJournal interface {
	Record(ctx context.Context, rec database.OperationRecord) (database.OperationRecord, error)
}

// MigrationJournal persists migration runs.
type MigrationJournal interface {
	Record(ctx context.Context, rec database.MigrationRunRecord) error
}

// Operations runs workspace operations on behalf of a UI layer.
type Operations struct {
	ws         *workspace.Workspace
	journal    OperationJournal
	migrations MigrationJournal
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures Operations.
type Option func(*Operations)

// WithJournal records every operation in j.
func WithJournal(j OperationJournal) Option {
	return func(o *Operations) { o.journal = j }
}

// WithMigrationJournal records every migration run in j.
func WithMigrationJournal(j MigrationJournal) Option {
	return func(o *Operations) { o.migrations = j }
}

// WithLogger routes operation logs to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Operations) { o.logger = logger }
}

// New returns the operations API over ws.
func New(ws *workspace.Workspace, opts ...Option) *Operations {
	o := &Operations{
		ws:     ws,
		logger: logging.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Workspace exposes the underlying workspace for read-only helpers such as
// path resolution.
func (o *Operations) Workspace() *workspace.Workspace {
	return o.ws
}

// run executes fn, converting errors and panics into a failed Result, and
// journals the outcome.
func (o *Operations) run(ctx context.Context, name string, ids Result, fn func() (Result, error)) (res Result) {
	start := o.now()
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("operation panicked", "operation", name, "panic", r)
			res = Result{Kind: KindError, Message: fmt.Sprintf("internal error during %s: %v", name, r)}
		}
		if res.ProfileID == "" {
			res.ProfileID = ids.ProfileID
		}
		if res.QueryID == "" {
			res.QueryID = ids.QueryID
		}
		o.finish(ctx, name, start, res)
	}()

	if err := ctx.Err(); err != nil {
		return Classify(err)
	}
	out, err := fn()
	if err != nil {
		return Classify(err)
	}
	return out
}

func (o *Operations) finish(ctx context.Context, name string, start time.Time, res Result) {
	elapsed := o.now().Sub(start)
	attrs := []any{"operation", name, "kind", res.Kind, "profile_id", res.ProfileID, "query_id", res.QueryID, "duration", elapsed}
	switch res.Kind {
	case KindOK:
		o.logger.Info("operation completed", attrs...)
	case KindError, KindCorruption, KindMigration:
		o.logger.Error("operation failed", append(attrs, "message", res.Message)...)
	default:
		o.logger.Debug("operation refused", append(attrs, "message", res.Message)...)
	}

	if o.journal == nil {
		return
	}
	_, err := o.journal.Record(context.WithoutCancel(ctx), database.OperationRecord{
		Name:      name,
		Outcome:   string(res.Kind),
		Message:   res.Message,
		ProfileID: res.ProfileID,
		QueryID:   res.QueryID,
		Duration:  elapsed,
		CreatedAt: start,
	})
	if err != nil {
		o.logger.Warn("failed to journal operation", "operation", name, "error", err)
	}
}
