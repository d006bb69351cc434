package usecase

import (
	"context"
	"fmt"

	"github.com/forecastkit/wsctl/internal/database"
	"github.com/forecastkit/wsctl/internal/migration"
)

// Migrate runs the legacy migration, or bootstraps a fresh workspace, and
// journals the run.
func (o *Operations) Migrate(ctx context.Context, m *migration.Migrator) (migration.Report, Result) {
	var report migration.Report
	res := o.run(ctx, "migrate", Result{}, func() (Result, error) {
		var err error
		report, err = m.Run(ctx)
		o.recordRun(ctx, report, err)
		if err != nil {
			return Result{}, err
		}

		sel := report.Selection
		switch {
		case report.AlreadyMigrated:
			return success("Workspace already uses profiles; nothing to migrate", sel.ProfileID, sel.QueryID), nil
		case report.Bootstrapped:
			return success("Initialized a new workspace with a default profile", sel.ProfileID, sel.QueryID), nil
		default:
			return success(fmt.Sprintf("Migrated %d legacy items into %s/%s; backup at %s", len(report.Moved), sel.ProfileID, sel.QueryID, report.BackupDir), sel.ProfileID, sel.QueryID), nil
		}
	})
	return report, res
}

func (o *Operations) recordRun(ctx context.Context, report migration.Report, runErr error) {
	if o.migrations == nil || report.RunID == "" {
		return
	}
	rec := database.MigrationRunRecord{
		ID:         report.RunID,
		State:      string(report.State),
		BackupDir:  report.BackupDir,
		MovedCount: len(report.Moved),
		CreatedAt:  o.now(),
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	if err := o.migrations.Record(context.WithoutCancel(ctx), rec); err != nil {
		o.logger.Warn("failed to journal migration run", "run_id", report.RunID, "error", err)
	}
}
