package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/forecastkit/wsctl/internal/config"
	"github.com/forecastkit/wsctl/internal/database"
	"github.com/forecastkit/wsctl/internal/logging"
	"github.com/forecastkit/wsctl/internal/migration"
	"github.com/forecastkit/wsctl/internal/usecase"
	"github.com/forecastkit/wsctl/internal/workspace"
)

const journalFile = "journal.db"

// app is everything a command needs: the workspace, its operations and the
// optional journal.
type app struct {
	settings config.Settings
	logger   *slog.Logger
	ws       *workspace.Workspace
	ops      *usecase.Operations
	dbCtx    *database.Context
}

// openApp loads settings, opens the workspace and journal, and migrates a
// legacy layout on first use unless skipMigration is set.
func openApp(ctx context.Context, skipMigration bool) (*app, error) {
	settings, err := config.LoadSettings(configPath)
	if err != nil {
		return nil, err
	}
	if workspaceDir != "" {
		if settings.LegacyDir == settings.WorkspaceDir {
			settings.LegacyDir = workspaceDir
		}
		settings.WorkspaceDir = workspaceDir
	}

	logger := logging.New(logging.Config{Level: settings.LogLevel, Format: settings.LogFormat})
	ws := workspace.Open(workspace.NewLayout(settings.WorkspaceDir, settings.LegacyDir), workspace.WithLogger(logger))

	a := &app{settings: settings, logger: logger, ws: ws}

	opts := []usecase.Option{usecase.WithLogger(logger)}
	if settings.JournalEnabled() {
		dbCtx, err := database.CreateDatabase(filepath.Join(settings.WorkspaceDir, journalFile))
		if err != nil {
			// Without a journal only history is unavailable.
			logger.Warn("operation journal unavailable", "error", err)
		} else {
			a.dbCtx = dbCtx
			opts = append(opts,
				usecase.WithJournal(database.NewOperationRepository(dbCtx)),
				usecase.WithMigrationJournal(database.NewMigrationRunRepository(dbCtx)),
			)
		}
	}
	a.ops = usecase.New(ws, opts...)

	if !skipMigration && !ws.Registry.Exists() {
		if _, res := a.migrate(ctx); !res.OK {
			a.close()
			return nil, res.Err()
		}
	}
	return a, nil
}

func (a *app) migrate(ctx context.Context) (migration.Report, usecase.Result) {
	m := migration.New(a.ws, migration.WithLogger(a.logger))
	return a.ops.Migrate(ctx, m)
}

func (a *app) close() {
	if a.dbCtx == nil {
		return
	}
	if err := database.CloseDatabase(a.dbCtx); err != nil {
		a.logger.Warn("failed to close journal", "error", err)
	}
}

// journal returns the operation repository, or an error when the journal is
// disabled or could not be opened.
func (a *app) journal() (*database.OperationRepository, error) {
	if a.dbCtx == nil {
		return nil, errJournalDisabled
	}
	return database.NewOperationRepository(a.dbCtx), nil
}

var errJournalDisabled = errors.New("operation journal is disabled or unavailable")

// report prints a successful result or converts a failed one into an error.
func report(out io.Writer, res usecase.Result) error {
	if !res.OK {
		return res.Err()
	}
	_, err := fmt.Fprintln(out, res.Message)
	return err
}
