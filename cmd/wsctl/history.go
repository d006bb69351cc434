package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/forecastkit/wsctl/internal/database"
)

func newHistoryCmd() *cobra.Command {
	var (
		profileID string
		limit     int
		stats     bool
		format    string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show journaled workspace operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.close()

			repo, err := a.journal()
			if err != nil {
				return err
			}

			if stats {
				counts, err := repo.CountByOutcome(cmd.Context())
				if err != nil {
					return err
				}
				version, dirty, err := database.SchemaVersion(a.dbCtx)
				if err != nil {
					return err
				}
				if format == formatJSON {
					return outputJSON(cmd, historyStats{SchemaVersion: version, Dirty: dirty, Outcomes: counts})
				}
				t := newTable(cmd)
				t.AppendHeader(table.Row{"Outcome", "Count"})
				for _, c := range counts {
					t.AppendRow(table.Row{c.Outcome, c.Count})
				}
				t.Render()
				fmt.Fprintf(cmd.OutOrStdout(), "Journal schema version %d", version)
				if dirty {
					fmt.Fprint(cmd.OutOrStdout(), " (dirty)")
				}
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			}

			records, err := repo.List(cmd.Context(), database.ListFilter{ProfileID: profileID, Limit: limit})
			if err != nil {
				return err
			}
			if format == formatJSON {
				return outputJSON(cmd, historyJSON(records))
			}
			outputHistoryTable(cmd, records)
			return nil
		},
	}

	cmd.Flags().StringVar(&profileID, "profile", "", "Only show operations on this profile")
	cmd.Flags().IntVar(&limit, "limit", database.DefaultListLimit, "Maximum number of operations to show")
	cmd.Flags().BoolVar(&stats, "stats", false, "Show operation counts per outcome")
	addFormatFlag(cmd, &format)

	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryClearCmd())
	cmd.AddCommand(newHistoryPruneCmd())
	cmd.AddCommand(newHistoryMigrationsCmd())

	return cmd
}

type historyStats struct {
	SchemaVersion uint                    `json:"schema_version"`
	Dirty         bool                    `json:"dirty"`
	Outcomes      []database.OutcomeCount `json:"outcomes"`
}

type historyOutputEntry struct {
	ID         string `json:"id"`
	Operation  string `json:"operation"`
	Outcome    string `json:"outcome"`
	Message    string `json:"message"`
	ProfileID  string `json:"profile_id,omitempty"`
	QueryID    string `json:"query_id,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	Created    string `json:"created"`
}

func historyJSON(records []database.OperationRecord) []historyOutputEntry {
	out := make([]historyOutputEntry, 0, len(records))
	for _, r := range records {
		out = append(out, historyOutputEntry{
			ID:         r.ID,
			Operation:  r.Name,
			Outcome:    r.Outcome,
			Message:    r.Message,
			ProfileID:  r.ProfileID,
			QueryID:    r.QueryID,
			DurationMS: r.Duration.Milliseconds(),
			Created:    r.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}

func outputHistoryTable(cmd *cobra.Command, records []database.OperationRecord) {
	t := newTable(cmd)

	names := make([]string, 0, len(records))
	targets := make([]string, 0, len(records))
	for _, r := range records {
		names = append(names, r.Name)
		targets = append(targets, target(r.ProfileID, r.QueryID))
	}
	nameWidth := maxWidth(9, names...)
	targetWidth := maxWidth(6, targets...)
	created, createdWidth := dateLayout, 19
	msgWidth := freeWidth(5, nameWidth, targetWidth, createdWidth, 10)
	if msgWidth < 20 {
		created, createdWidth = shortDateLayout, 11
		msgWidth = freeWidth(5, nameWidth, targetWidth, createdWidth, 10)
	}

	t.AppendHeader(table.Row{"Created", "Operation", "Target", "Outcome", "Message"})
	for i, r := range records {
		t.AppendRow(table.Row{
			r.CreatedAt.Local().Format(created),
			wrapString(r.Name, nameWidth),
			wrapString(targets[i], targetWidth),
			r.Outcome,
			truncate(r.Message, msgWidth),
		})
	}
	t.Render()
}

func target(profileID, queryID string) string {
	if queryID == "" {
		return profileID
	}
	return profileID + "/" + queryID
}

func newHistoryShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <operation-id>",
		Short: "Show one journaled operation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.close()

			repo, err := a.journal()
			if err != nil {
				return err
			}
			rec, err := repo.FindByID(cmd.Context(), args[0])
			if errors.Is(err, database.ErrNotFound) {
				return fmt.Errorf("no journaled operation with id %q", args[0])
			}
			if err != nil {
				return err
			}

			entry := historyJSON([]database.OperationRecord{*rec})[0]
			if format == formatJSON {
				return outputJSON(cmd, entry)
			}
			t := newTable(cmd)
			t.AppendRows([]table.Row{
				{"ID", entry.ID},
				{"Operation", entry.Operation},
				{"Target", target(entry.ProfileID, entry.QueryID)},
				{"Outcome", entry.Outcome},
				{"Duration", rec.Duration.String()},
				{"Created", rec.CreatedAt.Local().Format(dateLayout)},
				{"Message", entry.Message},
			})
			t.Render()
			return nil
		},
	}

	addFormatFlag(cmd, &format)

	return cmd
}

func newHistoryClearCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every journaled operation and migration run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				ok, err := confirm(cmd, "Delete the whole operation journal? (y/N) ")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Clear cancelled")
					return nil
				}
			}

			a, err := openApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.close()

			if a.dbCtx == nil {
				return errJournalDisabled
			}
			if err := database.ClearDatabase(a.dbCtx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Journal cleared")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")

	return cmd
}

func newHistoryPruneCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete journaled operations older than a cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			a, err := openApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.close()

			repo, err := a.journal()
			if err != nil {
				return err
			}
			n, err := repo.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d operations\n", n)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age cutoff, for example 720h")

	return cmd
}

func newHistoryMigrationsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "migrations",
		Short: "Show journaled legacy migration runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.close()

			if a.dbCtx == nil {
				return errJournalDisabled
			}
			runs, err := database.NewMigrationRunRepository(a.dbCtx).List(cmd.Context())
			if err != nil {
				return err
			}
			if format == formatJSON {
				return outputJSON(cmd, runs)
			}

			t := newTable(cmd)
			t.AppendHeader(table.Row{"Created", "Run", "State", "Moved", "Backup", "Error"})
			for _, r := range runs {
				t.AppendRow(table.Row{
					r.CreatedAt.Local().Format(dateLayout),
					r.ID,
					r.State,
					r.MovedCount,
					r.BackupDir,
					truncate(r.Error, 40),
				})
			}
			t.Render()
			return nil
		},
	}

	addFormatFlag(cmd, &format)

	return cmd
}
