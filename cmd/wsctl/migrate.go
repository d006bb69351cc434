package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/forecastkit/wsctl/internal/migration"
)

func newMigrateCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Move a flat legacy layout into a Default profile",
		Long: "Back up the legacy cache files, move them into profiles/default/queries/default, " +
			"and import the legacy settings. Running it again after success is a no-op.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.close()

			report, res := a.migrate(cmd.Context())
			if !res.OK {
				if report.BackupDir != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Migration rolled back; backup kept at %s\n", report.BackupDir)
				}
				return res.Err()
			}
			if format == formatJSON {
				return outputJSON(cmd, report)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			for _, item := range report.Moved {
				fmt.Fprintf(cmd.OutOrStdout(), "  moved %s\n", item)
			}
			if report.SettingsImported {
				fmt.Fprintln(cmd.OutOrStdout(), "  imported legacy settings")
			}
			return nil
		},
	}

	addFormatFlag(cmd, &format)
	cmd.AddCommand(newMigrateBackupsCmd())

	return cmd
}

func newMigrateBackupsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "backups",
		Short: "List migration backups and their manifests",
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

			root := filepath.Join(a.ws.Layout.Root, migration.BackupsDir)
			entries, err := os.ReadDir(root)
			if err != nil && !os.IsNotExist(err) {
				return err
			}

			manifests := make([]*migration.Manifest, 0, len(entries))
			for _, e := range entries {
				if !e.IsDir() || !strings.HasPrefix(e.Name(), "migration-") {
					continue
				}
				m, err := migration.LoadManifest(filepath.Join(root, e.Name()))
				if err != nil {
					a.logger.Warn("skipping backup without readable manifest", "dir", e.Name(), "error", err)
					continue
				}
				manifests = append(manifests, m)
			}
			sort.Slice(manifests, func(i, j int) bool {
				return manifests[i].CreatedAt.Before(manifests[j].CreatedAt)
			})

			if format == formatJSON {
				return outputJSON(cmd, manifests)
			}
			t := newTable(cmd)
			t.AppendHeader(table.Row{"Run", "Created", "Source", "Files"})
			for _, m := range manifests {
				t.AppendRow(table.Row{m.RunID, m.CreatedAt.Local().Format(dateLayout), m.Source, len(m.Files)})
			}
			t.Render()
			return nil
		},
	}

	addFormatFlag(cmd, &format)

	return cmd
}
