package main

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/forecastkit/wsctl/internal/usecase"
)

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "query",
		Aliases: []string{"queries"},
		Short:   "Manage the queries of a profile",
	}

	cmd.PersistentFlags().StringP("profile", "p", "", "Profile id (default: active profile)")

	cmd.AddCommand(newQueryListCmd())
	cmd.AddCommand(newQueryCreateCmd())
	cmd.AddCommand(newQuerySwitchCmd())
	cmd.AddCommand(newQueryDeleteCmd())
	cmd.AddCommand(newQueryDuplicateCmd())
	cmd.AddCommand(newQueryRenameCmd())
	cmd.AddCommand(newQueryEditCmd())

	return cmd
}

// profileFlag returns the --profile value or the active profile id.
func profileFlag(cmd *cobra.Command, a *app) (string, error) {
	id, _ := cmd.Flags().GetString("profile")
	if id != "" {
		return id, nil
	}
	reg, err := a.ws.Registry.Load()
	if err != nil {
		return "", err
	}
	return reg.ActiveProfileID, nil
}

type queryOutputEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Active      bool   `json:"active"`
	QueryString string `json:"query_string,omitempty"`
	Created     string `json:"created"`
	LastUsed    string `json:"last_used"`
}

func newQueryListCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queries, most recently used first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			profileID, err := profileFlag(cmd, a)
			if err != nil {
				return err
			}
			reg, err := a.ws.Registry.Load()
			if err != nil {
				return err
			}
			queries, err := a.ws.QueryManager.List(profileID)
			if err != nil {
				return err
			}
			isActive := func(queryID string) bool {
				return reg.ActiveProfileID == profileID && reg.ActiveQueryID == queryID
			}

			if format == formatJSON {
				out := make([]queryOutputEntry, 0, len(queries))
				for _, q := range queries {
					out = append(out, queryOutputEntry{
						ID:          q.ID,
						Name:        q.Name,
						Active:      isActive(q.ID),
						QueryString: q.QueryString,
						Created:     q.CreatedAt.Format(time.RFC3339),
						LastUsed:    q.LastUsed.Format(time.RFC3339),
					})
				}
				return outputJSON(cmd, out)
			}

			ids := make([]string, 0, len(queries))
			names := make([]string, 0, len(queries))
			for _, q := range queries {
				ids = append(ids, q.ID)
				names = append(names, q.Name)
			}
			idWidth := maxWidth(10, ids...)
			nameWidth := maxWidth(10, names...)
			created, createdWidth := dateLayout, 19
			qsWidth := freeWidth(5, 1, idWidth, nameWidth, createdWidth)
			if qsWidth < 20 {
				created, createdWidth = shortDateLayout, 11
				qsWidth = freeWidth(5, 1, idWidth, nameWidth, createdWidth)
			}

			t := newTable(cmd)
			t.AppendHeader(table.Row{"", "ID", "Name", "Last Used", "Query"})
			for _, q := range queries {
				t.AppendRow(table.Row{
					mark(isActive(q.ID)),
					wrapString(q.ID, idWidth),
					wrapString(q.Name, nameWidth),
					q.LastUsed.Local().Format(created),
					truncate(q.QueryString, qsWidth),
				})
			}
			t.Render()
			return nil
		},
	}

	addFormatFlag(cmd, &format)

	return cmd
}

func newQueryCreateCmd() *cobra.Command {
	var (
		queryString string
		description string
		switchTo    bool
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a query; the profile's connection must have been tested",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			profileID, err := profileFlag(cmd, a)
			if err != nil {
				return err
			}
			res := a.ops.CreateQuery(cmd.Context(), usecase.CreateQueryInput{
				ProfileID:   profileID,
				Name:        args[0],
				QueryString: queryString,
				Description: description,
			})
			if err := report(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if switchTo {
				return report(cmd.OutOrStdout(), a.ops.SwitchQuery(cmd.Context(), profileID, res.QueryID))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&queryString, "query", "q", "", "Data source query, for example a JQL expression")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Query description")
	cmd.Flags().BoolVar(&switchTo, "switch", false, "Make the new query active")

	return cmd
}

func newQuerySwitchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "switch <query-id>",
		Short: "Make a query active; caches stay warm",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			profileID, err := profileFlag(cmd, a)
			if err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), a.ops.SwitchQuery(cmd.Context(), profileID, args[0]))
		},
	}

	return cmd
}

func newQueryDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <query-id>",
		Short: "Delete an inactive query and its cache bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			queryID := args[0]

			if !force {
				ok, err := confirm(cmd, fmt.Sprintf("Delete query '%s' and its cached data? (y/N) ", queryID))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled")
					return nil
				}
			}

			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			profileID, err := profileFlag(cmd, a)
			if err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), a.ops.DeleteQuery(cmd.Context(), profileID, queryID))
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")

	return cmd
}

func newQueryDuplicateCmd() *cobra.Command {
	var copyCache bool

	cmd := &cobra.Command{
		Use:   "duplicate <query-id> <new-name>",
		Short: "Copy a query within its profile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			profileID, err := profileFlag(cmd, a)
			if err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), a.ops.DuplicateQuery(cmd.Context(), usecase.DuplicateQueryInput{
				ProfileID:     profileID,
				SourceQueryID: args[0],
				NewName:       args[1],
				CopyCache:     copyCache,
			}))
		},
	}

	cmd.Flags().BoolVar(&copyCache, "with-cache", false, "Also copy the cache bundle")

	return cmd
}

func newQueryRenameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <query-id> <new-name>",
		Short: "Change a query's display name; its id and paths stay the same",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			profileID, err := profileFlag(cmd, a)
			if err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), a.ops.RenameQuery(cmd.Context(), profileID, args[0], args[1]))
		},
	}

	return cmd
}

func newQueryEditCmd() *cobra.Command {
	var (
		queryString string
		description string
	)

	cmd := &cobra.Command{
		Use:   "edit <query-id>",
		Short: "Replace a query's query string",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			profileID, err := profileFlag(cmd, a)
			if err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), a.ops.EditQuery(cmd.Context(), profileID, args[0], queryString, description))
		},
	}

	cmd.Flags().StringVarP(&queryString, "query", "q", "", "New data source query")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description; empty keeps the current one")
	_ = cmd.MarkFlagRequired("query")

	return cmd
}
