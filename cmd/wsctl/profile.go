package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/forecastkit/wsctl/internal/usecase"
	"github.com/forecastkit/wsctl/internal/workspace"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "profile",
		Aliases: []string{"profiles"},
		Short:   "Manage profiles",
	}

	cmd.AddCommand(newProfileListCmd())
	cmd.AddCommand(newProfileShowCmd())
	cmd.AddCommand(newProfileCreateCmd())
	cmd.AddCommand(newProfileSwitchCmd())
	cmd.AddCommand(newProfileDeleteCmd())
	cmd.AddCommand(newProfileDuplicateCmd())
	cmd.AddCommand(newProfileRenameCmd())
	cmd.AddCommand(newProfileSettingsCmd())
	cmd.AddCommand(newProfileConnectCmd())
	cmd.AddCommand(newProfileTestResultCmd())
	cmd.AddCommand(newProfileMapCmd())
	cmd.AddCommand(newProfileClassifyCmd())
	cmd.AddCommand(newProfileExportCmd())

	return cmd
}

type profileOutputEntry struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Active     bool    `json:"active"`
	Queries    int     `json:"queries"`
	PertFactor float64 `json:"pert_factor"`
	BaseURL    string  `json:"base_url,omitempty"`
	LastUsed   string  `json:"last_used"`
}

func newProfileListCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List profiles, most recently used first",
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

			profiles, active, err := a.ws.ProfileManager.List()
			if err != nil {
				return err
			}

			if format == formatJSON {
				out := make([]profileOutputEntry, 0, len(profiles))
				for _, p := range profiles {
					out = append(out, profileOutputEntry{
						ID:         p.ID,
						Name:       p.Name,
						Active:     p.ID == active.ProfileID,
						Queries:    p.QueryCount,
						PertFactor: p.PertFactor,
						BaseURL:    p.BaseURL,
						LastUsed:   p.LastUsed.Format(time.RFC3339),
					})
				}
				return outputJSON(cmd, out)
			}

			ids := make([]string, 0, len(profiles))
			names := make([]string, 0, len(profiles))
			for _, p := range profiles {
				ids = append(ids, p.ID)
				names = append(names, p.Name)
			}
			idWidth := maxWidth(10, ids...)
			nameWidth := maxWidth(10, names...)
			urlWidth := freeWidth(7, 1, idWidth, nameWidth, 7, 4, 19)

			t := newTable(cmd)
			t.AppendHeader(table.Row{"", "ID", "Name", "Queries", "PERT", "Last Used", "Base URL"})
			for _, p := range profiles {
				t.AppendRow(table.Row{
					mark(p.ID == active.ProfileID),
					wrapString(p.ID, idWidth),
					wrapString(p.Name, nameWidth),
					p.QueryCount,
					p.PertFactor,
					p.LastUsed.Local().Format(dateLayout),
					truncate(p.BaseURL, urlWidth),
				})
			}
			t.Render()
			return nil
		},
	}

	addFormatFlag(cmd, &format)

	return cmd
}

func newProfileShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [profile-id]",
		Short: "Show a profile's settings, connection and mappings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			var p *workspace.Profile
			if len(args) == 1 {
				p, err = a.ws.ProfileManager.Get(args[0])
			} else {
				p, _, err = a.ws.ProfileManager.Active()
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:              %s\n", p.ID)
			fmt.Fprintf(out, "Name:            %s\n", p.Name)
			fmt.Fprintf(out, "Description:     %s\n", p.Description)
			fmt.Fprintf(out, "Created At:      %s\n", p.CreatedAt.Local().Format(dateLayout))
			fmt.Fprintf(out, "Last Used:       %s\n", p.LastUsed.Local().Format(dateLayout))
			fmt.Fprintf(out, "PERT Factor:     %g\n", p.SharedSettings.PertFactor)
			fmt.Fprintf(out, "Deadline:        %s\n", p.SharedSettings.Deadline)
			fmt.Fprintf(out, "Data Points:     %d\n", p.SharedSettings.DataPointsCount)
			fmt.Fprintf(out, "Base URL:        %s\n", p.ConnectionConfig.BaseURL)
			fmt.Fprintf(out, "Configured:      %t\n", p.ConnectionConfig.Configured)
			for _, k := range sortedKeys(p.FieldMappings) {
				fmt.Fprintf(out, "Mapping:         %s -> %s\n", k, p.FieldMappings[k])
			}
			fmt.Fprintf(out, "Queries:         %d\n", len(p.Queries))
			return nil
		},
	}

	return cmd
}

func newProfileCreateCmd() *cobra.Command {
	var (
		description string
		clone       bool
		switchTo    bool
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a profile with its own Default query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			res := a.ops.CreateProfile(cmd.Context(), usecase.CreateProfileInput{
				Name:            args[0],
				Description:     description,
				CloneFromActive: clone,
			})
			if err := report(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if switchTo {
				return report(cmd.OutOrStdout(), a.ops.SwitchProfile(cmd.Context(), res.ProfileID))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Profile description")
	cmd.Flags().BoolVar(&clone, "clone", false, "Copy settings, connection and field mappings from the active profile")
	cmd.Flags().BoolVar(&switchTo, "switch", false, "Make the new profile active")

	return cmd
}

func newProfileSwitchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "switch <profile-id>",
		Short: "Make a profile active together with its last used query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			return report(cmd.OutOrStdout(), a.ops.SwitchProfile(cmd.Context(), args[0]))
		},
	}

	return cmd
}

func newProfileDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <profile-id>",
		Short: "Delete an inactive profile and all of its queries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profileID := args[0]

			if !force {
				ok, err := confirm(cmd, fmt.Sprintf("Delete profile '%s' with all its queries and caches? (y/N) ", profileID))
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

			res := a.ops.DeleteProfile(cmd.Context(), profileID)
			if err := report(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			for _, f := range res.Failures {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", f)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")

	return cmd
}

func newProfileDuplicateCmd() *cobra.Command {
	var cloneQueries bool

	cmd := &cobra.Command{
		Use:   "duplicate <profile-id> <new-name>",
		Short: "Copy a profile's configuration into a new profile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			return report(cmd.OutOrStdout(), a.ops.DuplicateProfile(cmd.Context(), usecase.DuplicateProfileInput{
				SourceID:     args[0],
				NewName:      args[1],
				CloneQueries: cloneQueries,
			}))
		},
	}

	cmd.Flags().BoolVar(&cloneQueries, "with-queries", false, "Also copy every query and its cache bundle")

	return cmd
}

func newProfileRenameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <profile-id> <new-name>",
		Short: "Change a profile's display name; its id and paths stay the same",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			return report(cmd.OutOrStdout(), a.ops.RenameProfile(cmd.Context(), args[0], args[1]))
		},
	}

	return cmd
}

func newProfileSettingsCmd() *cobra.Command {
	var (
		pertFactor float64
		deadline   string
		dataPoints int
	)

	cmd := &cobra.Command{
		Use:   "settings <profile-id>",
		Short: "Update the forecasting settings shared by every query of a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in usecase.SettingsInput
			if cmd.Flags().Changed("pert-factor") {
				in.PertFactor = &pertFactor
			}
			if cmd.Flags().Changed("deadline") {
				in.Deadline = &deadline
			}
			if cmd.Flags().Changed("data-points") {
				in.DataPointsCount = &dataPoints
			}
			if in == (usecase.SettingsInput{}) {
				return fmt.Errorf("nothing to update: pass --pert-factor, --deadline or --data-points")
			}

			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			return report(cmd.OutOrStdout(), a.ops.UpdateSettings(cmd.Context(), args[0], in))
		},
	}

	cmd.Flags().Float64Var(&pertFactor, "pert-factor", workspace.DefaultPertFactor, "PERT factor between 1.0 and 3.0")
	cmd.Flags().StringVar(&deadline, "deadline", "", "Deadline as YYYY-MM-DD; empty clears it")
	cmd.Flags().IntVar(&dataPoints, "data-points", workspace.DefaultDataPointsCount, "Number of data points between 4 and 52")

	return cmd
}

func newProfileConnectCmd() *cobra.Command {
	var (
		baseURL string
		token   string
	)

	cmd := &cobra.Command{
		Use:   "connect <profile-id>",
		Short: "Set the data source URL and token of a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			return report(cmd.OutOrStdout(), a.ops.UpdateConnection(cmd.Context(), args[0], baseURL, token))
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "", "Data source base URL")
	cmd.Flags().StringVar(&token, "token", "", "API token")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}

func newProfileTestResultCmd() *cobra.Command {
	var failed bool

	cmd := &cobra.Command{
		Use:   "test-result <profile-id>",
		Short: "Record the outcome of a connectivity test",
		Long:  "Record a connectivity test outcome. A success unlocks query creation; a later failure never locks it again.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			return report(cmd.OutOrStdout(), a.ops.RecordConnectionTest(cmd.Context(), args[0], !failed))
		},
	}

	cmd.Flags().BoolVar(&failed, "failed", false, "Record a failed test instead of a successful one")

	return cmd
}

func newProfileMapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map <profile-id> <field=source>...",
		Short: "Map semantic fields to data source fields",
		Long: "Map semantic fields such as completed_date or work_type to data source fields. " +
			"An empty source removes the mapping.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mappings := make(map[string]string, len(args)-1)
			for _, arg := range args[1:] {
				field, source, ok := strings.Cut(arg, "=")
				if !ok || strings.TrimSpace(field) == "" {
					return fmt.Errorf("invalid mapping %q (expected field=source)", arg)
				}
				mappings[strings.TrimSpace(field)] = strings.TrimSpace(source)
			}

			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			return report(cmd.OutOrStdout(), a.ops.UpdateFieldMappings(cmd.Context(), args[0], mappings))
		},
	}

	return cmd
}

func newProfileClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <profile-id> <group=value,value>...",
		Short: "Set the work-type classification groups of a profile",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			groups := make(map[string][]string, len(args)-1)
			for _, arg := range args[1:] {
				group, values, ok := strings.Cut(arg, "=")
				if !ok || strings.TrimSpace(group) == "" {
					return fmt.Errorf("invalid classification %q (expected group=value,value)", arg)
				}
				var list []string
				for _, v := range strings.Split(values, ",") {
					if v = strings.TrimSpace(v); v != "" {
						list = append(list, v)
					}
				}
				groups[strings.TrimSpace(group)] = list
			}

			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			return report(cmd.OutOrStdout(), a.ops.UpdateClassification(cmd.Context(), args[0], groups))
		},
	}

	return cmd
}

func newProfileExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <profile-id>",
		Short: "Print a profile as JSON with its token redacted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			data, res := a.ops.ExportProfile(cmd.Context(), args[0])
			if !res.OK {
				return res.Err()
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}

	return cmd
}
