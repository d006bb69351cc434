package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/forecastkit/wsctl/internal/workspace"
)

func newStatusCmd() *cobra.Command {
	var (
		profileID string
		format    string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the active selection and the setup status of a profile",
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

			reg, err := a.ws.Registry.Load()
			if err != nil {
				return err
			}
			status, res := a.ops.GetConfigurationStatus(cmd.Context(), profileID)
			if !res.OK {
				return res.Err()
			}

			if format == formatJSON {
				return outputJSON(cmd, statusOutput{
					Active:  reg.Active(),
					Profile: res.ProfileID,
					Next:    status.Next(),
					Status:  status,
				})
			}
			outputStatusTable(cmd, reg.Active(), res.ProfileID, status)
			return nil
		},
	}

	cmd.Flags().StringVar(&profileID, "profile", "", "Profile to inspect (default: active profile)")
	addFormatFlag(cmd, &format)

	return cmd
}

type statusOutput struct {
	Active  workspace.Selection   `json:"active"`
	Profile string                `json:"profile"`
	Next    workspace.Stage       `json:"next_stage,omitempty"`
	Status  workspace.SetupStatus `json:"status"`
}

func outputStatusTable(cmd *cobra.Command, active workspace.Selection, profileID string, status workspace.SetupStatus) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Active profile: %s\n", active.ProfileID)
	fmt.Fprintf(out, "Active query:   %s\n", active.QueryID)
	fmt.Fprintf(out, "Setup status of %s:\n", profileID)

	t := newTable(cmd)
	t.AppendHeader(table.Row{"Stage", "Enabled", "Complete"})
	for _, st := range status.Stages {
		t.AppendRow(table.Row{st.Stage, st.Enabled, st.Complete})
	}
	t.Render()

	if len(status.MissingMappings) > 0 {
		fmt.Fprintf(out, "Missing field mappings: %v\n", status.MissingMappings)
	}
	if next := status.Next(); next != "" {
		fmt.Fprintf(out, "Next step: %s\n", next)
	} else {
		fmt.Fprintln(out, "Setup complete")
	}
}
