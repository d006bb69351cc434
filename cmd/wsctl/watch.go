package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forecastkit/wsctl/internal/workspace"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the active profile and query whenever they change",
		Long:  "Watch the registry and print the new selection and cache path after every switch, until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			out := cmd.OutOrStdout()
			printSel := func(sel workspace.Selection) {
				dir := a.ws.Layout.QueryDir(sel.ProfileID, sel.QueryID)
				fmt.Fprintf(out, "%s/%s\t%s\n", sel.ProfileID, sel.QueryID, dir)
			}

			reg, err := a.ws.Registry.Load()
			if err != nil {
				return err
			}
			printSel(reg.Active())

			return a.ws.Registry.Watch(cmd.Context(), printSel)
		},
	}

	return cmd
}
