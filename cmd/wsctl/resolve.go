package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <logical-name>...",
		Short: "Print the physical path of cache files for the active query",
		Long: "Resolve logical cache file names (jira_cache.json, project_data.json, cache/<name>) " +
			"to their location in the active query's bundle, or to the flat legacy layout before migration.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.close()

			r, err := a.ws.Resolver()
			if err != nil {
				return err
			}
			for _, logical := range args {
				fmt.Fprintln(cmd.OutOrStdout(), r.Resolve(logical))
			}
			return nil
		},
	}

	return cmd
}
