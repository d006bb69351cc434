package main

import (
	"github.com/spf13/cobra"

	"github.com/forecastkit/wsctl/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server",
		Long:  "Start the Model Context Protocol server exposing profile and query operations over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			server := mcp.NewServer(a.ops, version)
			return server.Run(cmd.Context())
		},
	}

	return cmd
}
