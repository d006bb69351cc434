package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/forecastkit/wsctl/internal/workspace"
)

func newPutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <logical-name> [file]",
		Short: "Store fetched data in the active query's cache bundle",
		Long: "Read data from a file or stdin and write it to the cache bundle that was active when the command started. " +
			"If the active profile or query changes before the data is complete, the write is discarded.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			reg, err := a.ws.Registry.Load()
			if err != nil {
				return err
			}
			target := reg.Active()

			var src io.Reader = cmd.InOrStdin()
			if len(args) == 2 {
				//nolint:gosec // G304: path is chosen by the user
				f, err := os.Open(args[1])
				if err != nil {
					return err
				}
				defer func() {
					_ = f.Close()
				}()
				src = f
			}
			data, err := io.ReadAll(src)
			if err != nil {
				return err
			}

			path, err := a.ws.WriteCache(target, args[0], data)
			if errors.Is(err, workspace.ErrStaleTarget) {
				return fmt.Errorf("selection changed from %s/%s while reading; data discarded", target.ProfileID, target.QueryID)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bytes to %s\n", len(data), path)
			return nil
		},
	}

	return cmd
}
