package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newGCCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gc [dir]",
		Short: "Remove cached data not referenced by the lockfile",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.app.GC(projectDir(args))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d blobs, evicted %d artifacts\n",
				result.BlobsRemoved, result.ArtifactsEvicted)
			return nil
		},
	}
}
