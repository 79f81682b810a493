package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/gale/internal/core/domain"
)

func (c *CLI) newOutdatedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "outdated [dir]",
		Short: "Show locked packages that a fresh resolution would change",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			diff, err := c.app.Outdated(cmd.Context(), projectDir(args))
			if err != nil {
				return err
			}
			if diff.Empty() {
				fmt.Fprintln(cmd.OutOrStdout(), "All packages are up to date")
				return nil
			}
			for _, entry := range diff.Entries {
				fmt.Fprintln(cmd.OutOrStdout(), formatDiffEntry(entry))
			}
			return nil
		},
	}
}

func formatDiffEntry(entry domain.DiffEntry) string {
	switch entry.Kind {
	case domain.DiffAdded:
		return fmt.Sprintf("%s: added %s", entry.Name, entry.New.Version)
	case domain.DiffRemoved:
		return fmt.Sprintf("%s: removed %s", entry.Name, entry.Old.Version)
	case domain.DiffChanged:
		return fmt.Sprintf("%s: %s changed source", entry.Name, entry.Old.Version)
	default:
		return fmt.Sprintf("%s: %s %s -> %s", entry.Name, entry.Kind, entry.Old.Version, entry.New.Version)
	}
}
