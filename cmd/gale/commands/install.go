package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/gale/internal/app"
)

func (c *CLI) newInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install [dir]",
		Short: "Resolve, fetch, and link dependencies",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			frozen, _ := cmd.Flags().GetBool("frozen")
			update, _ := cmd.Flags().GetBool("update")
			return c.app.Install(cmd.Context(), projectDir(args), app.InstallOptions{
				Frozen: frozen,
				Update: update,
			})
		},
	}
	cmd.Flags().Bool("frozen", false, "Fail if the lockfile is missing or out of date instead of updating it")
	cmd.Flags().BoolP("update", "u", false, "Ignore lockfile pins and resolve the newest matching versions")
	return cmd
}
