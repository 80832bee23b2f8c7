package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(build BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "uidelegate %s\n", build.Version)
			fmt.Fprintf(out, "Commit: %s\n", build.Commit)
			fmt.Fprintf(out, "Built: %s\n", build.Date)
			return nil
		},
	}
}
