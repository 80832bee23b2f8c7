package cli

import (
	"encoding/json"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

// NewConfigCommand creates the config command, which prints the effective
// configuration.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after layering the defaults, the --config file
and UIDELEGATE_* environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			}
			enc := toml.NewEncoder(out)
			enc.SetIndentTables(true)
			return enc.Encode(cfg)
		},
	}
}
