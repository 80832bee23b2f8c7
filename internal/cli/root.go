// Package cli implements the uidelegate command line.
package cli

import (
	"fmt"
	"io"
	"slices"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dshills/uidelegate/internal/config"
	"github.com/dshills/uidelegate/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	Format     string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// BuildInfo is the version information set at link time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// NewRootCommand creates the root command.
func NewRootCommand(build BuildInfo) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "uidelegate",
		Short: "Delegated UI event dispatch",
		Long: `uidelegate replays event delegation scenarios: an HTML document, bus
subscriptions keyed by CSS selectors, and a sequence of native events.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a TOML configuration file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (trace|debug|info|warn|error|off)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))
	cmd.AddCommand(NewVersionCommand(build))

	return cmd
}

// loadConfig loads the configuration and applies flag overrides.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "loading configuration", err)
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
		if err := cfg.Validate(); err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid flags", err)
		}
	}
	return cfg, nil
}

// logger builds the process logger writing to w.
func (o *RootOptions) logger(cfg *config.Config, w io.Writer) (zerolog.Logger, error) {
	lc := cfg.LoggingConfig("uidelegate")
	lc.Output = w
	logger, err := logging.New(lc)
	if err != nil {
		return zerolog.Nop(), WrapExitError(ExitCommandError, "configuring logging", err)
	}
	return logger, nil
}
