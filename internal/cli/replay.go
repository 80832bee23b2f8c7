package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dshills/uidelegate/internal/replay"
	"github.com/dshills/uidelegate/internal/watch"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Watch    bool
	Interval time.Duration
}

// ReplayResult is the JSON output for one scenario file.
type ReplayResult struct {
	Path   string        `json:"path"`
	Passed bool          `json:"passed"`
	Error  string        `json:"error,omitempty"`
	Trace  *replay.Trace `json:"trace,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <scenario.yaml>...",
		Short: "Replay delegation scenarios",
		Long: `Replay delegation scenarios and print the trace of subscriber
invocations and default actions.

Exit codes:
  0 - Every scenario ran and matched its expect list
  1 - A scenario's trace differs from its expect list
  2 - Command error (unreadable scenario, bad selector, etc.)

Examples:
  uidelegate replay menu.yaml
  uidelegate replay --format json menu.yaml tabs.yaml
  uidelegate replay --watch menu.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, opts, args)
		},
	}

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "replay again whenever a scenario or the config file changes")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 500*time.Millisecond, "polling interval for --watch")

	return cmd
}

func runReplay(cmd *cobra.Command, opts *ReplayOptions, paths []string) error {
	out := cmd.OutOrStdout()
	logger := zerolog.Nop()

	// Configuration is reloaded for every round so --watch picks up edits.
	round := func(ctx context.Context) error {
		cfg, err := opts.loadConfig()
		if err != nil {
			return err
		}
		logger, err = opts.logger(cfg, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		runner := replay.NewRunner(
			replay.WithBusOptions(cfg.BusOptions(logger)...),
			replay.WithDelegateOptions(cfg.DelegateOptions(logger)...),
			replay.WithLogger(logger),
		)
		return replayAll(ctx, runner, paths, opts.Format, out)
	}

	err := round(cmd.Context())
	if !opts.Watch {
		return err
	}
	if err != nil {
		logger.Error().Err(err).Msg("replay failed")
	}
	return watchAndReplay(cmd.Context(), logger, opts, round, paths)
}

// replayAll runs every scenario, writes the results and returns the most
// severe failure.
func replayAll(ctx context.Context, runner *replay.Runner, paths []string, format string, out io.Writer) error {
	results := make([]ReplayResult, 0, len(paths))
	var failure error

	for _, path := range paths {
		res, err := replayOne(ctx, runner, path)
		results = append(results, res)
		if err != nil && ExitCode(err) >= ExitCode(failure) {
			failure = err
		}
		if format == "text" {
			if werr := writeResultText(out, res); werr != nil {
				return werr
			}
		}
	}

	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	}
	return failure
}

func replayOne(ctx context.Context, runner *replay.Runner, path string) (ReplayResult, error) {
	res := ReplayResult{Path: path}

	sc, err := replay.LoadFile(path)
	if err != nil {
		res.Error = err.Error()
		return res, WrapExitError(ExitCommandError, "loading scenario", err)
	}

	trace, err := runner.Run(ctx, sc)
	res.Trace = trace
	if err != nil {
		res.Error = err.Error()
		var mismatch *replay.ExpectationError
		if errors.As(err, &mismatch) {
			return res, WrapExitError(ExitFailure, path, err)
		}
		return res, WrapExitError(ExitCommandError, path, err)
	}
	res.Passed = true
	return res, nil
}

func writeResultText(w io.Writer, res ReplayResult) error {
	name := res.Path
	if res.Trace != nil && res.Trace.Scenario != "" {
		name = fmt.Sprintf("%s (%s)", res.Trace.Scenario, res.Path)
	}
	if _, err := fmt.Fprintf(w, "== %s\n", name); err != nil {
		return err
	}
	if res.Trace != nil {
		if err := res.Trace.WriteText(w); err != nil {
			return err
		}
	}
	status := "PASS"
	if !res.Passed {
		status = "FAIL: " + res.Error
	}
	_, err := fmt.Fprintln(w, status)
	return err
}

// watchAndReplay reruns replay whenever a watched file settles after a
// change, until interrupted.
func watchAndReplay(ctx context.Context, logger zerolog.Logger, opts *ReplayOptions, rerun func(context.Context) error, paths []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := watch.New(watch.WithInterval(opts.Interval))
	files := paths
	if opts.ConfigPath != "" {
		files = append(files[:len(files):len(files)], opts.ConfigPath)
	}
	for _, f := range files {
		if err := w.Add(f); err != nil {
			return WrapExitError(ExitCommandError, "watching "+f, err)
		}
	}
	logger.Info().Int("files", w.Files()).Msg("watching for changes")

	err := w.Run(ctx, func(c watch.Change) {
		logger.Info().Str("path", c.Path).Stringer("op", c.Op).Msg("change detected")
		if err := rerun(ctx); err != nil {
			logger.Error().Err(err).Msg("replay failed")
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
