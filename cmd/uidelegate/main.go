// Package main is the entry point for the uidelegate command.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dshills/uidelegate/internal/cli"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cmd := cli.NewRootCommand(cli.BuildInfo{Version: version, Commit: commit, Date: date})
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return cli.ExitCode(err)
	}
	return cli.ExitSuccess
}
