// Package main is the entry point for the infopanel debugger view.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/infopanel/internal/app"
	"github.com/dshills/infopanel/internal/config"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var opts app.Options

	cmd := &cobra.Command{
		Use:   "infopanel",
		Short: "Terminal panel showing the state of a debug session",
		Long: `infopanel connects to a Debug Adapter Protocol server and shows the
debugger state, the focused stack frame, the current file and line, and the
expression under the cursor in a collapsible panel.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := app.New(opts)
			if err != nil {
				return fmt.Errorf("failed to initialize: %w", err)
			}
			defer application.Shutdown() //nolint:errcheck // errors are logged during shutdown

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			err = application.Run(ctx)
			if errors.Is(err, app.ErrQuit) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", config.DefaultPath(), "path to configuration file")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	return cmd
}
