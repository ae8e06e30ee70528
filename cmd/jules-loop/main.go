package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/CodexForgeBR/jules-loop/internal/cli"
	"github.com/CodexForgeBR/jules-loop/internal/config"
	"github.com/CodexForgeBR/jules-loop/internal/exitcode"
	"github.com/CodexForgeBR/jules-loop/internal/logging"
	"github.com/CodexForgeBR/jules-loop/internal/loop"
	sighandler "github.com/CodexForgeBR/jules-loop/internal/signal"
	"github.com/CodexForgeBR/jules-loop/internal/state"
)

// version vars injected via ldflags at build time
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cfg := config.NewDefaultConfig()

	rootCmd := &cobra.Command{
		Use:     "jules-loop",
		Short:   "Continuous Jules session loop that merges every pull request it produces",
		Long:    "jules-loop creates Jules sessions against a GitHub repository, waits for each session's pull request, and squash-merges it, within a daily quota and a consecutive-failure budget.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.ValidateFlags(cmd, cfg); err != nil {
				return err
			}
			return run(cmd, cfg)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cli.BindFlags(rootCmd, cfg)
	cli.SetCustomHelp(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitcode.Error)
	}
}

func run(cmd *cobra.Command, cfg *config.Config) error {
	// Defaults < .env < environment < flags.
	finalCfg, err := config.LoadWithPrecedence(cfg.EnvFile, os.Environ(), cli.BuildOverrides(cmd, cfg))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// CLI-only flags
	finalCfg.EnvFile = cfg.EnvFile
	finalCfg.Status = cfg.Status
	finalCfg.Resume = cfg.Resume
	cfg = finalCfg

	logging.SetVerbose(cfg.Verbose)

	if cfg.Status {
		os.Exit(loop.Status(cfg))
	}
	if cfg.Resume {
		if err := loop.Resume(cfg); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl := loop.New(cfg)

	sighandler.SetupSignalHandler(ctx, cancel, func(sig os.Signal) {
		ctrl.Events.Emitf(logging.EventShutdown, "Graceful shutdown initiated (signal %s)", sig)
		if err := state.Flush(cfg.StateDir); err != nil {
			logging.Warn(fmt.Sprintf("Failed to flush state: %v", err))
		}
	})

	os.Exit(ctrl.Run(ctx))
	return nil // unreachable
}
