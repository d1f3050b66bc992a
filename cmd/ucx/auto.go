package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/privacytools/ucx/internal/engine"
	"github.com/privacytools/ucx/internal/telemetry"
	"github.com/privacytools/ucx/internal/ui"
)

var (
	autoDryRun      bool
	autoForce       bool
	autoConcurrency int
	autoTelemetry   bool
)

var autoCmd = &cobra.Command{
	Use:   "auto",
	Short: "Sync diagnosed site report bugs into the exceptions collection",
	Long: `Read open ETP site report bugs, derive the exception records each
diagnosed bug requires, and reconcile them against the collection.

Each bug is an independent transaction; a failure in one never blocks
the others. On prod, fully-synced bugs are closed with a verification
request to the reporter. A single review request is issued at the end
of the run if anything changed.

Exits non-zero if any bug failed or was blocked on an ownership
conflict (use --force to take over conflicting records).`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runAuto(cmd.Context())
	},
}

func init() {
	autoCmd.Flags().BoolVar(&autoDryRun, "dry-run", false, "Report every bug's plan without writing anything")
	autoCmd.Flags().BoolVar(&autoForce, "force", false, "Take over records owned by other bugs on key conflicts")
	autoCmd.Flags().IntVar(&autoConcurrency, "concurrency", engine.DefaultConcurrency, "Number of bugs processed in parallel")
	autoCmd.Flags().BoolVar(&autoTelemetry, "telemetry", false, "Emit run metrics to stdout on exit")
}

func runAuto(ctx context.Context) {
	cfg := mustConfig(true)

	var metrics *telemetry.Recorder
	if autoTelemetry {
		rec, err := telemetry.New()
		if err != nil {
			WarnError("telemetry disabled: %v", err)
		} else {
			metrics = rec
			defer func() {
				if err := metrics.Shutdown(context.Background()); err != nil {
					WarnError("telemetry flush: %v", err)
				}
			}()
		}
	}

	eng := engine.New(cfg, newTracker(cfg.BugzillaAPIKey, cfg.BugzillaURL), newStore(cfg), metrics)
	run, err := eng.Run(ctx, engine.Options{
		DryRun:      autoDryRun,
		Force:       autoForce,
		Concurrency: autoConcurrency,
	})
	if run != nil {
		ui.PrintRun(os.Stdout, run, autoDryRun)
	}
	if err != nil {
		FatalError("%v", err)
	}
	if run.ExitError() {
		os.Exit(1)
	}
}
