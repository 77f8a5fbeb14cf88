package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/dtunes/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Reconcile sweeps every user once and repairs half-applied relationship pairs. With --watch it keeps
// sweeping every reconcile.interval until interrupted.
func (r *Runner) Reconcile(ctx context.Context, cmd *cli.Command) error {
	b, err := r.open(ctx)
	if err != nil {
		return err
	}

	opts := tasks.SweepOpts{Workers: r.config.Reconcile.Workers, RateLimit: r.config.Reconcile.RateLimit}
	if cmd.IsSet("workers") {
		opts.Workers = int(cmd.Int("workers"))
	}
	if cmd.IsSet("rate") {
		opts.RateLimit = cmd.Float("rate")
	}
	sweeper := tasks.NewSweeper(b.Users, r.machine(b).Reconciler(), opts, r.logger)

	if cmd.Bool("watch") {
		interval := r.config.Reconcile.Interval.Std()
		r.logger.Info("watching for inconsistent pairs", "interval", interval)
		sweeper.Start(ctx, interval)
		return nil
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.ListUsers:
				r.writePlain("%s\n", update.Message)
			case tasks.SweepUsers:
				if res, ok := update.Data.(tasks.UserSweepResult); ok && (res.Err != nil || res.Repaired > 0) {
					r.writePlain("   [%d/%d] %s\n", update.Step, update.Total, update.Message)
				}
			}
		}
	}()

	result, err := sweeper.Run(ctx, progressCh)
	close(progressCh)
	<-done

	if result != nil {
		r.writePlainHeader("Reconciliation Complete")
		r.writePlain("Users scanned: %d\n", result.Scanned)
		r.writePlain("Pairs repaired: %d\n", result.Repaired)
		r.writePlain("Took: %s\n", result.Duration.Round(time.Millisecond))

		if result.Failed > 0 {
			r.writePlain("%s\n", r.palette.Warn(fmt.Sprintf("Failed to sweep %d users:", result.Failed)))
			for _, f := range result.Failures {
				r.writePlain("  - %s: %v\n", f.UserID, f.Err)
			}
		}
	}
	return err
}
