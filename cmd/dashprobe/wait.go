package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/kuitang/stockdash-e2e/internal/config"
	"github.com/kuitang/stockdash-e2e/internal/dashboard"
	"github.com/kuitang/stockdash-e2e/internal/errs"
	"github.com/kuitang/stockdash-e2e/internal/obs"
	"github.com/kuitang/stockdash-e2e/internal/readiness"
)

func newWaitCmd(flags *targetFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "wait",
		Short: "Reload the dashboard until it stops showing its starting screen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			cfg.PrintStartupSummary()

			ctx := obs.WithRun(cmd.Context(), string(cfg.Driver), string(cfg.Container))
			d, release, err := openDriver(ctx, cfg)
			if err != nil {
				return err
			}
			defer release()

			_, err = runWait(ctx, cfg, d, cmd.OutOrStdout())
			return err
		},
	}
}

// runWait opens the dashboard and runs one readiness wait on d.
func runWait(ctx context.Context, cfg *config.Config, d dashboard.Driver, out io.Writer) (readiness.Outcome, error) {
	log := obs.From(ctx).With("pkg", "dashprobe")

	if err := d.Goto(ctx); err != nil {
		return readiness.Outcome{}, errs.Wrap(errs.Unavailable, "open dashboard", err)
	}

	opts := cfg.PageOptions().Readiness
	opts.Logger = log
	opts.OnTransition = func(from, to readiness.State, st readiness.PollState) {
		log.Debug("readiness transition", "from", from, "to", to, "attempt", st.Attempt)
	}

	outcome, err := readiness.New(opts).Wait(ctx, d)
	printf(out, "inspections=%d reloads=%d anomalies=%d ready=%t\n",
		outcome.Inspections, outcome.Reloads, outcome.Anomalies, outcome.Ready)
	if err != nil {
		return outcome, errs.Wrap(errs.DeadlineExceeded, "readiness wait interrupted", err)
	}
	if !outcome.Ready {
		return outcome, errs.New(errs.Unavailable, "dashboard still starting after the reload budget")
	}
	return outcome, nil
}
