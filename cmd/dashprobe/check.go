package main

import (
	"context"
	"fmt"
	"io"
	"time"

	fcolor "github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kuitang/stockdash-e2e/internal/artifacts"
	"github.com/kuitang/stockdash-e2e/internal/config"
	"github.com/kuitang/stockdash-e2e/internal/dashboard"
	"github.com/kuitang/stockdash-e2e/internal/errs"
	"github.com/kuitang/stockdash-e2e/internal/obs"
	"github.com/kuitang/stockdash-e2e/internal/report"
)

func newCheckCmd(flags *targetFlags) *cobra.Command {
	var reportPath string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Wait for the dashboard, then run the industry data checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("report") {
				cfg.ReportPath = reportPath
			}
			cfg.PrintStartupSummary()

			ctx := obs.WithRun(cmd.Context(), string(cfg.Driver), string(cfg.Container))
			store, err := artifacts.FromConfig(ctx, cfg)
			if err != nil {
				return errs.Wrap(errs.FailedPrecondition, "open artifact store", err)
			}

			d, release, err := openDriver(ctx, cfg)
			if err != nil {
				return err
			}
			defer release()

			_, err = runCheck(ctx, cfg, d, store, cmd.OutOrStdout(), !fcolor.NoColor)
			return err
		},
	}
	cmd.Flags().StringVar(&reportPath, "report", "", "write an HTML report here (env REPORT_PATH)")
	return cmd
}

// runCheck loads the dashboard on d, runs every check, and reports the run.
// store may be nil.
func runCheck(ctx context.Context, cfg *config.Config, d dashboard.Driver, store artifacts.Store, out io.Writer, colorize bool) (report.RunSummary, error) {
	log := obs.From(ctx).With("pkg", "dashprobe")
	started := time.Now()
	summary := report.RunSummary{
		RunID:     obs.RunIDFromContext(ctx),
		BaseURL:   cfg.BaseURL,
		Driver:    d.Name(),
		Container: d.Mode(),
		Started:   started,
	}

	page := dashboard.NewPage(d, cfg.PageOptions())
	loadErr := page.Goto(ctx)
	if loadErr == nil {
		summary.Readiness, loadErr = page.WaitForAppToLoad(ctx)
	}
	if loadErr != nil {
		log.Error("dashboard did not load", "error", loadErr)
		summary.LoadError = loadErr.Error()
	} else {
		var opts dashboard.RunOptions
		if cfg.RetainOnFailure && store != nil {
			opts.OnFailure = artifacts.ScreenshotOnFailure(store, d)
		}
		summary.Results = dashboard.RunChecks(ctx, page, dashboard.Checks(), opts)
	}
	summary.Duration = time.Since(started)

	publishReport(ctx, cfg, store, summary)
	if err := report.WriteLines(out, summary, colorize); err != nil {
		log.Warn("write console report", "error", err)
	}

	if loadErr != nil {
		return summary, loadErr
	}
	if !summary.Passed() {
		_, failed := summary.Counts()
		return summary, errs.New(errs.NotFound, fmt.Sprintf("%d dashboard checks failed", failed))
	}
	return summary, nil
}

// publishReport writes the HTML report locally and copies it to the store.
// Failures here never fail the run.
func publishReport(ctx context.Context, cfg *config.Config, store artifacts.Store, s report.RunSummary) {
	log := obs.From(ctx).With("pkg", "dashprobe")
	if cfg.ReportPath != "" {
		if err := report.WriteHTML(cfg.ReportPath, s); err != nil {
			log.Warn("write report", "error", err)
		} else {
			log.Info("report written", "path", cfg.ReportPath)
		}
	}
	if store == nil {
		return
	}
	loc, err := store.Put(ctx, artifacts.Key(s.RunID, "report", "html"), report.HTML(s), "text/html; charset=utf-8")
	if err != nil {
		log.Warn("upload report", "error", err)
		return
	}
	log.Info("report stored", "location", loc)
}
