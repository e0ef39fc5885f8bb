package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kuitang/stockdash-e2e/internal/config"
	"github.com/kuitang/stockdash-e2e/internal/dashboard"
	"github.com/kuitang/stockdash-e2e/internal/driver/httpdash"
	"github.com/kuitang/stockdash-e2e/internal/driver/pwdash"
	"github.com/kuitang/stockdash-e2e/internal/driver/roddash"
	"github.com/kuitang/stockdash-e2e/internal/errs"
	"github.com/kuitang/stockdash-e2e/internal/obs"
)

// targetFlags override the environment configuration.
type targetFlags struct {
	baseURL     string
	container   string
	driver      string
	maxAttempts int
	interval    time.Duration
	headless    bool
	verbose     bool
}

func (f *targetFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.baseURL, "base-url", "", "dashboard URL (env BASE_URL)")
	fs.StringVar(&f.container, "container", "", "where the app DOM lives: root or iframe (env DASHBOARD_CONTAINER)")
	fs.StringVar(&f.driver, "driver", "", "playwright, rod or http (env DASHBOARD_DRIVER)")
	fs.IntVar(&f.maxAttempts, "max-attempts", 0, "reload budget while the app is starting (env READINESS_MAX_ATTEMPTS)")
	fs.DurationVar(&f.interval, "interval", 0, "wait before each inspection, e.g. 10s (env READINESS_INTERVAL)")
	fs.BoolVar(&f.headless, "headless", true, "run the browser headless (env HEADLESS)")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")
}

func newRootCmd() *cobra.Command {
	flags := &targetFlags{}
	cmd := &cobra.Command{
		Use:   "dashprobe",
		Short: "Wait out the stock dashboard cold start and check its industry data",
		Long: "dashprobe drives the S&P 500 stock dashboard through a browser. It reloads " +
			"the app while it shows its starting screen, then checks the industry table.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if flags.verbose {
				obs.SetLevel(slog.LevelDebug)
			}
		},
	}
	flags.register(cmd.PersistentFlags())

	cmd.AddCommand(newWaitCmd(flags))
	cmd.AddCommand(newCheckCmd(flags))
	cmd.AddCommand(newFixtureCmd())
	return cmd
}

// loadConfig reads the environment, then applies any flags that were set.
func loadConfig(cmd *cobra.Command, f *targetFlags) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, "load configuration", err)
	}

	fs := cmd.Flags()
	if fs.Changed("base-url") {
		cfg.BaseURL = f.baseURL
	}
	if fs.Changed("container") {
		mode, err := dashboard.ParseContainerMode(f.container)
		if err != nil {
			return nil, errs.Wrap(errs.InvalidArgument, "--container", err)
		}
		cfg.Container = mode
	}
	if fs.Changed("driver") {
		d, err := config.ParseDriver(f.driver)
		if err != nil {
			return nil, errs.Wrap(errs.InvalidArgument, "--driver", err)
		}
		cfg.Driver = d
	}
	if fs.Changed("max-attempts") {
		cfg.MaxAttempts = f.maxAttempts
	}
	if fs.Changed("interval") {
		cfg.ReadinessInterval = f.interval
	}
	if fs.Changed("headless") {
		cfg.Headless = f.headless
	}

	if err := cfg.Validate(); err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, "invalid configuration", err)
	}
	return cfg, nil
}

// openDriver starts the configured driver. The returned func releases it
// and any browser it launched.
func openDriver(ctx context.Context, cfg *config.Config) (dashboard.Driver, func(), error) {
	log := obs.From(ctx).With("pkg", "dashprobe")

	switch cfg.Driver {
	case config.DriverHTTP:
		d, err := httpdash.New(httpdash.Options{
			BaseURL: cfg.BaseURL,
			Mode:    cfg.Container,
			Timeout: cfg.NavigationTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return d, func() { _ = d.Close() }, nil

	case config.DriverRod:
		b, err := roddash.Launch(roddash.LaunchOptions{
			Headless:       cfg.Headless,
			Bin:            cfg.BrowserPath,
			Stealth:        true,
			ViewportWidth:  cfg.ViewportWidth,
			ViewportHeight: cfg.ViewportHeight,
		})
		if err != nil {
			return nil, nil, errs.Wrap(errs.FailedPrecondition, "start chrome", err)
		}
		d, err := b.NewDriver(roddash.Options{
			BaseURL:           cfg.BaseURL,
			Mode:              cfg.Container,
			NavigationTimeout: cfg.NavigationTimeout,
			ActionTimeout:     cfg.AssertTimeout,
		})
		if err != nil {
			_ = b.Close()
			return nil, nil, errs.Wrap(errs.FailedPrecondition, "open tab", err)
		}
		return d, func() {
			_ = d.Close()
			if err := b.Close(); err != nil {
				log.Warn("close chrome", "error", err)
			}
		}, nil

	default:
		b, err := pwdash.Launch(pwdash.LaunchOptions{
			Headless:       cfg.Headless,
			ExecutablePath: cfg.BrowserPath,
			ViewportWidth:  cfg.ViewportWidth,
			ViewportHeight: cfg.ViewportHeight,
		})
		if err != nil {
			return nil, nil, errs.Wrap(errs.FailedPrecondition, "start playwright", err)
		}
		d, err := b.NewDriver(pwdash.Options{
			BaseURL:           cfg.BaseURL,
			Mode:              cfg.Container,
			NavigationTimeout: cfg.NavigationTimeout,
			ActionTimeout:     cfg.AssertTimeout,
		})
		if err != nil {
			_ = b.Close()
			return nil, nil, errs.Wrap(errs.FailedPrecondition, "open page", err)
		}
		return d, func() {
			_ = d.Close()
			if err := b.Close(); err != nil {
				log.Warn("close playwright", "error", err)
			}
		}, nil
	}
}
