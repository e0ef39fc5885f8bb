package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/kuitang/stockdash-e2e/internal/dashboard"
	"github.com/kuitang/stockdash-e2e/internal/errs"
	"github.com/kuitang/stockdash-e2e/internal/fixture"
	"github.com/kuitang/stockdash-e2e/internal/obs"
	"github.com/kuitang/stockdash-e2e/internal/ratelimit"
)

func newFixtureCmd() *cobra.Command {
	var (
		addr      string
		mode      string
		coldStart int
		rps       float64
	)
	cmd := &cobra.Command{
		Use:   "fixture",
		Short: "Serve a local fake of the dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := dashboard.ParseContainerMode(mode)
			if err != nil {
				return errs.Wrap(errs.InvalidArgument, "--mode", err)
			}
			if coldStart < 0 {
				return errs.New(errs.InvalidArgument, "--cold-start must not be negative")
			}
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return errs.Wrap(errs.FailedPrecondition, "listen", err)
			}
			opts := fixture.Options{Mode: m, ColdStartLoads: coldStart}
			if rps > 0 {
				rl := ratelimit.DefaultConfig
				rl.RPS = rps
				opts.RateLimit = &rl
			}
			srv := fixture.New(opts)
			defer srv.Close()
			printf(cmd.OutOrStdout(), "fixture dashboard (%s) on http://%s\n", m, ln.Addr())
			return serveFixture(cmd.Context(), ln, srv)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8501", "listen address")
	cmd.Flags().StringVar(&mode, "mode", string(dashboard.ContainerRoot), "root or iframe")
	cmd.Flags().IntVar(&coldStart, "cold-start", 2, "page loads that show the starting screen")
	cmd.Flags().Float64Var(&rps, "rate-limit", 0, "per-client requests per second before answering 429 (0 disables)")
	return cmd
}

// serveFixture serves h on ln until ctx is done.
func serveFixture(ctx context.Context, ln net.Listener, h http.Handler) error {
	log := obs.Pkg("dashprobe")
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("fixture starting", "addr", ln.Addr().String())
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errs.Wrap(errs.Internal, "serve fixture", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errs.Wrap(errs.Internal, "shutdown fixture", err)
	}
	log.Info("fixture stopped")
	return nil
}
