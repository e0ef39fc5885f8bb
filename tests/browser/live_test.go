package browser

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/stockdash-e2e/internal/config"
	"github.com/kuitang/stockdash-e2e/internal/dashboard"
	"github.com/kuitang/stockdash-e2e/internal/driver/pwdash"
	"github.com/kuitang/stockdash-e2e/internal/obs"
)

// TestLiveDashboard runs the full suite against a deployed dashboard. Set
// DASHBOARD_LIVE_URL to enable it; the other settings come from the usual
// environment variables, so a hosted run also needs DASHBOARD_CONTAINER=iframe.
func TestLiveDashboard(t *testing.T) {
	liveURL := os.Getenv("DASHBOARD_LIVE_URL")
	if liveURL == "" {
		t.Skip("DASHBOARD_LIVE_URL not set")
	}
	if testing.Short() {
		t.Skip("Skipping live dashboard test in short mode")
	}

	t.Setenv("BASE_URL", liveURL)
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	b := getOrLaunchBrowser(t)
	d, err := b.NewDriver(pwdash.Options{
		BaseURL:           cfg.BaseURL,
		Mode:              cfg.Container,
		NavigationTimeout: cfg.NavigationTimeout,
		ActionTimeout:     cfg.AssertTimeout,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	ctx := obs.WithRun(context.Background(), d.Name(), cfg.Container.String())
	p := dashboard.NewPage(d, cfg.PageOptions())
	require.NoError(t, p.Goto(ctx))
	outcome, err := p.WaitForAppToLoad(ctx)
	t.Logf("readiness: %d inspections, %d reloads, ready=%t", outcome.Inspections, outcome.Reloads, outcome.Ready)
	require.NoError(t, err)

	for _, r := range dashboard.RunChecks(ctx, p, dashboard.Checks(), dashboard.RunOptions{}) {
		assert.True(t, r.Passed, "%s: %s", r.Name, r.Detail)
	}
}
