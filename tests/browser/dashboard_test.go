package browser

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/stockdash-e2e/internal/artifacts"
	"github.com/kuitang/stockdash-e2e/internal/dashboard"
	"github.com/kuitang/stockdash-e2e/internal/fixture"
	"github.com/kuitang/stockdash-e2e/internal/obs"
)

var modes = []dashboard.ContainerMode{dashboard.ContainerRoot, dashboard.ContainerIframe}

func TestWaitForAppToLoad_ReloadsThroughColdStart(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode.String(), func(t *testing.T) {
			env := SetupBrowserTestEnv(t, mode, 2)
			p, _ := env.NewPage(t, 10)
			ctx := context.Background()

			require.NoError(t, p.Goto(ctx))
			outcome, err := p.WaitForAppToLoad(ctx)
			require.NoError(t, err)

			assert.True(t, outcome.Ready)
			assert.Equal(t, 3, outcome.Inspections)
			assert.Equal(t, 2, outcome.Reloads)
			assert.Zero(t, outcome.Anomalies)
			assert.Equal(t, 3, env.Fixture.Loads())
		})
	}
}

func TestWaitForAppToLoad_BudgetSpent(t *testing.T) {
	env := SetupBrowserTestEnv(t, dashboard.ContainerIframe, 100)
	p, _ := env.NewPage(t, 1)
	ctx := context.Background()

	require.NoError(t, p.Goto(ctx))
	outcome, err := p.WaitForAppToLoad(ctx)
	require.Error(t, err)
	assert.False(t, outcome.Ready)
	assert.Equal(t, 2, outcome.Inspections)
	assert.Equal(t, 1, outcome.Reloads)
}

func TestFetchSnapshot_ReadsAppContainer(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode.String(), func(t *testing.T) {
			env := SetupBrowserTestEnv(t, mode, 1)
			d := env.NewDriver(t)
			ctx := context.Background()

			require.NoError(t, d.Goto(ctx))
			snap, err := d.FetchSnapshot(ctx)
			require.NoError(t, err)
			assert.True(t, snap.HeaderVisible)
			assert.Contains(t, snap.RenderedText, "App is starting")
			assert.Contains(t, snap.RenderedText, "Background task started.")

			require.NoError(t, d.ForceReload(ctx))
			snap, err = d.FetchSnapshot(ctx)
			require.NoError(t, err)
			assert.True(t, snap.HeaderVisible)
			assert.NotContains(t, snap.RenderedText, "App is starting")
			assert.Contains(t, snap.RenderedText, dashboard.IndustryDataTitle)
		})
	}
}

func TestChecks_AllPass(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode.String(), func(t *testing.T) {
			env := SetupBrowserTestEnv(t, mode, 1)
			p, _ := env.NewPage(t, 5)
			ctx := obs.WithRun(context.Background(), "playwright", mode.String())

			require.NoError(t, p.Goto(ctx))
			_, err := p.WaitForAppToLoad(ctx)
			require.NoError(t, err)

			results := dashboard.RunChecks(ctx, p, dashboard.Checks(), dashboard.RunOptions{})
			for _, r := range results {
				assert.True(t, r.Passed, "%s: %s", r.Name, r.Detail)
			}
			assert.Len(t, results, len(dashboard.Checks()))
		})
	}
}

func TestFilterBySector_LeavesOnlySectorRows(t *testing.T) {
	env := SetupBrowserTestEnv(t, dashboard.ContainerIframe, 0)
	p, _ := env.NewPage(t, 0)
	ctx := context.Background()

	require.NoError(t, p.Goto(ctx))
	_, err := p.WaitForAppToLoad(ctx)
	require.NoError(t, err)

	before, err := p.CompanyNames(ctx)
	require.NoError(t, err)
	assert.Len(t, before, len(fixture.Companies))

	require.NoError(t, p.FilterBySector(ctx, dashboard.FilterSector))
	require.NoError(t, p.WaitForCompanyName(ctx, dashboard.FilterSectorCompany))

	var want []string
	for _, c := range fixture.InSector(dashboard.FilterSector) {
		want = append(want, c.Name)
	}
	after, err := p.CompanyNames(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, want, after)
}

func TestScreenshotOnFailure_StoresPNG(t *testing.T) {
	env := SetupBrowserTestEnv(t, dashboard.ContainerRoot, 0)
	p, d := env.NewPage(t, 0)
	store := artifacts.TestS3Store(t, "browser-artifacts")
	ctx := obs.WithCorrelation(context.Background(), obs.Correlation{RunID: "run-browser"})

	require.NoError(t, p.Goto(ctx))
	_, err := p.WaitForAppToLoad(ctx)
	require.NoError(t, err)

	failing := dashboard.Check{
		Name: "always fails",
		Run:  func(context.Context, *dashboard.Page) error { return errors.New("forced failure") },
	}
	results := dashboard.RunChecks(ctx, p, []dashboard.Check{failing}, dashboard.RunOptions{
		OnFailure: artifacts.ScreenshotOnFailure(store, d),
	})
	require.Len(t, results, 1)
	require.Len(t, results[0].Artifacts, 1)
	assert.True(t, strings.HasSuffix(results[0].Artifacts[0], "/run-browser/always-fails.png"))

	png, err := store.Get(ctx, "run-browser/always-fails.png")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")), "not a PNG")
}

func TestDriverLocatesInsideFrame(t *testing.T) {
	env := SetupBrowserTestEnv(t, dashboard.ContainerIframe, 0)
	d := env.NewDriver(t)
	require.NoError(t, d.Goto(context.Background()))

	// The host page itself has no dashboard header; only the frame does.
	WaitForSelector(t, d.Page(), dashboard.SelectorAppFrame)
	count, err := d.Page().Locator(dashboard.SelectorDashboardHeader).Count()
	require.NoError(t, err)
	assert.Zero(t, count)

	text, err := d.InnerText(context.Background(), dashboard.SelectorDashboardHeader)
	require.NoError(t, err)
	assert.Equal(t, dashboard.DashboardTitle, text)
}
