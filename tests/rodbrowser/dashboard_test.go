package rodbrowser

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/stockdash-e2e/internal/artifacts"
	"github.com/kuitang/stockdash-e2e/internal/dashboard"
	"github.com/kuitang/stockdash-e2e/internal/obs"
)

func TestRod_ColdStartThenChecks(t *testing.T) {
	for _, mode := range []dashboard.ContainerMode{dashboard.ContainerRoot, dashboard.ContainerIframe} {
		t.Run(mode.String(), func(t *testing.T) {
			env := SetupRodTestEnv(t, mode, 2)
			p, _ := env.NewPage(t, 10)
			ctx := obs.WithRun(context.Background(), "rod", mode.String())

			require.NoError(t, p.Goto(ctx))
			outcome, err := p.WaitForAppToLoad(ctx)
			require.NoError(t, err)
			assert.True(t, outcome.Ready)
			assert.Equal(t, 2, outcome.Reloads)
			assert.Equal(t, 3, env.Fixture.Loads())

			for _, r := range dashboard.RunChecks(ctx, p, dashboard.Checks(), dashboard.RunOptions{}) {
				assert.True(t, r.Passed, "%s: %s", r.Name, r.Detail)
			}
		})
	}
}

func TestRod_SnapshotSeesStartingScreen(t *testing.T) {
	env := SetupRodTestEnv(t, dashboard.ContainerIframe, 5)
	d := env.NewDriver(t)
	ctx := context.Background()

	require.NoError(t, d.Goto(ctx))
	snap, err := d.FetchSnapshot(ctx)
	require.NoError(t, err)
	assert.True(t, snap.HeaderVisible)
	assert.Contains(t, snap.RenderedText, "Refresh Page to check status")
}

func TestRod_ScreenshotToDirStore(t *testing.T) {
	env := SetupRodTestEnv(t, dashboard.ContainerRoot, 0)
	p, d := env.NewPage(t, 0)
	store, err := artifacts.NewDirStore(t.TempDir())
	require.NoError(t, err)
	ctx := obs.WithCorrelation(context.Background(), obs.Correlation{RunID: "run-rod"})

	require.NoError(t, p.Goto(ctx))
	_, err = p.WaitForAppToLoad(ctx)
	require.NoError(t, err)

	failing := dashboard.Check{
		Name: "forced",
		Run:  func(context.Context, *dashboard.Page) error { return errors.New("forced failure") },
	}
	results := dashboard.RunChecks(ctx, p, []dashboard.Check{failing}, dashboard.RunOptions{
		OnFailure: artifacts.ScreenshotOnFailure(store, d),
	})
	require.Len(t, results, 1)
	require.Equal(t, []string{filepath.Join(store.Root(), "run-rod", "forced.png")}, results[0].Artifacts)

	png, err := d.Screenshot(ctx)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}
