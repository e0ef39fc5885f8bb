// Package rodbrowser runs the dashboard checks through Rod against the local
// fixture. Set ROD_REMOTE_URL to use an already running Chrome; otherwise the
// launcher starts one. Tests skip when no browser can be started.
package rodbrowser

import (
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/kuitang/stockdash-e2e/internal/dashboard"
	"github.com/kuitang/stockdash-e2e/internal/driver/roddash"
	"github.com/kuitang/stockdash-e2e/internal/fixture"
	"github.com/kuitang/stockdash-e2e/internal/readiness"
	"github.com/kuitang/stockdash-e2e/internal/readiness/readinesstest"
)

const rodMaxTimeout = 5 * time.Second

var browserMu sync.Mutex
var sharedBrowser *roddash.Browser

type RodTestEnv struct {
	Fixture *fixture.Server
	BaseURL string
	Mode    dashboard.ContainerMode

	browser *roddash.Browser
}

func SetupRodTestEnv(t *testing.T, mode dashboard.ContainerMode, coldStartLoads int) *RodTestEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping rod test in short mode")
	}

	b := getOrLaunchBrowser(t)
	fx := fixture.New(fixture.Options{Mode: mode, ColdStartLoads: coldStartLoads})
	srv := httptest.NewServer(fx)
	t.Cleanup(srv.Close)
	return &RodTestEnv{Fixture: fx, BaseURL: srv.URL, Mode: mode, browser: b}
}

func getOrLaunchBrowser(t *testing.T) *roddash.Browser {
	t.Helper()

	browserMu.Lock()
	defer browserMu.Unlock()

	if sharedBrowser != nil {
		return sharedBrowser
	}
	b, err := roddash.Launch(roddash.LaunchOptions{
		Headless:  true,
		Bin:       os.Getenv("BROWSER_PATH"),
		RemoteURL: os.Getenv("ROD_REMOTE_URL"),
		Stealth:   true,
	})
	if err != nil {
		t.Skip("Chrome not available:", err)
	}
	sharedBrowser = b
	return sharedBrowser
}

func TestMain(m *testing.M) {
	code := m.Run()
	browserMu.Lock()
	if sharedBrowser != nil {
		_ = sharedBrowser.Close()
	}
	browserMu.Unlock()
	os.Exit(code)
}

func (env *RodTestEnv) NewDriver(t *testing.T) *roddash.Driver {
	t.Helper()

	d, err := env.browser.NewDriver(roddash.Options{
		BaseURL:           env.BaseURL,
		Mode:              env.Mode,
		NavigationTimeout: rodMaxTimeout,
		ActionTimeout:     rodMaxTimeout,
	})
	if err != nil {
		t.Fatalf("could not open tab: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func (env *RodTestEnv) NewPage(t *testing.T, maxAttempts int) (*dashboard.Page, *roddash.Driver) {
	t.Helper()

	d := env.NewDriver(t)
	return dashboard.NewPage(d, dashboard.PageOptions{
		LoadTimeout:   rodMaxTimeout,
		AssertTimeout: rodMaxTimeout,
		SettleDelay:   100 * time.Millisecond,
		Readiness: readiness.Options{
			MaxAttempts: maxAttempts,
			Interval:    time.Second,
			Sleep:       (&readinesstest.RecordingSleeper{}).Sleep,
		},
	}), d
}
