// Package browser runs the dashboard checks in headless Chromium through
// Playwright, against the local fixture in both container modes.
// Tests skip when the Playwright driver or Chromium is not installed.
package browser

import (
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/stockdash-e2e/internal/dashboard"
	"github.com/kuitang/stockdash-e2e/internal/driver/pwdash"
	"github.com/kuitang/stockdash-e2e/internal/fixture"
	"github.com/kuitang/stockdash-e2e/internal/readiness"
	"github.com/kuitang/stockdash-e2e/internal/readiness/readinesstest"
)

const (
	// Never introduce a larger timeout value anywhere in tests/browser.
	browserMaxTimeoutMS = 5000
	browserMaxTimeout   = 5 * time.Second
)

var browserMu sync.Mutex
var sharedBrowser *pwdash.Browser

// BrowserTestEnv is one fixture server plus the shared Chromium.
type BrowserTestEnv struct {
	Fixture *fixture.Server
	Server  *httptest.Server
	BaseURL string
	Mode    dashboard.ContainerMode

	browser *pwdash.Browser
}

// SetupBrowserTestEnv starts a fixture that shows the starting screen for
// coldStartLoads loads. It skips the test in -short mode or without Chromium.
func SetupBrowserTestEnv(t *testing.T, mode dashboard.ContainerMode, coldStartLoads int) *BrowserTestEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping browser test in short mode")
	}

	b := getOrLaunchBrowser(t)
	fx := fixture.New(fixture.Options{Mode: mode, ColdStartLoads: coldStartLoads})
	srv := httptest.NewServer(fx)
	t.Cleanup(srv.Close)

	return &BrowserTestEnv{
		Fixture: fx,
		Server:  srv,
		BaseURL: srv.URL,
		Mode:    mode,
		browser: b,
	}
}

func getOrLaunchBrowser(t *testing.T) *pwdash.Browser {
	t.Helper()

	browserMu.Lock()
	defer browserMu.Unlock()

	if sharedBrowser != nil {
		return sharedBrowser
	}
	b, err := pwdash.Launch(pwdash.LaunchOptions{Headless: true})
	if err != nil {
		t.Skip("Playwright not available:", err)
	}
	sharedBrowser = b
	return sharedBrowser
}

func cleanupSharedBrowser() {
	browserMu.Lock()
	defer browserMu.Unlock()
	if sharedBrowser != nil {
		_ = sharedBrowser.Close()
		sharedBrowser = nil
	}
}

func TestMain(m *testing.M) {
	code := m.Run()
	cleanupSharedBrowser()
	os.Exit(code)
}

// NewDriver opens a fresh context and page on the fixture.
func (env *BrowserTestEnv) NewDriver(t *testing.T) *pwdash.Driver {
	t.Helper()

	d, err := env.browser.NewDriver(pwdash.Options{
		BaseURL:           env.BaseURL,
		Mode:              env.Mode,
		NavigationTimeout: browserMaxTimeout,
		ActionTimeout:     browserMaxTimeout,
	})
	if err != nil {
		t.Fatalf("could not create driver: %v", err)
	}
	d.Page().SetDefaultTimeout(browserMaxTimeoutMS)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// NewPage wraps a fresh driver in the page object. Readiness sleeps are
// recorded instead of slept.
func (env *BrowserTestEnv) NewPage(t *testing.T, maxAttempts int) (*dashboard.Page, *pwdash.Driver) {
	t.Helper()

	d := env.NewDriver(t)
	p := dashboard.NewPage(d, dashboard.PageOptions{
		LoadTimeout:   browserMaxTimeout,
		AssertTimeout: browserMaxTimeout,
		SettleDelay:   100 * time.Millisecond,
		Readiness: readiness.Options{
			MaxAttempts: maxAttempts,
			Interval:    time.Second,
			Sleep:       (&readinesstest.RecordingSleeper{}).Sleep,
		},
	})
	return p, d
}

// WaitForSelector waits for an element to be visible and returns its locator.
func WaitForSelector(t *testing.T, page playwright.Page, selector string) playwright.Locator {
	t.Helper()

	first := page.Locator(selector).First()
	err := first.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(browserMaxTimeoutMS),
	})
	if err != nil {
		content, _ := page.Content()
		if len(content) > 500 {
			content = content[:500] + "..."
		}
		t.Logf("Current URL: %s", page.URL())
		t.Logf("Content preview: %s", content)
		t.Fatalf("Failed to wait for selector %s: %v", selector, err)
	}
	return first
}
