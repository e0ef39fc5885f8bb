package pwdash

import (
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// LaunchOptions configures the Chromium instance.
type LaunchOptions struct {
	Headless bool
	// ExecutablePath overrides the bundled Chromium.
	ExecutablePath string
	ViewportWidth  int
	ViewportHeight int
}

// Browser is a running Playwright Chromium shared by many drivers.
type Browser struct {
	opts    LaunchOptions
	pw      *playwright.Playwright
	browser playwright.Browser

	closeOnce sync.Once
	closeErr  error
}

// Launch starts Playwright and Chromium. The driver binaries must already
// be installed (go run github.com/playwright-community/playwright-go/cmd/playwright install chromium).
func Launch(opts LaunchOptions) (*Browser, error) {
	if opts.ViewportWidth <= 0 || opts.ViewportHeight <= 0 {
		opts.ViewportWidth, opts.ViewportHeight = 1920, 1080
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	}
	if opts.ExecutablePath != "" {
		launch.ExecutablePath = playwright.String(opts.ExecutablePath)
	}
	browser, err := pw.Chromium.Launch(launch)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	return &Browser{opts: opts, pw: pw, browser: browser}, nil
}

// NewDriver opens a fresh context and page sized to the configured viewport.
func (b *Browser) NewDriver(opts Options) (*Driver, error) {
	bctx, err := b.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: b.opts.ViewportWidth, Height: b.opts.ViewportHeight},
	})
	if err != nil {
		return nil, fmt.Errorf("new browser context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}
	d := New(page, opts)
	d.owned = bctx
	return d, nil
}

// Close stops Chromium and Playwright.
func (b *Browser) Close() error {
	b.closeOnce.Do(func() {
		if err := b.browser.Close(); err != nil {
			b.closeErr = err
		}
		if err := b.pw.Stop(); err != nil && b.closeErr == nil {
			b.closeErr = err
		}
	})
	return b.closeErr
}
