package roddash

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/kuitang/stockdash-e2e/internal/obs"
)

// LaunchOptions configures the Chrome instance.
type LaunchOptions struct {
	Headless bool
	// Bin overrides the Chrome binary; empty lets the launcher find or fetch one.
	Bin string
	// RemoteURL connects to an already running Chrome instead of launching.
	RemoteURL string
	// Stealth patches pages against headless detection.
	Stealth        bool
	ViewportWidth  int
	ViewportHeight int
	Logger         *slog.Logger
}

func (o *LaunchOptions) defaults() {
	if o.ViewportWidth <= 0 || o.ViewportHeight <= 0 {
		o.ViewportWidth, o.ViewportHeight = 1920, 1080
	}
	if o.Logger == nil {
		o.Logger = obs.Pkg("roddash")
	}
}

// Browser is a connected Chrome shared by many drivers.
type Browser struct {
	opts    LaunchOptions
	browser *rod.Browser
	lnch    *launcher.Launcher

	closeOnce sync.Once
	closeErr  error
}

// Launch starts Chrome (or connects to RemoteURL) and connects Rod to it.
func Launch(opts LaunchOptions) (*Browser, error) {
	opts.defaults()
	log := opts.Logger

	var wsURL string
	var l *launcher.Launcher
	if opts.RemoteURL != "" {
		wsURL = opts.RemoteURL
		log.Info("connecting to remote chrome", "url", wsURL)
	} else {
		l = launcher.New().Headless(opts.Headless)
		if opts.Bin != "" {
			l = l.Bin(opts.Bin)
		}
		// Hide navigator.webdriver.
		l = l.Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		wsURL = u
		log.Info("launched local chrome", "url", wsURL, "headless", opts.Headless)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		if l != nil {
			l.Kill()
		}
		return nil, fmt.Errorf("connect chrome: %w", err)
	}
	return &Browser{opts: opts, browser: b, lnch: l}, nil
}

// NewDriver opens a tab sized to the configured viewport.
func (b *Browser) NewDriver(opts Options) (*Driver, error) {
	var page *rod.Page
	var err error
	if b.opts.Stealth {
		page, err = stealth.Page(b.browser)
	} else {
		page, err = b.browser.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("create tab: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             b.opts.ViewportWidth,
		Height:            b.opts.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("set viewport: %w", err)
	}
	return New(page, opts), nil
}

// Close disconnects and, when this process launched Chrome, stops it.
func (b *Browser) Close() error {
	b.closeOnce.Do(func() {
		b.closeErr = b.browser.Close()
		if b.lnch != nil {
			b.lnch.Cleanup()
		}
	})
	return b.closeErr
}
