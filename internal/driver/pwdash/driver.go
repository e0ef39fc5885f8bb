// Package pwdash drives the dashboard with Playwright.
package pwdash

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/stockdash-e2e/internal/dashboard"
	"github.com/kuitang/stockdash-e2e/internal/errs"
	"github.com/kuitang/stockdash-e2e/internal/logutil"
	"github.com/kuitang/stockdash-e2e/internal/obs"
	"github.com/kuitang/stockdash-e2e/internal/readiness"
)

// Options configures a Driver.
type Options struct {
	BaseURL string
	Mode    dashboard.ContainerMode
	// NavigationTimeout bounds Goto and reloads. Default 30s.
	NavigationTimeout time.Duration
	// ActionTimeout bounds reads and clicks. Default 10s.
	ActionTimeout time.Duration
}

func (o *Options) defaults() {
	if o.Mode == "" {
		o.Mode = dashboard.ContainerRoot
	}
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = 30 * time.Second
	}
	if o.ActionTimeout <= 0 {
		o.ActionTimeout = 10 * time.Second
	}
}

// Driver implements dashboard.Driver on a Playwright page.
type Driver struct {
	page playwright.Page
	opts Options
	// owned is closed with the driver when the driver created it.
	owned playwright.BrowserContext

	cdpOnce sync.Once
	cdp     playwright.CDPSession
}

var _ dashboard.Driver = (*Driver)(nil)

// New wraps an existing page. The caller keeps ownership of its context.
func New(page playwright.Page, opts Options) *Driver {
	opts.defaults()
	page.SetDefaultNavigationTimeout(float64(opts.NavigationTimeout.Milliseconds()))
	return &Driver{page: page, opts: opts}
}

func (d *Driver) Name() string                  { return "playwright" }
func (d *Driver) Mode() dashboard.ContainerMode { return d.opts.Mode }

// Page returns the underlying Playwright page.
func (d *Driver) Page() playwright.Page {
	return d.page
}

// locator resolves selector inside the app container.
func (d *Driver) locator(selector string) playwright.Locator {
	if d.opts.Mode == dashboard.ContainerIframe {
		return d.page.FrameLocator(dashboard.SelectorAppFrame).Locator(selector)
	}
	return d.page.Locator(selector)
}

func (d *Driver) Goto(ctx context.Context) error {
	timeout, err := timeoutMS(ctx, d.opts.NavigationTimeout)
	if err != nil {
		return err
	}
	resp, err := d.page.Goto(d.opts.BaseURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   timeout,
	})
	if err != nil {
		return mapErr(fmt.Sprintf("goto %s", logutil.RedactURL(d.opts.BaseURL)), err)
	}
	if resp != nil && resp.Status() >= 400 {
		return errs.New(errs.Unavailable, fmt.Sprintf("goto %s: status %d", logutil.RedactURL(d.opts.BaseURL), resp.Status()))
	}
	return nil
}

// FetchSnapshot reads the container's rendered text and header visibility.
func (d *Driver) FetchSnapshot(ctx context.Context) (readiness.Snapshot, error) {
	timeout, err := timeoutMS(ctx, d.opts.ActionTimeout)
	if err != nil {
		return readiness.Snapshot{}, err
	}
	text, err := d.locator("body").InnerText(playwright.LocatorInnerTextOptions{Timeout: timeout})
	if err != nil {
		return readiness.Snapshot{}, mapErr("read body text", err)
	}
	visible, err := d.locator(dashboard.SelectorDashboardHeader).First().IsVisible()
	if err != nil {
		return readiness.Snapshot{}, mapErr("check header", err)
	}
	return readiness.Snapshot{RenderedText: text, HeaderVisible: visible}, nil
}

// ForceReload reloads the page with the HTTP cache disabled.
func (d *Driver) ForceReload(ctx context.Context) error {
	d.disableCache(ctx)
	timeout, err := timeoutMS(ctx, d.opts.NavigationTimeout)
	if err != nil {
		return err
	}
	if _, err := d.page.Reload(playwright.PageReloadOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   timeout,
	}); err != nil {
		return mapErr("reload", err)
	}
	return nil
}

// disableCache turns off the browser cache through CDP. Only Chromium
// speaks CDP; elsewhere reloads fall back to the default cache policy.
func (d *Driver) disableCache(ctx context.Context) {
	d.cdpOnce.Do(func() {
		log := obs.From(ctx).With("pkg", "pwdash")
		session, err := d.page.Context().NewCDPSession(d.page)
		if err != nil {
			log.Warn("cdp session unavailable; reloads may hit cache", "error", err)
			return
		}
		if _, err := session.Send("Network.setCacheDisabled", map[string]interface{}{"cacheDisabled": true}); err != nil {
			log.Warn("disable cache failed", "error", err)
			return
		}
		d.cdp = session
	})
}

func (d *Driver) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	ms, err := timeoutMS(ctx, timeout)
	if err != nil {
		return err
	}
	if err := d.locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: ms,
	}); err != nil {
		return mapErr("wait for "+selector, err)
	}
	return nil
}

func (d *Driver) InnerText(ctx context.Context, selector string) (string, error) {
	timeout, err := timeoutMS(ctx, d.opts.ActionTimeout)
	if err != nil {
		return "", err
	}
	text, err := d.locator(selector).First().InnerText(playwright.LocatorInnerTextOptions{Timeout: timeout})
	if err != nil {
		return "", mapErr("inner text of "+selector, err)
	}
	return strings.TrimSpace(text), nil
}

func (d *Driver) TextContents(ctx context.Context, selector string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all, err := d.locator(selector).AllTextContents()
	if err != nil {
		return nil, mapErr("text of "+selector, err)
	}
	out := make([]string, 0, len(all))
	for _, t := range all {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out, nil
}

func (d *Driver) Click(ctx context.Context, selector, hasText string) error {
	timeout, err := timeoutMS(ctx, d.opts.ActionTimeout)
	if err != nil {
		return err
	}
	loc := d.locator(selector)
	if hasText != "" {
		loc = loc.Filter(playwright.LocatorFilterOptions{HasText: hasText})
	}
	if err := loc.First().Click(playwright.LocatorClickOptions{Timeout: timeout}); err != nil {
		return mapErr("click "+selector, err)
	}
	return nil
}

// Screenshot captures the full page as PNG.
func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	png, err := d.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
		Type:     playwright.ScreenshotTypePng,
	})
	if err != nil {
		return nil, mapErr("screenshot", err)
	}
	return png, nil
}

// Close closes the page, and its context when the driver created it.
func (d *Driver) Close() error {
	if d.cdp != nil {
		_ = d.cdp.Detach()
	}
	if d.owned != nil {
		return d.owned.Close()
	}
	return d.page.Close()
}

// timeoutMS returns the smaller of d and the time left on ctx, in the
// milliseconds Playwright expects.
func timeoutMS(ctx context.Context, d time.Duration) (*float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < d {
			d = left
		}
	}
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return playwright.Float(float64(d.Milliseconds())), nil
}

func mapErr(op string, err error) error {
	switch {
	case errors.Is(err, playwright.ErrTimeout):
		return errs.Wrap(errs.DeadlineExceeded, op, err)
	case errors.Is(err, playwright.ErrTargetClosed):
		return errs.Wrap(errs.Unavailable, op, err)
	default:
		return errs.Wrap(errs.Internal, op, err)
	}
}
