// Package roddash drives the dashboard with Rod over the Chrome DevTools
// Protocol, as a second browser implementation beside Playwright.
package roddash

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

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
	// NavigationTimeout bounds navigation and reloads. Default 30s.
	NavigationTimeout time.Duration
	// ActionTimeout bounds element lookups and clicks. Default 10s.
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

// Driver implements dashboard.Driver on a Rod page.
type Driver struct {
	page *rod.Page
	opts Options

	cacheDisabled bool
}

var _ dashboard.Driver = (*Driver)(nil)

// New wraps page. Closing the driver closes the page.
func New(page *rod.Page, opts Options) *Driver {
	opts.defaults()
	return &Driver{page: page, opts: opts}
}

func (d *Driver) Name() string                  { return "rod" }
func (d *Driver) Mode() dashboard.ContainerMode { return d.opts.Mode }

// Page returns the underlying Rod page.
func (d *Driver) Page() *rod.Page {
	return d.page
}

// container returns the document holding the app, bound to ctx. In iframe
// mode the frame is looked up again each time because reloads replace it.
func (d *Driver) container(ctx context.Context) (*rod.Page, error) {
	p := d.page.Context(ctx)
	if d.opts.Mode != dashboard.ContainerIframe {
		return p, nil
	}
	el, err := p.Element(dashboard.SelectorAppFrame)
	if err != nil {
		return nil, mapErr(ctx, "find app iframe", err)
	}
	frame, err := el.Frame()
	if err != nil {
		return nil, mapErr(ctx, "enter app iframe", err)
	}
	return frame.Context(ctx), nil
}

func (d *Driver) Goto(ctx context.Context) error {
	nctx, cancel := context.WithTimeout(ctx, d.opts.NavigationTimeout)
	defer cancel()

	target := logutil.RedactURL(d.opts.BaseURL)
	if err := d.page.Context(nctx).Navigate(d.opts.BaseURL); err != nil {
		return mapErr(ctx, "goto "+target, err)
	}
	if err := d.page.Context(nctx).WaitLoad(); err != nil {
		obs.From(ctx).With("pkg", "roddash").Warn("wait load timed out", "url", target, "error", err)
	}
	return nil
}

func (d *Driver) FetchSnapshot(ctx context.Context) (readiness.Snapshot, error) {
	actx, cancel := context.WithTimeout(ctx, d.opts.ActionTimeout)
	defer cancel()

	c, err := d.container(actx)
	if err != nil {
		return readiness.Snapshot{}, err
	}
	body, err := c.Element("body")
	if err != nil {
		return readiness.Snapshot{}, mapErr(ctx, "find body", err)
	}
	text, err := body.Text()
	if err != nil {
		return readiness.Snapshot{}, mapErr(ctx, "read body text", err)
	}

	snap := readiness.Snapshot{RenderedText: text}
	has, header, err := c.Has(dashboard.SelectorDashboardHeader)
	if err != nil {
		return readiness.Snapshot{}, mapErr(ctx, "check header", err)
	}
	if has {
		if snap.HeaderVisible, err = header.Visible(); err != nil {
			return readiness.Snapshot{}, mapErr(ctx, "check header", err)
		}
	}
	return snap, nil
}

// ForceReload reloads with the network cache disabled.
func (d *Driver) ForceReload(ctx context.Context) error {
	if !d.cacheDisabled {
		if err := (proto.NetworkSetCacheDisabled{CacheDisabled: true}).Call(d.page); err != nil {
			obs.From(ctx).With("pkg", "roddash").Warn("disable cache failed", "error", err)
		} else {
			d.cacheDisabled = true
		}
	}

	nctx, cancel := context.WithTimeout(ctx, d.opts.NavigationTimeout)
	defer cancel()
	if err := d.page.Context(nctx).Reload(); err != nil {
		return mapErr(ctx, "reload", err)
	}
	if err := d.page.Context(nctx).WaitLoad(); err != nil {
		return mapErr(ctx, "wait for reload", err)
	}
	return nil
}

func (d *Driver) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c, err := d.container(wctx)
	if err != nil {
		return err
	}
	el, err := c.Element(selector)
	if err != nil {
		return mapErr(ctx, "wait for "+selector, err)
	}
	if err := el.WaitVisible(); err != nil {
		return mapErr(ctx, "wait for "+selector+" visible", err)
	}
	return nil
}

func (d *Driver) InnerText(ctx context.Context, selector string) (string, error) {
	actx, cancel := context.WithTimeout(ctx, d.opts.ActionTimeout)
	defer cancel()

	c, err := d.container(actx)
	if err != nil {
		return "", err
	}
	el, err := c.Element(selector)
	if err != nil {
		return "", mapErr(ctx, "find "+selector, err)
	}
	text, err := el.Text()
	if err != nil {
		return "", mapErr(ctx, "inner text of "+selector, err)
	}
	return strings.TrimSpace(text), nil
}

func (d *Driver) TextContents(ctx context.Context, selector string) ([]string, error) {
	actx, cancel := context.WithTimeout(ctx, d.opts.ActionTimeout)
	defer cancel()

	c, err := d.container(actx)
	if err != nil {
		return nil, err
	}
	els, err := c.Elements(selector)
	if err != nil {
		return nil, mapErr(ctx, "find "+selector, err)
	}
	out := make([]string, 0, len(els))
	for _, el := range els {
		text, err := el.Text()
		if err != nil {
			return nil, mapErr(ctx, "text of "+selector, err)
		}
		if text = strings.TrimSpace(text); text != "" {
			out = append(out, text)
		}
	}
	return out, nil
}

func (d *Driver) Click(ctx context.Context, selector, hasText string) error {
	actx, cancel := context.WithTimeout(ctx, d.opts.ActionTimeout)
	defer cancel()

	c, err := d.container(actx)
	if err != nil {
		return err
	}
	var el *rod.Element
	if hasText == "" {
		el, err = c.Element(selector)
	} else {
		el, err = c.ElementR(selector, regexp.QuoteMeta(hasText))
	}
	if err != nil {
		return mapErr(ctx, fmt.Sprintf("find %s %q", selector, hasText), err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return mapErr(ctx, "click "+selector, err)
	}
	return nil
}

// Screenshot captures the full page as PNG.
func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	png, err := d.page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, mapErr(ctx, "screenshot", err)
	}
	return png, nil
}

func (d *Driver) Close() error {
	return d.page.Close()
}

// mapErr codes a Rod error. When the caller's ctx is done its error wins so
// the poller can tell cancellation from a slow page.
func mapErr(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var notFound *rod.ElementNotFoundError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return errs.Wrap(errs.DeadlineExceeded, op, err)
	case errors.As(err, &notFound):
		return errs.Wrap(errs.NotFound, op, err)
	case errors.Is(err, context.Canceled):
		return errs.Wrap(errs.Unavailable, op, err)
	default:
		return errs.Wrap(errs.Internal, op, err)
	}
}
