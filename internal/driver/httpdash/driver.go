// Package httpdash is a browserless dashboard driver. It fetches the served
// HTML and queries it with goquery, which is enough to watch a cold start and
// read the server-rendered table but not to run the app's scripts.
package httpdash

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/kuitang/stockdash-e2e/internal/dashboard"
	"github.com/kuitang/stockdash-e2e/internal/errs"
	"github.com/kuitang/stockdash-e2e/internal/logutil"
	"github.com/kuitang/stockdash-e2e/internal/obs"
	"github.com/kuitang/stockdash-e2e/internal/readiness"
	"github.com/kuitang/stockdash-e2e/internal/urlutil"
)

const maxPageBytes = 8 << 20

// Options configures a Driver.
type Options struct {
	BaseURL string
	Mode    dashboard.ContainerMode
	// Timeout bounds each HTTP request. Default 30s.
	Timeout time.Duration
	// Client overrides the HTTP client.
	Client *http.Client
}

// Driver implements dashboard.Driver over plain HTTP.
type Driver struct {
	opts   Options
	client *http.Client

	mu      sync.Mutex
	doc     *goquery.Document
	pageURL string
	loads   int
}

var _ dashboard.Driver = (*Driver)(nil)

// New validates opts and returns a driver. Nothing is fetched until Goto.
func New(opts Options) (*Driver, error) {
	if err := urlutil.ValidateBaseURL(opts.BaseURL); err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, "base url", err)
	}
	if opts.Mode == "" {
		opts.Mode = dashboard.ContainerRoot
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Driver{opts: opts, client: client}, nil
}

func (d *Driver) Name() string                  { return "http" }
func (d *Driver) Mode() dashboard.ContainerMode { return d.opts.Mode }

// Loads returns how many times the app document has been fetched.
func (d *Driver) Loads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loads
}

// PageURL returns the URL of the app document last fetched.
func (d *Driver) PageURL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pageURL
}

// Goto fetches the dashboard.
func (d *Driver) Goto(ctx context.Context) error {
	return d.load(ctx)
}

// ForceReload refetches the dashboard, bypassing caches.
func (d *Driver) ForceReload(ctx context.Context) error {
	return d.load(ctx)
}

// FetchSnapshot reads the last fetched document.
func (d *Driver) FetchSnapshot(ctx context.Context) (readiness.Snapshot, error) {
	doc, err := d.current(ctx)
	if err != nil {
		return readiness.Snapshot{}, err
	}
	return readiness.Snapshot{
		RenderedText:  strings.TrimSpace(doc.Find("body").Text()),
		HeaderVisible: doc.Find(dashboard.SelectorDashboardHeader).Length() > 0,
	}, nil
}

// WaitVisible reports whether selector is in the document. A fetched
// document never changes, so there is nothing to wait for.
func (d *Driver) WaitVisible(ctx context.Context, selector string, _ time.Duration) error {
	doc, err := d.current(ctx)
	if err != nil {
		return err
	}
	if doc.Find(selector).Length() == 0 {
		return errs.New(errs.NotFound, fmt.Sprintf("%s not in document", selector))
	}
	return nil
}

func (d *Driver) InnerText(ctx context.Context, selector string) (string, error) {
	doc, err := d.current(ctx)
	if err != nil {
		return "", err
	}
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", errs.New(errs.NotFound, fmt.Sprintf("no element matches %s", selector))
	}
	return strings.TrimSpace(sel.Text()), nil
}

func (d *Driver) TextContents(ctx context.Context, selector string) ([]string, error) {
	doc, err := d.current(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out, nil
}

// Click needs a script-running browser.
func (d *Driver) Click(context.Context, string, string) error {
	return errs.New(errs.FailedPrecondition, "http driver cannot click; use the playwright or rod driver")
}

// Screenshot needs a rendering browser.
func (d *Driver) Screenshot(context.Context) ([]byte, error) {
	return nil, errs.New(errs.FailedPrecondition, "http driver cannot take screenshots")
}

func (d *Driver) Close() error {
	d.client.CloseIdleConnections()
	return nil
}

func (d *Driver) current(ctx context.Context) (*goquery.Document, error) {
	d.mu.Lock()
	doc := d.doc
	d.mu.Unlock()
	if doc != nil {
		return doc, nil
	}
	if err := d.load(ctx); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc, nil
}

// load fetches the base URL and, in iframe mode, the embedded app document.
func (d *Driver) load(ctx context.Context) error {
	log := obs.From(ctx).With("pkg", "httpdash")

	doc, err := d.fetch(ctx, d.opts.BaseURL)
	if err != nil {
		return err
	}
	pageURL := d.opts.BaseURL

	if d.opts.Mode == dashboard.ContainerIframe {
		src, ok := doc.Find(dashboard.SelectorAppFrame).First().Attr("src")
		if !ok || strings.TrimSpace(src) == "" {
			return errs.New(errs.NotFound, fmt.Sprintf("no %s iframe on %s", dashboard.SelectorAppFrame, logutil.RedactURL(d.opts.BaseURL)))
		}
		frameURL, err := urlutil.Resolve(d.opts.BaseURL, src)
		if err != nil {
			return errs.Wrap(errs.InvalidArgument, "resolve app iframe", err)
		}
		if doc, err = d.fetch(ctx, frameURL); err != nil {
			return err
		}
		pageURL = frameURL
	}

	d.mu.Lock()
	d.doc = doc
	d.pageURL = pageURL
	d.loads++
	loads := d.loads
	d.mu.Unlock()

	log.Debug("dashboard fetched", "url", logutil.RedactURL(pageURL), "loads", loads)
	return nil
}

func (d *Driver) fetch(ctx context.Context, target string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, "build request", err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Accept", "text/html")
	req.Header.Set("User-Agent", "dashprobe")
	if id := obs.CorrelationFromContext(ctx).RunID; id != "" {
		req.Header.Set("X-Run-Id", id)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errs.Wrap(errs.Unavailable, "fetch "+logutil.RedactURL(target), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, errs.New(errs.Unavailable, fmt.Sprintf("fetch %s: status %d", logutil.RedactURL(target), resp.StatusCode))
	}
	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "parse html", err)
	}
	return doc, nil
}
