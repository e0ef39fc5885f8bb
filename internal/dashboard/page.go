package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kuitang/stockdash-e2e/internal/errs"
	"github.com/kuitang/stockdash-e2e/internal/obs"
	"github.com/kuitang/stockdash-e2e/internal/readiness"
)

// Driver is the browser-automation surface a Page needs. Selectors are
// resolved inside the driver's container (page root or app iframe).
type Driver interface {
	readiness.Source

	// Name identifies the driver in logs and reports.
	Name() string
	Mode() ContainerMode
	// Goto loads the dashboard's base URL.
	Goto(ctx context.Context) error
	// WaitVisible blocks until the first match of selector is visible.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// InnerText returns the rendered text of the first match.
	InnerText(ctx context.Context, selector string) (string, error)
	// TextContents returns the trimmed text of every match, skipping empty ones.
	TextContents(ctx context.Context, selector string) ([]string, error)
	// Click clicks the first match of selector whose text contains hasText
	// (any match when hasText is empty).
	Click(ctx context.Context, selector, hasText string) error
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// PageOptions tunes the timeouts of a Page.
type PageOptions struct {
	// LoadTimeout bounds the first wait for the dashboard header.
	LoadTimeout time.Duration
	// AssertTimeout bounds waits made by assertions.
	AssertTimeout time.Duration
	// SettleDelay is how long to let the table redraw after filtering.
	SettleDelay time.Duration
	Readiness   readiness.Options
}

func (o *PageOptions) defaults() {
	if o.LoadTimeout <= 0 {
		o.LoadTimeout = 3 * time.Minute
	}
	if o.AssertTimeout <= 0 {
		o.AssertTimeout = 10 * time.Second
	}
	if o.SettleDelay < 0 {
		o.SettleDelay = 0
	}
}

// Page is the page object for the stock dashboard.
type Page struct {
	d      Driver
	opts   PageOptions
	poller *readiness.Poller
}

// NewPage wraps a driver.
func NewPage(d Driver, opts PageOptions) *Page {
	opts.defaults()
	return &Page{
		d:      d,
		opts:   opts,
		poller: readiness.New(opts.Readiness),
	}
}

// Driver returns the underlying driver.
func (p *Page) Driver() Driver {
	return p.d
}

func (p *Page) log(ctx context.Context) *slog.Logger {
	return obs.From(ctx).With("pkg", "dashboard")
}

// Goto navigates to the dashboard.
func (p *Page) Goto(ctx context.Context) error {
	if err := p.d.Goto(ctx); err != nil {
		return errs.Wrap(errs.Unavailable, "open dashboard", err)
	}
	return nil
}

// WaitForAppToLoad waits out the cold start, then requires the industry
// table to be on screen. The readiness outcome is returned even on error.
func (p *Page) WaitForAppToLoad(ctx context.Context) (readiness.Outcome, error) {
	log := p.log(ctx)
	if err := p.d.WaitVisible(ctx, SelectorDashboardHeader, p.opts.LoadTimeout); err != nil {
		// The poller treats a missing header as transient; keep going.
		log.Warn("dashboard header not visible before readiness wait", "error", err)
	}

	outcome, err := p.poller.Wait(ctx, p.d)
	log.Info("readiness wait finished",
		"inspections", outcome.Inspections,
		"reloads", outcome.Reloads,
		"anomalies", outcome.Anomalies,
		"ready", outcome.Ready,
	)
	if err != nil {
		return outcome, errs.Wrap(errs.DeadlineExceeded, "readiness wait interrupted", err)
	}

	if err := p.d.WaitVisible(ctx, SelectorIndustryHeader, p.opts.AssertTimeout); err != nil {
		return outcome, errs.Wrap(errs.NotFound, "industry data header not visible", err)
	}
	if err := p.expectText(ctx, SelectorIndustryHeader, IndustryDataTitle); err != nil {
		return outcome, err
	}
	if err := p.expectText(ctx, SelectorColumnHeader, FirstColumnHeader); err != nil {
		return outcome, err
	}
	return outcome, nil
}

func (p *Page) expectText(ctx context.Context, selector, want string) error {
	got, err := p.d.InnerText(ctx, selector)
	if err != nil {
		return errs.Wrap(errs.NotFound, fmt.Sprintf("read %s", selector), err)
	}
	if !strings.Contains(got, want) {
		return errs.New(errs.NotFound, fmt.Sprintf("%s: want text containing %q, got %q", selector, want, got))
	}
	return nil
}

// DashboardHeaderText returns the page title heading.
func (p *Page) DashboardHeaderText(ctx context.Context) (string, error) {
	return p.d.InnerText(ctx, SelectorDashboardHeader)
}

// IndustryHeaderText returns the industry section heading.
func (p *Page) IndustryHeaderText(ctx context.Context) (string, error) {
	return p.d.InnerText(ctx, SelectorIndustryHeader)
}

// FilterBySector picks sector in the filter dropdown and lets the table settle.
func (p *Page) FilterBySector(ctx context.Context, sector string) error {
	if err := p.d.Click(ctx, SelectorSectorFilter, ""); err != nil {
		return fmt.Errorf("open sector filter: %w", err)
	}
	if err := p.d.Click(ctx, SelectorSectorOption, sector); err != nil {
		return fmt.Errorf("choose sector %q: %w", sector, err)
	}
	if p.opts.SettleDelay > 0 {
		if err := readiness.SleepContext(ctx, p.opts.SettleDelay); err != nil {
			return err
		}
	}
	return nil
}

// TableHeaders returns the industry table column headers.
func (p *Page) TableHeaders(ctx context.Context) ([]string, error) {
	return p.d.TextContents(ctx, SelectorColumnHeader)
}

// StockSymbols returns the ticker column.
func (p *Page) StockSymbols(ctx context.Context) ([]string, error) {
	return p.d.TextContents(ctx, SelectorSymbolCells)
}

// CompanyNames returns the company name column.
func (p *Page) CompanyNames(ctx context.Context) ([]string, error) {
	return p.d.TextContents(ctx, SelectorNameCells)
}

// WaitForCompanyName polls the name column until name shows up or the assert timeout passes.
func (p *Page) WaitForCompanyName(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, p.opts.AssertTimeout)
	defer cancel()

	var last []string
	for {
		names, err := p.CompanyNames(ctx)
		if err == nil && containsText(names, name, false) {
			return nil
		}
		if err == nil {
			last = names
		}
		if err := readiness.SleepContext(ctx, 250*time.Millisecond); err != nil {
			return errs.Wrap(errs.NotFound, fmt.Sprintf("company %q not in table (saw %d names)", name, len(last)), err)
		}
	}
}

// containsText reports whether want is one of items. With partial set, an
// item containing want also counts.
func containsText(items []string, want string, partial bool) bool {
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == want || (partial && strings.Contains(it, want)) {
			return true
		}
	}
	return false
}
