package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kuitang/stockdash-e2e/internal/errs"
	"github.com/kuitang/stockdash-e2e/internal/obs"
)

// Check is one scripted assertion against a loaded dashboard.
type Check struct {
	Name string
	Run  func(ctx context.Context, p *Page) error
}

// CheckResult records how a check went.
type CheckResult struct {
	Name     string
	Passed   bool
	Detail   string
	Duration time.Duration
	// Artifacts lists where failure evidence was stored.
	Artifacts []string
}

// Checks returns the industry data checks in suite order. Filtering runs
// last because it narrows the table the other checks read.
func Checks() []Check {
	return []Check{
		{Name: "headers and subheaders", Run: CheckHeaders},
		{Name: "industry table headers", Run: CheckTableHeaders},
		{Name: "major tickers and company names", Run: CheckTickersAndNames},
		{Name: "filter by sector", Run: CheckSectorFilter},
	}
}

// CheckHeaders verifies the title and the industry section heading.
func CheckHeaders(ctx context.Context, p *Page) error {
	if err := p.expectText(ctx, SelectorDashboardHeader, DashboardTitle); err != nil {
		return err
	}
	return p.expectText(ctx, SelectorIndustryHeader, IndustryDataTitle)
}

// CheckTableHeaders verifies every expected column header is present.
func CheckTableHeaders(ctx context.Context, p *Page) error {
	headers, err := p.TableHeaders(ctx)
	if err != nil {
		return errs.Wrap(errs.NotFound, "read column headers", err)
	}
	var missing []string
	for _, want := range ExpectedColumnHeaders {
		if !containsText(headers, want, true) {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return errs.New(errs.NotFound, fmt.Sprintf("missing column headers: %s", strings.Join(missing, ", ")))
	}
	return nil
}

// CheckTickersAndNames verifies the largest index members are listed.
func CheckTickersAndNames(ctx context.Context, p *Page) error {
	tickers, err := p.StockSymbols(ctx)
	if err != nil {
		return errs.Wrap(errs.NotFound, "read symbol cells", err)
	}
	names, err := p.CompanyNames(ctx)
	if err != nil {
		return errs.Wrap(errs.NotFound, "read name cells", err)
	}

	var missing []string
	for _, want := range ExpectedTickers {
		if !containsText(tickers, want, false) {
			missing = append(missing, want)
		}
	}
	for _, want := range ExpectedCompanyNames {
		if !containsText(names, want, false) {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return errs.New(errs.NotFound, fmt.Sprintf("missing from table: %s", strings.Join(missing, ", ")))
	}
	return nil
}

// CheckSectorFilter filters to Health Care and expects Johnson & Johnson.
func CheckSectorFilter(ctx context.Context, p *Page) error {
	if err := p.FilterBySector(ctx, FilterSector); err != nil {
		return err
	}
	return p.WaitForCompanyName(ctx, FilterSectorCompany)
}

// RunOptions hooks into RunChecks.
type RunOptions struct {
	// OnFailure is called after a check fails and may return artifact locations.
	OnFailure func(ctx context.Context, check Check, err error) []string
}

// RunChecks runs every check in order. A failing check does not stop the
// ones after it.
func RunChecks(ctx context.Context, p *Page, checks []Check, opts RunOptions) []CheckResult {
	results := make([]CheckResult, 0, len(checks))
	for _, c := range checks {
		cctx := obs.WithCheck(ctx, c.Name)
		start := time.Now()
		err := c.Run(cctx, p)
		res := CheckResult{
			Name:     c.Name,
			Passed:   err == nil,
			Duration: time.Since(start),
		}
		if err != nil {
			res.Detail = err.Error()
			obs.From(cctx).Warn("check failed", "error", err, "code", errs.CodeOf(err))
			if opts.OnFailure != nil {
				res.Artifacts = opts.OnFailure(cctx, c, err)
			}
		} else {
			obs.From(cctx).Info("check passed", "dur_ms", res.Duration.Milliseconds())
		}
		results = append(results, res)
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []CheckResult) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
