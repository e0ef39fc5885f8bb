// Package report turns a run's check results into a markdown summary, a
// standalone HTML page, and a colored line-per-check console report.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"

	"github.com/kuitang/stockdash-e2e/internal/dashboard"
	"github.com/kuitang/stockdash-e2e/internal/logutil"
	"github.com/kuitang/stockdash-e2e/internal/readiness"
)

// RunSummary is everything a report shows about one run.
type RunSummary struct {
	RunID     string
	BaseURL   string
	Driver    string
	Container dashboard.ContainerMode
	Started   time.Time
	Duration  time.Duration
	Readiness readiness.Outcome
	// LoadError is set when the dashboard never finished loading.
	LoadError string
	Results   []dashboard.CheckResult
}

// Passed reports whether the dashboard loaded and every check passed.
func (s RunSummary) Passed() bool {
	return s.LoadError == "" && dashboard.AllPassed(s.Results)
}

// Counts returns the number of passed and failed checks.
func (s RunSummary) Counts() (passed, failed int) {
	for _, r := range s.Results {
		if r.Passed {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}

// Markdown renders the summary as GitHub-flavored markdown.
func Markdown(s RunSummary) string {
	var b strings.Builder
	status := "PASSED"
	if !s.Passed() {
		status = "FAILED"
	}
	passed, failed := s.Counts()

	fmt.Fprintf(&b, "# Dashboard run %s: %s\n\n", s.RunID, status)
	fmt.Fprintf(&b, "- Target: %s (%s)\n", logutil.RedactURL(s.BaseURL), s.Container)
	fmt.Fprintf(&b, "- Driver: %s\n", s.Driver)
	if !s.Started.IsZero() {
		fmt.Fprintf(&b, "- Started: %s\n", s.Started.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "- Duration: %s\n", s.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "- Checks: %d passed, %d failed\n\n", passed, failed)

	b.WriteString("## Readiness\n\n")
	fmt.Fprintf(&b, "%s after %d inspections and %d reloads", readyWord(s.Readiness.Ready), s.Readiness.Inspections, s.Readiness.Reloads)
	if s.Readiness.Anomalies > 0 {
		fmt.Fprintf(&b, " (%d anomalies)", s.Readiness.Anomalies)
	}
	b.WriteString(".\n\n")
	if s.LoadError != "" {
		fmt.Fprintf(&b, "**Load failed:** %s\n\n", escapeCell(s.LoadError))
	}

	if len(s.Results) > 0 {
		b.WriteString("## Checks\n\n")
		b.WriteString("| Check | Result | Duration | Detail |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, r := range s.Results {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				escapeCell(r.Name), resultWord(r.Passed), r.Duration.Round(time.Millisecond), escapeCell(r.Detail))
		}
		b.WriteString("\n")
	}

	var links []string
	for _, r := range s.Results {
		for _, a := range r.Artifacts {
			links = append(links, fmt.Sprintf("- %s: %s", r.Name, artifactLink(a)))
		}
	}
	if len(links) > 0 {
		b.WriteString("## Artifacts\n\n")
		b.WriteString(strings.Join(links, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

// HTML renders the summary as a complete, sanitized HTML document.
func HTML(s RunSummary) []byte {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock
	doc := parser.NewWithExtensions(extensions).Parse([]byte(Markdown(s)))

	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank,
	})
	body := bluemonday.UGCPolicy().SanitizeBytes(markdown.Render(doc, renderer))

	status := "passed"
	if !s.Passed() {
		status = "failed"
	}
	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, pageData{
		Title:   fmt.Sprintf("Dashboard run %s", s.RunID),
		Status:  status,
		Content: template.HTML(body),
	})
	if err != nil {
		return []byte("<!DOCTYPE html><html><head><title>Error</title></head><body><h1>Error rendering report</h1></body></html>")
	}
	return buf.Bytes()
}

// WriteHTML writes the HTML report to dest, creating parent directories.
func WriteHTML(dest string, s RunSummary) error {
	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("report: create %q: %w", dir, err)
		}
	}
	if err := os.WriteFile(dest, HTML(s), 0o644); err != nil {
		return fmt.Errorf("report: write %q: %w", dest, err)
	}
	return nil
}

func readyWord(ready bool) string {
	if ready {
		return "Ready"
	}
	return "Still starting"
}

func resultWord(passed bool) string {
	if passed {
		return "pass"
	}
	return "**fail**"
}

// escapeCell keeps a value on one table row.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

// artifactLink links web URLs and file paths. Other schemes (s3://) would
// be stripped by the sanitizer, so they are shown as code.
func artifactLink(loc string) string {
	switch {
	case strings.HasPrefix(loc, "http://"), strings.HasPrefix(loc, "https://"):
		return fmt.Sprintf("[%s](%s)", path.Base(loc), loc)
	case strings.Contains(loc, "://"):
		return "`" + loc + "`"
	default:
		slashed := filepath.ToSlash(loc)
		return fmt.Sprintf("[%s](%s)", path.Base(slashed), slashed)
	}
}

type pageData struct {
	Title   string
	Status  string
	Content template.HTML
}

var pageTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            line-height: 1.5;
            max-width: 960px;
            margin: 0 auto;
            padding: 2rem 1rem;
        }
        table { border-collapse: collapse; width: 100%; }
        th, td { border: 1px solid #e0e0e0; padding: 0.4rem 0.6rem; text-align: left; vertical-align: top; }
        .passed h1 { color: #1a7f37; }
        .failed h1 { color: #cf222e; }
    </style>
</head>
<body class="{{.Status}}">
    <article>
{{.Content}}
    </article>
</body>
</html>
`))
