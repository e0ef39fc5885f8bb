package report

import (
	"fmt"
	"io"
	"time"

	fcolor "github.com/fatih/color"
)

// lineStyle pairs a status symbol with its color.
type lineStyle struct {
	symbol string
	color  *fcolor.Color
}

func styles(colorize bool) (pass, fail, info lineStyle) {
	pass = lineStyle{symbol: "✔", color: fcolor.New(fcolor.FgGreen)}
	fail = lineStyle{symbol: "✗", color: fcolor.New(fcolor.FgRed)}
	info = lineStyle{symbol: "ℹ", color: fcolor.New(fcolor.FgBlue)}
	for _, c := range []*fcolor.Color{pass.color, fail.color, info.color} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return pass, fail, info
}

// WriteLines prints one line per check, then a totals line.
func WriteLines(w io.Writer, s RunSummary, colorize bool) error {
	pass, fail, info := styles(colorize)

	if _, err := info.color.Fprintf(w, "%s readiness: %s after %d inspections, %d reloads\n",
		info.symbol, readyWord(s.Readiness.Ready), s.Readiness.Inspections, s.Readiness.Reloads); err != nil {
		return err
	}
	if s.LoadError != "" {
		if _, err := fail.color.Fprintf(w, "%s load: %s\n", fail.symbol, s.LoadError); err != nil {
			return err
		}
	}

	for _, r := range s.Results {
		st := pass
		if !r.Passed {
			st = fail
		}
		line := fmt.Sprintf("%s %s (%s)", st.symbol, r.Name, r.Duration.Round(time.Millisecond))
		if r.Detail != "" {
			line += ": " + r.Detail
		}
		if _, err := st.color.Fprintln(w, line); err != nil {
			return err
		}
	}

	passed, failed := s.Counts()
	total := pass
	if !s.Passed() {
		total = fail
	}
	_, err := total.color.Fprintf(w, "%d passed, %d failed in %s\n", passed, failed, s.Duration.Round(time.Millisecond))
	return err
}
