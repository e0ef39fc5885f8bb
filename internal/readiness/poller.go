// Package readiness waits for an externally hosted single-page application to
// get past its cold start. It reloads the page and inspects the rendered text
// until the start-up banners are gone or the attempt budget runs out.
//
// The wait is best effort: running out of attempts is not an error. Callers
// assert on concrete elements afterwards, and those assertions fail on their
// own when the application never became ready.
package readiness

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kuitang/stockdash-e2e/internal/logutil"
	"github.com/kuitang/stockdash-e2e/internal/obs"
)

// Banner texts rendered by the dashboard while its cache warms up.
const (
	MarkerAppStarting    = "App is starting"
	MarkerBackgroundTask = "Background task started"
)

// DefaultMarkers are the cold-start markers checked when Options.Markers is empty.
var DefaultMarkers = []string{MarkerAppStarting, MarkerBackgroundTask}

// Snapshot is a point-in-time capture of the page under test.
type Snapshot struct {
	RenderedText  string
	HeaderVisible bool
}

// ColdStarting reports whether the rendered text contains any of markers.
func (s Snapshot) ColdStarting(markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(s.RenderedText, m) {
			return true
		}
	}
	return false
}

// Source is the browser-side capability the poller drives.
type Source interface {
	// FetchSnapshot returns the currently rendered text of the application
	// container (page root or embedding iframe).
	FetchSnapshot(ctx context.Context) (Snapshot, error)
	// ForceReload reloads the current page, bypassing any cache.
	ForceReload(ctx context.Context) error
}

// State is a step of the wait.
type State int

const (
	Waiting State = iota
	Inspecting
	Reloading
	Done
)

func (s State) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Inspecting:
		return "inspecting"
	case Reloading:
		return "reloading"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// PollState is the loop state of one Wait call.
// Attempt never exceeds MaxAttempts+1.
type PollState struct {
	Attempt     int
	MaxAttempts int
	Interval    time.Duration
}

// Exhausted reports whether the attempt counter has passed the budget.
func (p PollState) Exhausted() bool {
	return p.Attempt > p.MaxAttempts
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Options configures a Poller.
type Options struct {
	// MaxAttempts is the reload budget. Zero means a single inspection.
	MaxAttempts int
	// Interval is the delay before every inspection.
	Interval time.Duration
	// Markers overrides DefaultMarkers.
	Markers []string
	// Sleep overrides the real timer, mostly for tests.
	Sleep Sleeper
	// OnTransition observes every state change.
	OnTransition func(from, to State, st PollState)
	Logger       *slog.Logger
}

// Outcome describes how a Wait call ended. It is informational only.
type Outcome struct {
	Inspections int
	Reloads     int
	Anomalies   int
	Ready       bool
	State       State
}

// Poller runs readiness waits. A Poller holds no per-wait state and may be
// reused; every Wait starts from a fresh PollState.
type Poller struct {
	opts Options
}

// New returns a Poller with defaults filled in.
func New(opts Options) *Poller {
	if opts.MaxAttempts < 0 {
		opts.MaxAttempts = 0
	}
	if opts.Interval < 0 {
		opts.Interval = 0
	}
	if len(opts.Markers) == 0 {
		opts.Markers = DefaultMarkers
	}
	if opts.Sleep == nil {
		opts.Sleep = SleepContext
	}
	if opts.Logger == nil {
		opts.Logger = obs.Pkg("readiness")
	}
	return &Poller{opts: opts}
}

// Wait inspects src until the cold-start markers disappear or the budget is
// spent. The only error it returns is the context's, when ctx ends first.
func (p *Poller) Wait(ctx context.Context, src Source) (Outcome, error) {
	st := PollState{MaxAttempts: p.opts.MaxAttempts, Interval: p.opts.Interval}
	log := p.opts.Logger
	var out Outcome
	state := Waiting

	move := func(to State) {
		if p.opts.OnTransition != nil {
			p.opts.OnTransition(state, to, st)
		}
		state = to
	}

	for ; !st.Exhausted(); st.Attempt++ {
		if err := p.opts.Sleep(ctx, st.Interval); err != nil {
			out.State = state
			return out, err
		}

		move(Inspecting)
		out.Inspections++
		coldStart := true
		snap, err := src.FetchSnapshot(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			out.State = state
			return out, ctx.Err()
		case err != nil:
			// Unknown text counts as still starting; a reload may fix it.
			out.Anomalies++
			log.Warn("readiness snapshot failed", "attempt", st.Attempt, "error", err)
		default:
			if !snap.HeaderVisible {
				out.Anomalies++
				log.Warn("readiness header missing", "attempt", st.Attempt)
			}
			coldStart = snap.ColdStarting(p.opts.Markers)
			log.Debug("readiness inspected",
				"attempt", st.Attempt,
				"max_attempts", st.MaxAttempts,
				"cold_start", coldStart,
				"text", logutil.TruncateForLog(snap.RenderedText, 120),
			)
		}

		if !coldStart {
			out.Ready = true
			break
		}
		if st.Attempt == st.MaxAttempts {
			log.Info("readiness budget exhausted", "attempts", st.Attempt+1)
			break
		}

		move(Reloading)
		out.Reloads++
		if err := src.ForceReload(ctx); err != nil {
			if ctx.Err() != nil {
				out.State = state
				return out, ctx.Err()
			}
			log.Warn("readiness reload failed", "attempt", st.Attempt, "error", err)
		}
		move(Waiting)
	}

	move(Done)
	out.State = state
	return out, nil
}

// SleepContext waits for d unless ctx ends first.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
