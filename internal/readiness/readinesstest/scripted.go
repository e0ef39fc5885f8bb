// Package readinesstest provides scripted readiness sources and a recording
// sleeper for tests of code that waits on readiness.
package readinesstest

import (
	"context"
	"sync"
	"time"

	"github.com/kuitang/stockdash-e2e/internal/readiness"
)

// Step is one scripted inspection result.
type Step struct {
	Text          string
	HeaderMissing bool
	Err           error
}

// ScriptedSource replays Steps in order; after the script ends the last step repeats.
type ScriptedSource struct {
	mu        sync.Mutex
	steps     []Step
	pos       int
	fetches   int
	reloads   int
	ReloadErr error
}

// NewScriptedSource builds a source from rendered texts with the header present.
func NewScriptedSource(texts ...string) *ScriptedSource {
	steps := make([]Step, len(texts))
	for i, t := range texts {
		steps[i] = Step{Text: t}
	}
	return &ScriptedSource{steps: steps}
}

// NewScriptedSteps builds a source from full steps.
func NewScriptedSteps(steps ...Step) *ScriptedSource {
	return &ScriptedSource{steps: append([]Step(nil), steps...)}
}

func (s *ScriptedSource) FetchSnapshot(_ context.Context) (readiness.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if len(s.steps) == 0 {
		return readiness.Snapshot{HeaderVisible: true}, nil
	}
	step := s.steps[min(s.pos, len(s.steps)-1)]
	if step.Err != nil {
		return readiness.Snapshot{}, step.Err
	}
	return readiness.Snapshot{RenderedText: step.Text, HeaderVisible: !step.HeaderMissing}, nil
}

// ForceReload advances the script to the next step.
func (s *ScriptedSource) ForceReload(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloads++
	s.pos++
	return s.ReloadErr
}

// Fetches returns how many snapshots were taken.
func (s *ScriptedSource) Fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

// Reloads returns how many reloads were issued.
func (s *ScriptedSource) Reloads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloads
}

// Rewind resets the script position and counters.
func (s *ScriptedSource) Rewind() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos, s.fetches, s.reloads = 0, 0, 0
}

// RecordingSleeper records requested delays without sleeping.
type RecordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

// Sleep satisfies readiness.Sleeper.
func (r *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

// Delays returns a copy of the recorded delays.
func (r *RecordingSleeper) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}
