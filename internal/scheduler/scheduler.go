package scheduler

import (
	"context"
	"time"

	"github.com/pingsantohq/tcping/internal/events"
	"github.com/pingsantohq/tcping/internal/probe"
	"github.com/pingsantohq/tcping/pkg/types"
)

// DefaultCount sizes the history of continuous runs up front.
const DefaultCount = 4

// maxPrealloc bounds the history reserved before any probe has run.
const maxPrealloc = 1024

// Prober performs one timed connection attempt.
type Prober interface {
	Attempt(ctx context.Context, ep types.Endpoint, timeout time.Duration) types.Outcome
}

// Mode selects between a fixed number of measured probes and an unbounded run.
type Mode struct {
	continuous bool
	count      int
}

// Count issues exactly n measured probes after the warmup. Negative n is treated as zero.
func Count(n int) Mode {
	if n < 0 {
		n = 0
	}
	return Mode{count: n}
}

// Continuous probes until the run context is cancelled.
func Continuous() Mode {
	return Mode{continuous: true}
}

func (m Mode) IsContinuous() bool {
	return m.continuous
}

// Limit returns the number of measured probes, or -1 for continuous runs.
func (m Mode) Limit() int {
	if m.continuous {
		return -1
	}
	return m.count
}

type State int

const (
	StateWarmup State = iota
	StateLooping
	StateDone
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateWarmup:
		return "warmup"
	case StateLooping:
		return "looping"
	case StateDone:
		return "done"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Plan describes one run against a single endpoint.
type Plan struct {
	Endpoint types.Endpoint
	Mode     Mode
	Interval time.Duration
	Timeout  time.Duration
}

// Result is what a run leaves behind. History never contains the warmup probe or a
// probe that was interrupted before completing.
type Result struct {
	History types.History
	State   State
}

type Scheduler struct {
	prober   Prober
	recorder events.Recorder
	runID    string

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

type Option func(*Scheduler)

func WithRecorder(rec events.Recorder) Option {
	return func(s *Scheduler) {
		if rec != nil {
			s.recorder = rec
		}
	}
}

func WithRunID(id string) Option {
	return func(s *Scheduler) {
		s.runID = id
	}
}

func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSleep replaces the interval wait. The function must return ctx.Err() when the
// context ends before d elapses.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(s *Scheduler) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

func New(prober Prober, opts ...Option) *Scheduler {
	if prober == nil {
		prober = probe.New()
	}
	s := &Scheduler{
		prober:   prober,
		recorder: events.NoopRecorder{},
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run issues one warmup probe followed by the measured probes of plan.Mode, waiting
// plan.Interval before each measured probe. Cancelling ctx ends the run cleanly with
// whatever history has been collected.
func (s *Scheduler) Run(ctx context.Context, plan Plan) Result {
	interval := plan.Interval
	if interval < 0 {
		interval = 0
	}

	if ctx.Err() != nil {
		return Result{State: StateCancelled}
	}

	warmup := s.prober.Attempt(ctx, plan.Endpoint, plan.Timeout)
	if interrupted(ctx, warmup) {
		return Result{State: StateCancelled}
	}
	s.emit(plan.Endpoint, 0, true, warmup)

	capacity := min(plan.Mode.count, maxPrealloc)
	if plan.Mode.continuous {
		capacity = DefaultCount
	}
	history := make(types.History, 0, capacity)

	for seq := 1; plan.Mode.continuous || seq <= plan.Mode.count; seq++ {
		if err := s.sleep(ctx, interval); err != nil {
			return Result{History: history, State: StateCancelled}
		}

		outcome := s.prober.Attempt(ctx, plan.Endpoint, plan.Timeout)
		if interrupted(ctx, outcome) {
			return Result{History: history, State: StateCancelled}
		}
		history = append(history, outcome)
		s.emit(plan.Endpoint, seq, false, outcome)
	}

	return Result{History: history, State: StateDone}
}

func (s *Scheduler) emit(ep types.Endpoint, seq int, warmup bool, outcome types.Outcome) {
	s.recorder.Record(types.ProbeEvent{
		RunID:     s.runID,
		Target:    ep.Target,
		Addr:      ep.String(),
		Seq:       seq,
		Warmup:    warmup,
		Timestamp: s.now(),
		Outcome:   outcome,
	})
}

// interrupted reports whether a probe failed because the run was cancelled while it
// was in flight. A probe that completed before cancellation is kept.
func interrupted(ctx context.Context, outcome types.Outcome) bool {
	return ctx.Err() != nil && !outcome.OK()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
