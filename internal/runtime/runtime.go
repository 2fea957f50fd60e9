package runtime

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/pingsantohq/tcping/internal/events"
	"github.com/pingsantohq/tcping/internal/probe"
	"github.com/pingsantohq/tcping/internal/resolve"
	"github.com/pingsantohq/tcping/internal/scheduler"
	"github.com/pingsantohq/tcping/internal/stats"
	"github.com/pingsantohq/tcping/pkg/types"
)

type Option func(*config)

type config struct {
	resolver      *resolve.Resolver
	prober        scheduler.Prober
	recorders     []events.Recorder
	schedulerOpts []scheduler.Option
	logger        *log.Logger
	newRunID      func() string
	onResolved    func(types.Endpoint)
}

func WithResolver(r *resolve.Resolver) Option {
	return func(c *config) {
		if r != nil {
			c.resolver = r
		}
	}
}

func WithProber(p scheduler.Prober) Option {
	return func(c *config) {
		if p != nil {
			c.prober = p
		}
	}
}

// WithRecorders adds consumers for the per-probe event stream.
func WithRecorders(recs ...events.Recorder) Option {
	return func(c *config) {
		c.recorders = append(c.recorders, recs...)
	}
}

func WithSchedulerOptions(opts ...scheduler.Option) Option {
	return func(c *config) {
		c.schedulerOpts = append(c.schedulerOpts, opts...)
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithRunID(fn func() string) Option {
	return func(c *config) {
		if fn != nil {
			c.newRunID = fn
		}
	}
}

// WithResolvedHook is called once the endpoint is known, before the warmup probe.
func WithResolvedHook(fn func(types.Endpoint)) Option {
	return func(c *config) {
		c.onResolved = fn
	}
}

// Settings are the validated run parameters.
type Settings struct {
	Target   string
	Mode     scheduler.Mode
	Interval time.Duration
	Timeout  time.Duration
}

// Report is everything a finished or cancelled run produced.
type Report struct {
	RunID    string
	Endpoint types.Endpoint
	History  types.History
	State    scheduler.State
	Summary  types.Summary
}

type Runtime struct {
	cfg config
}

func New(opts ...Option) *Runtime {
	cfg := config{
		newRunID: uuid.NewString,
		logger:   log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.resolver == nil {
		cfg.resolver = resolve.New()
	}
	if cfg.prober == nil {
		cfg.prober = probe.New()
	}
	return &Runtime{cfg: cfg}
}

// Run resolves the target and probes it until the mode completes or ctx is cancelled.
// Only resolution failures are returned as errors; nothing is probed in that case.
func (r *Runtime) Run(ctx context.Context, s Settings) (Report, error) {
	runID := r.cfg.newRunID()

	ep, err := r.cfg.resolver.Resolve(ctx, s.Target)
	if err != nil {
		r.cfg.logger.Printf("run %s: resolve %q failed: %v", runID, s.Target, err)
		return Report{RunID: runID}, err
	}
	r.cfg.logger.Printf("run %s: %s resolved to %s (limit=%d interval=%s timeout=%s)", runID, s.Target, ep, s.Mode.Limit(), s.Interval, s.Timeout)

	if r.cfg.onResolved != nil {
		r.cfg.onResolved(ep)
	}

	opts := append([]scheduler.Option{
		scheduler.WithRunID(runID),
		scheduler.WithRecorder(events.NewMulti(r.cfg.recorders...)),
	}, r.cfg.schedulerOpts...)
	sched := scheduler.New(r.cfg.prober, opts...)

	result := sched.Run(ctx, scheduler.Plan{
		Endpoint: ep,
		Mode:     s.Mode,
		Interval: s.Interval,
		Timeout:  s.Timeout,
	})

	summary := stats.Summarize(result.History)
	r.cfg.logger.Printf("run %s: %s after %d probes (received=%d)", runID, result.State, summary.Sent, summary.Received)

	return Report{
		RunID:    runID,
		Endpoint: ep,
		History:  result.History,
		State:    result.State,
		Summary:  summary,
	}, nil
}
