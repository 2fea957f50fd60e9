package events

import (
	"io"
	"log"
	"time"

	"golang.org/x/time/rate"

	"github.com/pingsantohq/tcping/pkg/types"
)

const (
	defaultLogFirst    = 5
	defaultLogInterval = time.Minute
)

// LogRecorder writes probe events to a diagnostic logger. Successes are logged
// every time; failures are throttled so a long outage does not flood the log.
type LogRecorder struct {
	logger   *log.Logger
	failures rate.Sometimes
}

type LogOption func(*LogRecorder)

// WithFailureBudget logs the first n failures, then at most one per interval.
func WithFailureBudget(first int, interval time.Duration) LogOption {
	return func(r *LogRecorder) {
		r.failures = rate.Sometimes{First: first, Interval: interval}
	}
}

func NewLogRecorder(logger *log.Logger, opts ...LogOption) *LogRecorder {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	r := &LogRecorder{
		logger:   logger,
		failures: rate.Sometimes{First: defaultLogFirst, Interval: defaultLogInterval},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *LogRecorder) Record(event types.ProbeEvent) {
	if latency, ok := event.Outcome.Latency(); ok {
		r.logger.Printf("probe ok run=%s addr=%s seq=%d warmup=%t rtt_ms=%.3f", event.RunID, event.Addr, event.Seq, event.Warmup, latency)
		return
	}
	r.failures.Do(func() {
		r.logger.Printf("probe failed run=%s addr=%s seq=%d warmup=%t cause=%q", event.RunID, event.Addr, event.Seq, event.Warmup, event.Outcome.Cause())
	})
}
