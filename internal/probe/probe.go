package probe

import (
	"context"
	"errors"
	"net"
	"os"
	"time"

	"github.com/pingsantohq/tcping/pkg/types"
)

// DefaultTimeout bounds a connection attempt when the caller passes a non-positive timeout.
const DefaultTimeout = 4 * time.Second

// DialFunc opens a TCP connection, failing once the timeout elapses.
type DialFunc func(ctx context.Context, network, address string, timeout time.Duration) (net.Conn, error)

type Prober struct {
	dial DialFunc
	now  func() time.Time
}

type Option func(*Prober)

func WithDialer(fn DialFunc) Option {
	return func(p *Prober) {
		if fn != nil {
			p.dial = fn
		}
	}
}

func WithNow(now func() time.Time) Option {
	return func(p *Prober) {
		if now != nil {
			p.now = now
		}
	}
}

func New(opts ...Option) *Prober {
	p := &Prober{
		dial: dialTCP,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultProber = New()

// Attempt probes the endpoint with the default prober.
func Attempt(ctx context.Context, ep types.Endpoint, timeout time.Duration) types.Outcome {
	return defaultProber.Attempt(ctx, ep, timeout)
}

// Attempt times a single TCP handshake against ep. The connection is closed as soon
// as it is established; nothing is written to it.
func (p *Prober) Attempt(ctx context.Context, ep types.Endpoint, timeout time.Duration) types.Outcome {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	start := p.now()
	conn, err := p.dial(ctx, "tcp", ep.Addr.String(), timeout)
	elapsed := p.now().Sub(start)
	if err != nil {
		return types.Failure(Describe(err))
	}
	_ = conn.Close()

	return types.Success(Milliseconds(elapsed))
}

// Milliseconds converts d to fractional milliseconds without rounding.
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Describe reduces a dial error to its innermost cause, e.g. "connection refused".
func Describe(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return "probe cancelled"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "connection attempt timed out"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Err != nil {
		err = opErr.Err
	}
	var sysErr *os.SyscallError
	if errors.As(err, &sysErr) && sysErr.Err != nil {
		err = sysErr.Err
	}
	return err.Error()
}

func dialTCP(ctx context.Context, network, address string, timeout time.Duration) (net.Conn, error) {
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: -1,
	}
	return dialer.DialContext(ctx, network, address)
}
