// Package resolve turns a "host:port" target into the endpoint probed for a run.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pingsantohq/tcping/pkg/types"
)

var (
	ErrInvalidTarget = errors.New("invalid argument. Expected format: 'host:port' (i.e. 'google.com:80')")
	ErrNoAddress     = errors.New("no address resolved")
)

const dnsDialTimeout = 2 * time.Second

type LookupFunc func(ctx context.Context, network, host string) ([]netip.Addr, error)

type Resolver struct {
	lookup  LookupFunc
	servers []string
	next    atomic.Uint32
}

type Option func(*Resolver)

// WithServers sends queries to the given DNS servers in rotation instead of the
// system configuration. Entries without a port default to 53.
func WithServers(servers []string) Option {
	return func(r *Resolver) {
		r.servers = normalizeServers(servers)
	}
}

func WithLookup(fn LookupFunc) Option {
	return func(r *Resolver) {
		if fn != nil {
			r.lookup = fn
		}
	}
}

func New(opts ...Option) *Resolver {
	r := &Resolver{}
	for _, opt := range opts {
		opt(r)
	}
	if r.lookup == nil {
		r.lookup = r.netResolver().LookupNetIP
	}
	return r
}

func (r *Resolver) netResolver() *net.Resolver {
	if len(r.servers) == 0 {
		return net.DefaultResolver
	}
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			d := net.Dialer{Timeout: dnsDialTimeout}
			return d.DialContext(ctx, network, r.nextServer())
		},
	}
}

// nextServer rotates through the configured servers starting with the first.
func (r *Resolver) nextServer() string {
	idx := r.next.Add(1) - 1
	return r.servers[int(idx%uint32(len(r.servers)))]
}

// Servers returns the configured DNS servers, if any.
func (r *Resolver) Servers() []string {
	return append([]string(nil), r.servers...)
}

// Resolve parses target and returns an endpoint for the first address it resolves to.
func (r *Resolver) Resolve(ctx context.Context, target string) (types.Endpoint, error) {
	host, portText, err := net.SplitHostPort(strings.TrimSpace(target))
	if err != nil || host == "" {
		return types.Endpoint{}, ErrInvalidTarget
	}
	port, err := strconv.ParseUint(portText, 10, 16)
	if err != nil {
		return types.Endpoint{}, ErrInvalidTarget
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		return types.Endpoint{Target: target, Addr: netip.AddrPortFrom(addr.Unmap(), uint16(port))}, nil
	}

	addrs, err := r.lookup(ctx, "ip", host)
	if err != nil {
		return types.Endpoint{}, fmt.Errorf("resolve %s: %w", host, err)
	}
	if len(addrs) == 0 {
		return types.Endpoint{}, fmt.Errorf("%w for %s", ErrNoAddress, host)
	}

	return types.Endpoint{Target: target, Addr: netip.AddrPortFrom(addrs[0].Unmap(), uint16(port))}, nil
}

func normalizeServers(servers []string) []string {
	out := make([]string, 0, len(servers))
	for _, server := range servers {
		server = strings.TrimSpace(server)
		if server == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(server); err != nil {
			server = net.JoinHostPort(server, "53")
		}
		out = append(out, server)
	}
	return out
}
