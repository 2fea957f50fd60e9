package types

import (
	"encoding/json"
	"net/netip"
)

// Endpoint is the resolved address every probe of a run connects to.
type Endpoint struct {
	Target string         // target as supplied by the user, e.g. "example.com:443"
	Addr   netip.AddrPort // first address the target resolved to
}

func (e Endpoint) String() string {
	return e.Addr.String()
}

// Outcome is the result of a single probe: either a handshake latency or a failure cause.
// The zero value is a failure with an empty cause.
type Outcome struct {
	latencyMs float64
	cause     string
	ok        bool
}

// Success returns an outcome carrying a handshake latency in milliseconds.
func Success(latencyMs float64) Outcome {
	return Outcome{latencyMs: latencyMs, ok: true}
}

// Failure returns an outcome carrying a human readable failure cause.
func Failure(cause string) Outcome {
	return Outcome{cause: cause}
}

func (o Outcome) OK() bool {
	return o.ok
}

// Latency reports the handshake latency in milliseconds and whether the probe succeeded.
func (o Outcome) Latency() (float64, bool) {
	if !o.ok {
		return 0, false
	}
	return o.latencyMs, true
}

// Cause returns the failure description, or an empty string for successful outcomes.
func (o Outcome) Cause() string {
	if o.ok {
		return ""
	}
	return o.cause
}

type outcomeWire struct {
	Success bool     `json:"success"`
	RTTMs   *float64 `json:"rtt_ms,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	wire := outcomeWire{Success: o.ok}
	if o.ok {
		latency := o.latencyMs
		wire.RTTMs = &latency
	} else {
		wire.Error = o.cause
	}
	return json.Marshal(wire)
}

func (o *Outcome) UnmarshalJSON(data []byte) error {
	var wire outcomeWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.Success {
		var latency float64
		if wire.RTTMs != nil {
			latency = *wire.RTTMs
		}
		*o = Success(latency)
		return nil
	}
	*o = Failure(wire.Error)
	return nil
}

// History is the chronological record of the measured (non-warmup) probes of a run.
type History []Outcome

// Latencies returns the latencies of the successful probes in probe order.
func (h History) Latencies() []float64 {
	out := make([]float64, 0, len(h))
	for _, o := range h {
		if latency, ok := o.Latency(); ok {
			out = append(out, latency)
		}
	}
	return out
}
