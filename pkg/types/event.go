package types

import "time"

// ProbeEvent is emitted once per completed probe, warmup included, in probe order.
type ProbeEvent struct {
	RunID     string    `json:"run_id"`
	Target    string    `json:"target"`
	Addr      string    `json:"addr"`
	Seq       int       `json:"seq"`
	Warmup    bool      `json:"warmup"`
	Timestamp time.Time `json:"ts"`
	Outcome   Outcome   `json:"outcome"`
}

// Summary aggregates a History. Latency is nil when no probe succeeded.
type Summary struct {
	Sent            int           `json:"sent"`
	Received        int           `json:"received"`
	ReceivedPercent int           `json:"received_pct"`
	Latency         *LatencyStats `json:"latency,omitempty"`
}

type LatencyStats struct {
	Min float64 `json:"min_ms"`
	Max float64 `json:"max_ms"`
	Avg float64 `json:"avg_ms"`
}
