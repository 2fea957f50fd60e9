package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pingsantohq/tcping/pkg/types"
)

const namespace = "tcping"

var labels = []string{"target", "addr"}

// Exporter turns measured probe events into Prometheus series. Warmup probes are ignored.
type Exporter struct {
	registry *prometheus.Registry
	sent     *prometheus.CounterVec
	received *prometheus.CounterVec
	failed   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	last     *prometheus.GaugeVec
	up       *prometheus.GaugeVec
}

func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_sent_total",
			Help:      "measured TCP connection attempts",
		}, labels),
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_received_total",
			Help:      "measured TCP connection attempts that completed the handshake",
		}, labels),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_failed_total",
			Help:      "measured TCP connection attempts that failed",
		}, labels),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handshake_latency_milliseconds",
			Help:      "TCP handshake latency in milliseconds",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 14),
		}, labels),
		last: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_latency_milliseconds",
			Help:      "latency of the most recent successful probe in milliseconds",
		}, labels),
		up: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "target_up",
			Help:      "1 if the most recent probe completed the handshake",
		}, labels),
	}
	e.registry.MustRegister(e.sent, e.received, e.failed, e.latency, e.last, e.up)
	return e
}

func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

func (e *Exporter) Record(ev types.ProbeEvent) {
	if ev.Warmup {
		return
	}
	e.sent.WithLabelValues(ev.Target, ev.Addr).Inc()

	latency, ok := ev.Outcome.Latency()
	if !ok {
		e.failed.WithLabelValues(ev.Target, ev.Addr).Inc()
		e.up.WithLabelValues(ev.Target, ev.Addr).Set(0)
		return
	}
	e.received.WithLabelValues(ev.Target, ev.Addr).Inc()
	e.latency.WithLabelValues(ev.Target, ev.Addr).Observe(latency)
	e.last.WithLabelValues(ev.Target, ev.Addr).Set(latency)
	e.up.WithLabelValues(ev.Target, ev.Addr).Set(1)
}
