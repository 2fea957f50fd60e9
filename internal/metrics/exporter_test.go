package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/pingsantohq/tcping/pkg/types"
)

func event(seq int, warmup bool, outcome types.Outcome) types.ProbeEvent {
	return types.ProbeEvent{Target: "example.com:80", Addr: "192.0.2.1:80", Seq: seq, Warmup: warmup, Outcome: outcome}
}

func TestExporterRecordsMeasuredProbes(t *testing.T) {
	e := NewExporter()

	e.Record(event(0, true, types.Success(99)))
	e.Record(event(1, false, types.Success(4)))
	e.Record(event(2, false, types.Failure("connection refused")))
	e.Record(event(3, false, types.Success(6)))

	if got := testutil.ToFloat64(e.sent.WithLabelValues("example.com:80", "192.0.2.1:80")); got != 3 {
		t.Fatalf("expected 3 sent got %v", got)
	}
	if got := testutil.ToFloat64(e.received.WithLabelValues("example.com:80", "192.0.2.1:80")); got != 2 {
		t.Fatalf("expected 2 received got %v", got)
	}
	if got := testutil.ToFloat64(e.failed.WithLabelValues("example.com:80", "192.0.2.1:80")); got != 1 {
		t.Fatalf("expected 1 failed got %v", got)
	}
	if got := testutil.ToFloat64(e.last.WithLabelValues("example.com:80", "192.0.2.1:80")); got != 6 {
		t.Fatalf("expected last latency 6 got %v", got)
	}
	if got := testutil.ToFloat64(e.up.WithLabelValues("example.com:80", "192.0.2.1:80")); got != 1 {
		t.Fatalf("expected target up got %v", got)
	}
	if n := testutil.CollectAndCount(e.latency); n != 1 {
		t.Fatalf("expected one histogram series got %d", n)
	}
}

func TestExporterIgnoresWarmupOnly(t *testing.T) {
	e := NewExporter()
	e.Record(event(0, true, types.Failure("timeout")))

	if n := testutil.CollectAndCount(e.sent); n != 0 {
		t.Fatalf("warmup must not create series, got %d", n)
	}
}

func TestExporterHandler(t *testing.T) {
	e := NewExporter()
	e.Record(event(1, false, types.Success(1.5)))

	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, name := range []string{"tcping_probes_sent_total", "tcping_handshake_latency_milliseconds_bucket", `target="example.com:80"`} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %s in scrape output:\n%s", name, body)
		}
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, "127.0.0.1:0", NewExporter(), nil)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timeout waiting for server shutdown")
	}
}

func TestServeReportsListenError(t *testing.T) {
	if err := Serve(context.Background(), "256.0.0.1:bad", NewExporter(), nil); err == nil {
		t.Fatalf("expected listen error")
	}
}
