package events

import (
	"bytes"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/pingsantohq/tcping/pkg/types"
)

func TestMultiFansOutAndSkipsNil(t *testing.T) {
	var first, second []int
	m := NewMulti(
		RecorderFunc(func(ev types.ProbeEvent) { first = append(first, ev.Seq) }),
		nil,
		NoopRecorder{},
		RecorderFunc(func(ev types.ProbeEvent) { second = append(second, ev.Seq) }),
	)

	m.Record(types.ProbeEvent{Seq: 1})
	m.Record(types.ProbeEvent{Seq: 2})

	if len(first) != 2 || len(second) != 2 || first[1] != 2 || second[0] != 1 {
		t.Fatalf("unexpected fan out first=%v second=%v", first, second)
	}
}

func TestLogRecorderThrottlesFailures(t *testing.T) {
	var buf bytes.Buffer
	rec := NewLogRecorder(log.New(&buf, "", 0), WithFailureBudget(2, time.Hour))

	for i := 1; i <= 5; i++ {
		rec.Record(types.ProbeEvent{RunID: "r", Addr: "192.0.2.1:80", Seq: i, Outcome: types.Failure("connection refused")})
	}
	rec.Record(types.ProbeEvent{RunID: "r", Addr: "192.0.2.1:80", Seq: 6, Outcome: types.Success(1.25)})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 2 failure lines and 1 success line got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `cause="connection refused"`) {
		t.Fatalf("unexpected failure line %q", lines[0])
	}
	if !strings.Contains(lines[2], "rtt_ms=1.250") {
		t.Fatalf("unexpected success line %q", lines[2])
	}
}

func TestLogRecorderNilLogger(t *testing.T) {
	rec := NewLogRecorder(nil)
	rec.Record(types.ProbeEvent{Outcome: types.Failure("x")})
}
