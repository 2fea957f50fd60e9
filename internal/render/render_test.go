package render

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/pingsantohq/tcping/pkg/types"
)

var testEndpoint = types.Endpoint{Target: "example.com:80", Addr: netip.MustParseAddrPort("192.0.2.1:80")}

func plainConsole(buf *bytes.Buffer, opts ...ConsoleOption) *Console {
	opts = append([]ConsoleOption{WithColor(false), WithLocation(time.UTC)}, opts...)
	return NewConsole(buf, opts...)
}

func TestNormalizeError(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"connection refused", "Connection refused."},
		{"Connection refused.", "Connection refused."},
		{"i/o timeout", "I/o timeout."},
		{"", ""},
		{"élan vital", "Élan vital."},
		{"404 not found", "404 not found."},
		{"Network is unreachable (os error 101)", "Network is unreachable (os error 101)."},
	}
	for _, tc := range cases {
		if got := NormalizeError(tc.in); got != tc.want {
			t.Fatalf("NormalizeError(%q): expected %q got %q", tc.in, tc.want, got)
		}
	}
}

func TestConsoleRecordLines(t *testing.T) {
	var buf bytes.Buffer
	c := plainConsole(&buf)

	c.Record(types.ProbeEvent{Addr: "192.0.2.1:80", Warmup: true, Outcome: types.Success(12.346)})
	c.Record(types.ProbeEvent{Addr: "192.0.2.1:80", Seq: 1, Outcome: types.Failure("connection refused")})

	want := "> 192.0.2.1:80 (warmup): 12.35 ms\n> 192.0.2.1:80: Connection refused.\n"
	if buf.String() != want {
		t.Fatalf("expected %q got %q", want, buf.String())
	}
}

func TestConsoleRecordTimestamps(t *testing.T) {
	var buf bytes.Buffer
	c := plainConsole(&buf, WithTimestamps(true))

	ts := time.Date(2024, 5, 1, 13, 4, 5, 0, time.UTC)
	c.Record(types.ProbeEvent{Addr: "[2001:db8::1]:443", Seq: 3, Timestamp: ts, Outcome: types.Success(0.5)})

	if buf.String() != "[13:04:05] [2001:db8::1]:443: 0.50 ms\n" {
		t.Fatalf("unexpected line %q", buf.String())
	}
}

func TestConsoleSummary(t *testing.T) {
	var buf bytes.Buffer
	c := plainConsole(&buf)

	c.Summary(types.Summary{Sent: 3, Received: 1, ReceivedPercent: 33, Latency: &types.LatencyStats{Min: 1, Max: 1, Avg: 1}})

	want := "\n  Sent = 3, Received = 1 (33%)\n  Minimum = 1.00ms, Maximum = 1.00ms, Average = 1.00ms\n"
	if buf.String() != want {
		t.Fatalf("expected %q got %q", want, buf.String())
	}
}

func TestConsoleSummaryWithoutLatency(t *testing.T) {
	var buf bytes.Buffer
	c := plainConsole(&buf)

	c.Summary(types.Summary{Sent: 4})
	if buf.String() != "\n  Sent = 4, Received = 0 (0%)\n" {
		t.Fatalf("unexpected summary %q", buf.String())
	}
}

func TestConsoleSummarySuppressedForEmptyRun(t *testing.T) {
	var buf bytes.Buffer
	plainConsole(&buf).Summary(types.Summary{})
	if buf.Len() != 0 {
		t.Fatalf("expected no output got %q", buf.String())
	}
}

func TestConsoleColorsPercent(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, WithColor(true))

	c.Summary(types.Summary{Sent: 2, Received: 2, ReceivedPercent: 100, Latency: &types.LatencyStats{}})
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("expected ANSI colour codes in %q", buf.String())
	}
}

func TestConsoleHeaderAndError(t *testing.T) {
	var buf bytes.Buffer
	c := plainConsole(&buf)

	c.Header(testEndpoint, "")
	c.Header(testEndpoint, "US")
	c.Error(errors.New("no address resolved for example.com"))
	c.Error(nil)

	want := "Probing example.com:80 [192.0.2.1:80]\n" +
		"Probing example.com:80 [192.0.2.1:80] (US)\n" +
		"Error: No address resolved for example.com.\n"
	if buf.String() != want {
		t.Fatalf("expected %q got %q", want, buf.String())
	}
}

func TestJSONStream(t *testing.T) {
	var buf bytes.Buffer
	j := NewJSON(&buf)

	j.Record(types.ProbeEvent{RunID: "run-9", Addr: "192.0.2.1:80", Seq: 1, Outcome: types.Success(2.5)})
	j.Summary("run-9", testEndpoint, types.Summary{Sent: 1, Received: 1, ReceivedPercent: 100, Latency: &types.LatencyStats{Min: 2.5, Max: 2.5, Avg: 2.5}})
	j.Summary("run-9", testEndpoint, types.Summary{Sent: 1})

	scanner := bufio.NewScanner(&buf)
	var lines []map[string]any
	for scanner.Scan() {
		var rec map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("invalid json line %q: %v", scanner.Text(), err)
		}
		lines = append(lines, rec)
	}

	if len(lines) != 3 {
		t.Fatalf("expected 3 records got %d", len(lines))
	}
	if lines[0]["type"] != "probe" || lines[0]["run_id"] != "run-9" {
		t.Fatalf("unexpected probe record %v", lines[0])
	}
	outcome, ok := lines[0]["outcome"].(map[string]any)
	if !ok || outcome["rtt_ms"] != 2.5 {
		t.Fatalf("unexpected outcome %v", lines[0]["outcome"])
	}
	if lines[1]["type"] != "summary" || lines[1]["received_pct"] != float64(100) || lines[1]["addr"] != "192.0.2.1:80" {
		t.Fatalf("unexpected summary record %v", lines[1])
	}
	if _, present := lines[2]["latency"]; present {
		t.Fatalf("latency must be omitted without successes: %v", lines[2])
	}
}

func TestJSONError(t *testing.T) {
	var buf bytes.Buffer
	NewJSON(&buf).Error(errors.New("invalid count"))

	want := `{"type":"error","error":"invalid count"}` + "\n"
	if buf.String() != want {
		t.Fatalf("expected %q got %q", want, buf.String())
	}
}
