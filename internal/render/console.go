// Package render presents probe events and run summaries to the user.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/pingsantohq/tcping/pkg/types"
)

const timestampLayout = "15:04:05"

// Console writes one line per probe and a psping style summary.
type Console struct {
	out        io.Writer
	timestamps bool
	loc        *time.Location

	latency *color.Color
	failure *color.Color
	full    *color.Color
	none    *color.Color
	partial *color.Color
	fatal   *color.Color
}

type ConsoleOption func(*Console)

// WithTimestamps prefixes every probe line with its wall clock time instead of ">".
func WithTimestamps(enabled bool) ConsoleOption {
	return func(c *Console) {
		c.timestamps = enabled
	}
}

// WithColor forces colour on or off regardless of terminal detection.
func WithColor(enabled bool) ConsoleOption {
	return func(c *Console) {
		for _, col := range c.colors() {
			if enabled {
				col.EnableColor()
			} else {
				col.DisableColor()
			}
		}
	}
}

func WithLocation(loc *time.Location) ConsoleOption {
	return func(c *Console) {
		if loc != nil {
			c.loc = loc
		}
	}
}

func NewConsole(out io.Writer, opts ...ConsoleOption) *Console {
	c := &Console{
		out:     out,
		loc:     time.Local,
		latency: color.New(color.FgGreen, color.Bold),
		failure: color.New(color.FgCyan),
		full:    color.New(color.FgGreen, color.Bold),
		none:    color.New(color.FgRed, color.Bold),
		partial: color.New(color.FgYellow),
		fatal:   color.New(color.FgRed, color.Bold),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Console) colors() []*color.Color {
	return []*color.Color{c.latency, c.failure, c.full, c.none, c.partial, c.fatal}
}

// Header announces the target before probing starts.
func (c *Console) Header(ep types.Endpoint, location string) {
	if location == "" {
		fmt.Fprintf(c.out, "Probing %s [%s]\n", ep.Target, ep)
		return
	}
	fmt.Fprintf(c.out, "Probing %s [%s] (%s)\n", ep.Target, ep, location)
}

func (c *Console) Record(ev types.ProbeEvent) {
	var line strings.Builder
	if c.timestamps {
		fmt.Fprintf(&line, "[%s] %s", ev.Timestamp.In(c.loc).Format(timestampLayout), ev.Addr)
	} else {
		fmt.Fprintf(&line, "> %s", ev.Addr)
	}
	if ev.Warmup {
		line.WriteString(" (warmup)")
	}
	line.WriteString(": ")

	if latency, ok := ev.Outcome.Latency(); ok {
		line.WriteString(c.latency.Sprintf("%.2f", latency))
		line.WriteString(" ms")
	} else {
		line.WriteString(c.failure.Sprint(NormalizeError(ev.Outcome.Cause())))
	}

	fmt.Fprintln(c.out, line.String())
}

// Summary prints the run statistics. Nothing is printed for a run without measured probes.
func (c *Console) Summary(s types.Summary) {
	if s.Sent == 0 {
		return
	}

	pct := c.partial
	switch s.ReceivedPercent {
	case 100:
		pct = c.full
	case 0:
		pct = c.none
	}

	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "  Sent = %d, Received = %d (%s)\n", s.Sent, s.Received, pct.Sprintf("%d%%", s.ReceivedPercent))
	if s.Latency != nil {
		fmt.Fprintf(c.out, "  Minimum = %.2fms, Maximum = %.2fms, Average = %.2fms\n", s.Latency.Min, s.Latency.Max, s.Latency.Avg)
	}
}

// Error reports a fatal error for the run.
func (c *Console) Error(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(c.out, "%s %s\n", c.fatal.Sprint("Error:"), NormalizeError(err.Error()))
}

// NormalizeError capitalises the first letter of text and makes sure it ends with a full stop.
func NormalizeError(text string) string {
	if text == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(text)
	if unicode.IsLower(r) {
		text = string(unicode.ToUpper(r)) + text[size:]
	}
	if !strings.HasSuffix(text, ".") {
		text += "."
	}
	return text
}
