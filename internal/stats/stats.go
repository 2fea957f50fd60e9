// Package stats reduces a probe history into a psping style summary.
package stats

import (
	"cmp"
	"errors"

	"github.com/pingsantohq/tcping/pkg/types"
)

// ErrEmpty is returned by the reducers when they receive no values.
var ErrEmpty = errors.New("stats: empty input")

// Number is any totally ordered type that can be summed.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

func Min[T Number](values []T) (T, error) {
	return extremum(values, -1)
}

func Max[T Number](values []T) (T, error) {
	return extremum(values, 1)
}

// extremum keeps the value for which cmp.Compare(candidate, current) == want.
// cmp.Compare orders NaN before every other value, so the comparison is total.
func extremum[T Number](values []T, want int) (T, error) {
	var zero T
	if len(values) == 0 {
		return zero, ErrEmpty
	}
	m := values[0]
	for _, v := range values[1:] {
		if cmp.Compare(v, m) == want {
			m = v
		}
	}
	return m, nil
}

// Avg returns the arithmetic mean of values.
func Avg[T Number](values []T) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmpty
	}
	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	return sum / float64(len(values)), nil
}

// Summarize computes the summary of a run. Latency figures are only present when at
// least one probe succeeded; failed probes count towards Sent and nothing else.
func Summarize(history types.History) types.Summary {
	summary := types.Summary{Sent: len(history)}
	if summary.Sent == 0 {
		return summary
	}

	latencies := history.Latencies()
	summary.Received = len(latencies)
	summary.ReceivedPercent = summary.Received * 100 / summary.Sent

	if summary.Received == 0 {
		return summary
	}

	// The reducers cannot fail on a non-empty slice.
	minimum, _ := Min(latencies)
	maximum, _ := Max(latencies)
	average, _ := Avg(latencies)
	summary.Latency = &types.LatencyStats{
		Min: minimum,
		Max: maximum,
		Avg: average,
	}
	return summary
}
