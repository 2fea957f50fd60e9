package events

import "github.com/pingsantohq/tcping/pkg/types"

// Recorder consumes probe events as they complete.
type Recorder interface {
	Record(event types.ProbeEvent)
}

type NoopRecorder struct{}

func (NoopRecorder) Record(event types.ProbeEvent) {}

// RecorderFunc adapts a plain function to a Recorder.
type RecorderFunc func(event types.ProbeEvent)

func (f RecorderFunc) Record(event types.ProbeEvent) {
	f(event)
}

type Multi struct {
	recorders []Recorder
}

func NewMulti(recorders ...Recorder) Multi {
	return Multi{recorders: recorders}
}

func (m Multi) Record(event types.ProbeEvent) {
	for _, rec := range m.recorders {
		if rec != nil {
			rec.Record(event)
		}
	}
}
