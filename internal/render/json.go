package render

import (
	"encoding/json"
	"io"

	"github.com/pingsantohq/tcping/pkg/types"
)

// JSON writes newline delimited JSON: one object per probe, one for the summary and
// one for a fatal error.
type JSON struct {
	enc *json.Encoder
}

func NewJSON(out io.Writer) *JSON {
	return &JSON{enc: json.NewEncoder(out)}
}

type probeRecord struct {
	Type string `json:"type"`
	types.ProbeEvent
}

type summaryRecord struct {
	Type   string `json:"type"`
	RunID  string `json:"run_id"`
	Target string `json:"target"`
	Addr   string `json:"addr"`
	types.Summary
}

type errorRecord struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func (j *JSON) Record(ev types.ProbeEvent) {
	_ = j.enc.Encode(probeRecord{Type: "probe", ProbeEvent: ev})
}

func (j *JSON) Summary(runID string, ep types.Endpoint, s types.Summary) {
	_ = j.enc.Encode(summaryRecord{
		Type:    "summary",
		RunID:   runID,
		Target:  ep.Target,
		Addr:    ep.String(),
		Summary: s,
	})
}

func (j *JSON) Error(err error) {
	_ = j.enc.Encode(errorRecord{Type: "error", Error: err.Error()})
}
