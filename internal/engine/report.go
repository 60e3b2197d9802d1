package engine

import (
	"encoding/json"

	"github.com/contentsmith/pipewright/internal/state"
	"github.com/contentsmith/pipewright/internal/track"
)

// OutputsKey is the run-state data key under which a rendering stage may
// record its written files; when present it is surfaced in the report.
const OutputsKey = "outputs"

// Report is the caller-facing summary of one run.
type Report struct {
	RunID           string            `json:"run_id"`
	Success         bool              `json:"success"`
	Error           string            `json:"error,omitempty"`
	CompletedStages []string          `json:"completed_stages"`
	Steps           []track.Record    `json:"steps"`
	Outputs         map[string]string `json:"outputs,omitempty"`
}

func (e *Engine) report(st *state.RunState, err error) *Report {
	r := &Report{
		RunID:           st.RunID,
		Success:         err == nil,
		CompletedStages: append([]string{}, st.CompletedStages...),
		Steps:           e.cfg.Tracker.Summary(),
	}
	if err != nil {
		r.Error = err.Error()
	}
	if raw, ok := st.Data[OutputsKey]; ok {
		// Best effort: a malformed value just leaves Outputs empty.
		_ = json.Unmarshal(raw, &r.Outputs)
	}
	return r
}
