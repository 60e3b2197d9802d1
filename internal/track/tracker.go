// Package track keeps the in-memory execution ledger for one pipeline run:
// when each stage started and ended, how it finished, and why. The ledger
// feeds the run report and, when metrics are enabled, Prometheus.
package track

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Status of one tracked stage.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Record is the ledger entry for one stage.
type Record struct {
	Stage     string     `json:"stage"`
	Status    Status     `json:"status"`
	StartedAt time.Time  `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Error     string     `json:"error,omitempty"`
	Attempts  int        `json:"attempts,omitempty"`
}

// Duration is the stage's wall time, zero while still running.
func (r Record) Duration() time.Duration {
	if r.EndedAt == nil {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// Tracker is safe for concurrent use, although a single run drives it
// sequentially; the lock matters for readers polling a summary mid-run.
type Tracker struct {
	mu      sync.Mutex
	order   []string
	records map[string]*Record
	metrics *Metrics
	now     func() time.Time
}

// New returns an empty tracker. metrics may be nil.
func New(metrics *Metrics) *Tracker {
	return &Tracker{
		records: make(map[string]*Record),
		metrics: metrics,
		now:     time.Now,
	}
}

// WithClock replaces the tracker's time source. For tests.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

func (t *Tracker) record(stage string) *Record {
	r, ok := t.records[stage]
	if !ok {
		r = &Record{Stage: stage, Status: StatusPending}
		t.records[stage] = r
		t.order = append(t.order, stage)
	}
	return r
}

// Start marks a stage as running.
func (t *Tracker) Start(stage string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.record(stage)
	r.Status = StatusRunning
	r.StartedAt = t.now()
}

// Complete marks a stage as finished successfully.
func (t *Tracker) Complete(stage string, attempts int) {
	t.finish(stage, StatusCompleted, attempts, nil)
}

// Fail marks a stage as failed with its terminal error.
func (t *Tracker) Fail(stage string, attempts int, err error) {
	t.finish(stage, StatusFailed, attempts, err)
}

// Skip marks a stage as skipped (already committed by a resumed checkpoint).
func (t *Tracker) Skip(stage string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.record(stage)
	r.Status = StatusSkipped
	if t.metrics != nil {
		t.metrics.observe(stage, StatusSkipped, 0)
	}
}

func (t *Tracker) finish(stage string, status Status, attempts int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.record(stage)
	end := t.now()
	r.Status = status
	r.EndedAt = &end
	r.Attempts = attempts
	if err != nil {
		r.Error = err.Error()
	}
	if t.metrics != nil {
		t.metrics.observe(stage, status, r.Duration())
	}
}

// Summary returns the ledger in stage-start order. Records are copied so
// callers can hold them without racing the tracker.
func (t *Tracker) Summary() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Record, 0, len(t.order))
	for _, stage := range t.order {
		out = append(out, *t.records[stage])
	}
	return out
}

// String renders the ledger as an aligned text table for CLI output.
func (t *Tracker) String() string {
	var sb strings.Builder
	for _, r := range t.Summary() {
		line := fmt.Sprintf("  %-20s %-10s", r.Stage, r.Status)
		if r.EndedAt != nil {
			line += fmt.Sprintf(" %8s", r.Duration().Round(time.Millisecond))
		}
		if r.Attempts > 1 {
			line += fmt.Sprintf("  attempts=%d", r.Attempts)
		}
		if r.Error != "" {
			line += "  " + r.Error
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}
