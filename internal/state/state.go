// Package state owns the durable record of pipeline progress: which stages
// completed, what they produced, and how a run ended. Every mutation that
// matters for resume is checkpointed through a pluggable Store so a failed
// run can pick up where it left off.
package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is a run's lifecycle position.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// StageError records one stage failure inside a run.
type StageError struct {
	Stage     string    `json:"stage"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// RunState is the persisted snapshot of one pipeline run. Field names are
// stable across versions; unknown fields in stored snapshots are ignored on
// read so older binaries can load newer checkpoints.
type RunState struct {
	RunID           string                     `json:"run_id"`
	StartedAt       time.Time                  `json:"started_at"`
	CompletedAt     *time.Time                 `json:"completed_at,omitempty"`
	CurrentStage    string                     `json:"current_stage,omitempty"`
	Status          Status                     `json:"status"`
	CompletedStages []string                   `json:"completed_stages"`
	Data            map[string]json.RawMessage `json:"data"`
	Errors          []StageError               `json:"errors,omitempty"`
}

// Manager mediates all access to a run's state and checkpoints it after
// every significant mutation. A Manager is exclusively owned by one
// orchestrator execution per run id; it is deliberately not locked, and two
// concurrent executions must not share a run id.
type Manager struct {
	store Store
	state *RunState

	// now is injectable for tests.
	now func() time.Time
}

// NewManager returns a manager backed by the given store.
func NewManager(store Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// WithClock replaces the manager's time source. For tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// StartRun creates fresh state under a new run id. Ids are time-based for
// human-sortable checkpoint files, with a short random suffix so sub-second
// starts stay unique.
func (m *Manager) StartRun() *RunState {
	id := fmt.Sprintf("%s_%s", m.now().UTC().Format("20060102_150405"), uuid.NewString()[:8])
	m.state = &RunState{
		RunID:     id,
		StartedAt: m.now().UTC(),
		Status:    StatusRunning,
		Data:      make(map[string]json.RawMessage),
	}
	return m.state
}

// State returns the current run state, creating one if no run was started
// or resumed yet.
func (m *Manager) State() *RunState {
	if m.state == nil {
		return m.StartRun()
	}
	return m.state
}

// LoadCheckpoint rehydrates state from a stored snapshot. It returns false,
// leaving any current state untouched, when the snapshot is missing or
// malformed; a corrupt checkpoint means "start over", not "crash".
func (m *Manager) LoadCheckpoint(runID string) bool {
	if !m.store.Exists(runID) {
		return false
	}
	snapshot, err := m.store.Load(runID)
	if err != nil {
		return false
	}
	var st RunState
	if err := json.Unmarshal(snapshot, &st); err != nil {
		return false
	}
	if st.Data == nil {
		st.Data = make(map[string]json.RawMessage)
	}
	m.state = &st
	return true
}

// Checkpoint marks a stage complete and durably persists the full state.
// completedStages grows monotonically and never holds duplicates; it is the
// single source of truth for resume decisions.
func (m *Manager) Checkpoint(stage string) error {
	st := m.State()
	st.CurrentStage = stage
	if !contains(st.CompletedStages, stage) {
		st.CompletedStages = append(st.CompletedStages, stage)
	}
	return m.persist()
}

// CanResumeFrom reports whether a stage already completed in this run.
func (m *Manager) CanResumeFrom(stage string) bool {
	return contains(m.State().CompletedStages, stage)
}

// SetData stores an intermediate stage output under a pipeline-defined key.
func (m *Manager) SetData(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode data for key %s: %w", key, err)
	}
	m.State().Data[key] = raw
	return nil
}

// GetData decodes the value stored under key into out. It returns false when
// the key is absent.
func (m *Manager) GetData(key string, out any) (bool, error) {
	raw, ok := m.State().Data[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to decode data for key %s: %w", key, err)
	}
	return true, nil
}

// RecordError appends a stage failure to the run's error log.
func (m *Manager) RecordError(stage string, err error) {
	st := m.State()
	st.Errors = append(st.Errors, StageError{
		Stage:     stage,
		Message:   err.Error(),
		Timestamp: m.now().UTC(),
	})
}

// Complete finalises the run as successful and checkpoints the terminal
// snapshot.
func (m *Manager) Complete() error {
	st := m.State()
	now := m.now().UTC()
	st.Status = StatusCompleted
	st.CompletedAt = &now
	return m.persist()
}

// Fail finalises the run as failed, recording err against the current
// stage, and checkpoints the terminal snapshot.
func (m *Manager) Fail(err error) error {
	st := m.State()
	m.RecordError(st.CurrentStage, err)
	now := m.now().UTC()
	st.Status = StatusFailed
	st.CompletedAt = &now
	return m.persist()
}

func (m *Manager) persist() error {
	st := m.State()
	snapshot, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run state: %w", err)
	}
	if err := m.store.Save(st.RunID, snapshot); err != nil {
		return fmt.Errorf("failed to checkpoint run %s: %w", st.RunID, err)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
