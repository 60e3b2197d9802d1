// Package jobs tracks asynchronous pipeline runs for the polling API. The
// registry is in-memory and capped: once full, the oldest job is evicted to
// make room. It is a best-effort cache, not a durable queue: a restart
// forgets every job, while durable run identity lives in the checkpoint
// store.
package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status of an asynchronous run.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Job is one tracked run.
type Job struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Result    any       `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// DefaultMaxJobs bounds the registry when no cap is given.
const DefaultMaxJobs = 100

// Manager is a lock-protected job registry. Construct one and inject it
// wherever async runs are started; it is safe for concurrent callers, and
// every read-modify-write happens under the lock.
type Manager struct {
	mu      sync.Mutex
	maxJobs int
	order   []string // creation order, oldest first
	jobs    map[string]*Job
	now     func() time.Time
}

// NewManager returns a registry holding at most maxJobs entries.
func NewManager(maxJobs int) *Manager {
	if maxJobs <= 0 {
		maxJobs = DefaultMaxJobs
	}
	return &Manager{
		maxJobs: maxJobs,
		jobs:    make(map[string]*Job),
		now:     time.Now,
	}
}

// Create registers a new pending job and returns its id, evicting the
// oldest job first when the registry is full.
func (m *Manager) Create() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.order) >= m.maxJobs {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.jobs, oldest)
	}

	id := uuid.NewString()
	now := m.now()
	m.jobs[id] = &Job{
		ID:        id,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.order = append(m.order, id)
	return id
}

// Update sets a job's status and optionally its result or error. Updates to
// evicted or unknown ids are dropped.
func (m *Manager) Update(id string, status Status, result any, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]
	if !ok {
		return
	}
	j.Status = status
	if result != nil {
		j.Result = result
	}
	if errMsg != "" {
		j.Error = errMsg
	}
	j.UpdatedAt = m.now()
}

// Get returns a copy of the job, or false if it is unknown or was evicted.
func (m *Manager) Get(id string) (Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// List returns copies of all live jobs, oldest first.
func (m *Manager) List() []Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Job, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.jobs[id])
	}
	return out
}
