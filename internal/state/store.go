package state

// Store persists checkpoint snapshots keyed by run id. Implementations must
// make Save atomic: a reader never observes a partially written snapshot.
type Store interface {
	// Save durably writes the snapshot for a run, replacing any previous one.
	Save(runID string, snapshot []byte) error
	// Load returns the snapshot for a run.
	Load(runID string) ([]byte, error)
	// Exists reports whether a snapshot is present for a run.
	Exists(runID string) bool
}
