package state

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps one checkpoint file per run under a state directory,
// named checkpoint_<runID>.json. Writes go through a temp file and rename so
// a crash mid-write never corrupts the previous snapshot.
type FileStore struct {
	dir string
}

// NewFileStore creates the state directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(runID string) string {
	return filepath.Join(s.dir, "checkpoint_"+runID+".json")
}

// Save writes the snapshot atomically.
func (s *FileStore) Save(runID string, snapshot []byte) error {
	final := s.path(runID)
	tmp, err := os.CreateTemp(s.dir, "checkpoint_*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp checkpoint: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(snapshot); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close checkpoint: %w", err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to commit checkpoint: %w", err)
	}
	return nil
}

// Load reads the snapshot for a run.
func (s *FileStore) Load(runID string) ([]byte, error) {
	data, err := os.ReadFile(s.path(runID))
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint for run %s: %w", runID, err)
	}
	return data, nil
}

// Exists reports whether a checkpoint file is present.
func (s *FileStore) Exists(runID string) bool {
	_, err := os.Stat(s.path(runID))
	return err == nil
}
