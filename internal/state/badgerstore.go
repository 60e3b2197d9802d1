package state

import (
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerStore keeps checkpoint snapshots in an embedded Badger database.
// Badger writes are transactional, so Save is atomic without the temp-file
// dance the file store needs.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) a Badger database at dir. The caller
// owns the store and must Close it.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint database %s: %w", dir, err)
	}
	return &BadgerStore{db: db}, nil
}

// Close releases the underlying database.
func (s *BadgerStore) Close() error { return s.db.Close() }

func checkpointKey(runID string) []byte {
	return []byte("checkpoint/" + runID)
}

// Save writes the snapshot in one transaction.
func (s *BadgerStore) Save(runID string, snapshot []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(checkpointKey(runID), snapshot)
	})
	if err != nil {
		return fmt.Errorf("failed to save checkpoint for run %s: %w", runID, err)
	}
	return nil
}

// Load reads the snapshot for a run.
func (s *BadgerStore) Load(runID string) ([]byte, error) {
	var snapshot []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(checkpointKey(runID))
		if err != nil {
			return err
		}
		snapshot, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint for run %s: %w", runID, err)
	}
	return snapshot, nil
}

// Exists reports whether a snapshot is present for a run.
func (s *BadgerStore) Exists(runID string) bool {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(checkpointKey(runID))
		return err
	})
	return !errors.Is(err, badger.ErrKeyNotFound) && err == nil
}
