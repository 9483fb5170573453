// pkg/database/store.go
package database

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/diem-pm/diem/pkg/core"
)

// Record is the persisted metadata describing one installed package.
type Record struct {
	core.Package
	InstalledFrom string    `json:"installedFrom,omitempty"` // provider path or download URL
	InstalledAt   time.Time `json:"installedAt"`
}

// Store is the JSON-backed package database. It is the sole source of
// truth for what is installed; every mutating operation performs a
// read-modify-write of the whole document. There is no cross-process
// locking, so concurrent CLI invocations can race.
type Store struct {
	path   string
	logger *zap.SugaredLogger
}

// New creates a Store backed by the JSON document at path. The file is
// created on first write.
func New(path string, logger *zap.SugaredLogger) *Store {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Get looks up the record for a reference, falling back to a legacy
// bare-name key for entries written before provider qualification.
func (s *Store) Get(ref core.Reference) (*Record, error) {
	records, err := s.load()
	if err != nil {
		return nil, err
	}

	if rec, ok := records[ref.Key()]; ok {
		return rec, nil
	}
	if rec, ok := records[ref.Name]; ok {
		return rec, nil
	}

	return nil, fmt.Errorf("%w: %s", core.ErrPackageNotFound, ref)
}

// Put inserts or replaces the record under its reference key.
func (s *Store) Put(rec *Record) error {
	records, err := s.load()
	if err != nil {
		return err
	}

	records[rec.Reference().Key()] = rec
	return s.save(records)
}

// Delete removes the record for a reference. Legacy bare-name entries
// are removed as well. Deleting an absent key is not an error.
func (s *Store) Delete(ref core.Reference) error {
	records, err := s.load()
	if err != nil {
		return err
	}

	delete(records, ref.Key())
	delete(records, ref.Name)
	return s.save(records)
}

// All returns every installed record keyed by reference.
func (s *Store) All() (map[string]*Record, error) {
	return s.load()
}

func (s *Store) load() (map[string]*Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*Record), nil
		}
		return nil, fmt.Errorf("reading package database: %w", err)
	}

	records := make(map[string]*Record)
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing package database %s: %w", s.path, err)
	}

	return records, nil
}

// save writes the database through a temp file and rename so a crashed
// write never truncates the document.
func (s *Store) save(records map[string]*Record) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling package database: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".packages-*.json")
	if err != nil {
		return fmt.Errorf("creating temp database file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing package database: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing temp database file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing package database: %w", err)
	}

	s.logger.Debugf("Wrote package database (%d entries) to %s", len(records), s.path)
	return nil
}
