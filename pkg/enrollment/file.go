package enrollment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/tendant/gatekeeper/pkg/gate"
)

const ENROLLMENT_FILE = "enrollments.json"

// FileStore implements gate.EnrollmentStore on a single JSON file keyed by
// identity. Every write rewrites the whole file.
type FileStore struct {
	dataDir string
	records map[string]gate.EnrollmentRecord
	mutex   sync.RWMutex
}

// NewFileStore creates dataDir if needed and loads any existing enrollments.
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store := &FileStore{
		dataDir: dataDir,
		records: make(map[string]gate.EnrollmentRecord),
	}
	if err := store.load(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	slog.Info("Loaded enrollment file", "path", store.path(), "count", len(store.records))
	return store, nil
}

func (s *FileStore) Load(ctx context.Context, identity string) (*gate.EnrollmentRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	record, ok := s.records[identity]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (s *FileStore) Save(ctx context.Context, identity string, record gate.EnrollmentRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	previous, existed := s.records[identity]
	s.records[identity] = record
	if err := s.save(); err != nil {
		s.restore(identity, previous, existed)
		return err
	}
	return nil
}

func (s *FileStore) CreateIfAbsent(ctx context.Context, identity string, record gate.EnrollmentRecord) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	previous, existed := s.records[identity]
	if existed && previous.HasSecret() {
		return false, nil
	}
	s.records[identity] = record
	if err := s.save(); err != nil {
		s.restore(identity, previous, existed)
		return false, err
	}
	return true, nil
}

// restore undoes an in-memory change whose write failed. Caller holds the lock.
func (s *FileStore) restore(identity string, previous gate.EnrollmentRecord, existed bool) {
	if existed {
		s.records[identity] = previous
		return
	}
	delete(s.records, identity)
}

func (s *FileStore) path() string {
	return filepath.Join(s.dataDir, ENROLLMENT_FILE)
}

// load reads enrollments from file
func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	// If file is empty, start with empty map
	if len(data) == 0 {
		return nil
	}

	records := make(map[string]gate.EnrollmentRecord)
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}
	s.records = records
	return nil
}

// save writes enrollments to file atomically
func (s *FileStore) save() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	// The file holds raw secrets: owner read/write only.
	tempFile := s.path() + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tempFile, s.path()); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
