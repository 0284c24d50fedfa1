package enrollment

import (
	"context"
	"sync"

	"github.com/tendant/gatekeeper/pkg/gate"
)

// MemoryStore keeps enrollments in process memory. Records are lost on
// restart, so it suits tests and single-instance demos.
type MemoryStore struct {
	records map[string]gate.EnrollmentRecord
	mutex   sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]gate.EnrollmentRecord)}
}

func (s *MemoryStore) Load(ctx context.Context, identity string) (*gate.EnrollmentRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	record, ok := s.records[identity]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (s *MemoryStore) Save(ctx context.Context, identity string, record gate.EnrollmentRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.records[identity] = record
	return nil
}

func (s *MemoryStore) CreateIfAbsent(ctx context.Context, identity string, record gate.EnrollmentRecord) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if existing, ok := s.records[identity]; ok && existing.HasSecret() {
		return false, nil
	}
	s.records[identity] = record
	return true, nil
}
