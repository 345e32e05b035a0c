package state

import (
	"context"
	"sync"
)

// MemoryStore keeps the active record in process memory. Used by replay and tests.
type MemoryStore struct {
	mu  sync.Mutex
	rec *LaborState
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) (*LaborState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec == nil {
		return nil, nil
	}
	out := m.rec.Clone()
	return &out, nil
}

func (m *MemoryStore) Save(_ context.Context, s LaborState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var curSession string
	var curRev int64
	if m.rec != nil {
		curSession, curRev = m.rec.SessionID, m.rec.Revision
	}
	if err := checkRevision(m.rec != nil, curSession, curRev, s); err != nil {
		return err
	}
	c := s.Clone()
	m.rec = &c
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = nil
	return nil
}
