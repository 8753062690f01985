package session

import (
	"context"
	"errors"
	"sync"
)

// MemoryStore is an in-memory Store used by tests and DB-less dev mode.
// All methods are safe for concurrent use.
type MemoryStore struct {
	mu       sync.Mutex
	byID     map[string]Session
	byDigest map[string]string // refresh digest -> session id
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:     make(map[string]Session),
		byDigest: make(map[string]string),
	}
}

// Save persists a new session record. A refresh digest maps to at most one
// session ever; a second Save with the same digest is rejected.
func (m *MemoryStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[s.ID]; ok {
		return errors.New("memory store: duplicate session id")
	}
	if _, ok := m.byDigest[s.RefreshDigest]; ok {
		return errors.New("memory store: duplicate refresh digest")
	}

	m.byID[s.ID] = s
	m.byDigest[s.RefreshDigest] = s.ID
	return nil
}

// FindByID loads a session by id.
func (m *MemoryStore) FindByID(_ context.Context, id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.byID[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return s, nil
}

// FindByRefreshDigest loads a session by refresh-token digest.
func (m *MemoryStore) FindByRefreshDigest(_ context.Context, digest string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byDigest[digest]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return m.byID[id], nil
}

// CompareAndSetStatus atomically swaps the status if it still equals expected.
func (m *MemoryStore) CompareAndSetStatus(_ context.Context, id string, expected, next Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.byID[id]
	if !ok {
		return false, ErrSessionNotFound
	}
	if s.Status != expected {
		return false, nil
	}
	s.Status = next
	m.byID[id] = s
	return true, nil
}

// RevokeAllActive moves every ACTIVE session for contact to REVOKED.
func (m *MemoryStore) RevokeAllActive(_ context.Context, contact string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, s := range m.byID {
		if s.SubjectContact == contact && s.Status == StatusActive {
			s.Status = StatusRevoked
			m.byID[id] = s
		}
	}
	return nil
}
