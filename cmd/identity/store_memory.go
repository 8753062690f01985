package identity

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory user store for tests and DB-less dev mode.
type MemoryStore struct {
	mu     sync.Mutex
	byID   map[string]User
	byNorm map[string]string // normalized username/email -> user id
}

// NewMemoryStore creates an empty in-memory user store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]User),
		byNorm: make(map[string]string),
	}
}

// CreateUser registers a user, enforcing contact uniqueness the way the
// Postgres schema constraints do.
func (m *MemoryStore) CreateUser(_ context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	u, err := buildUser(op, in)
	if err != nil {
		return User{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	unameNorm := NormalizeUsername(u.Username)
	emailNorm := NormalizeEmail(u.Email)

	if _, taken := m.byNorm[unameNorm]; taken {
		return User{}, ConflictError{Op: op, Field: "username"}
	}
	if _, taken := m.byNorm[emailNorm]; taken {
		return User{}, ConflictError{Op: op, Field: "email"}
	}

	m.byID[u.ID] = u
	m.byNorm[unameNorm] = u.ID
	m.byNorm[emailNorm] = u.ID
	return u, nil
}

// ResolveByContact matches a normalized username or email.
func (m *MemoryStore) ResolveByContact(_ context.Context, contact string) (User, error) {
	const op = "identity.ResolveByContact"

	norm := NormalizeUsername(contact)
	if norm == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "empty contact"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byNorm[norm]
	if !ok {
		return User{}, OpError{Op: op, Kind: ErrNotFound}
	}
	return m.byID[id], nil
}

// GetByID loads a user by id.
func (m *MemoryStore) GetByID(_ context.Context, id string) (User, error) {
	const op = "identity.GetByID"

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return User{}, OpError{Op: op, Kind: ErrNotFound}
	}
	return u, nil
}

// UpdatePassword replaces the stored password hash.
func (m *MemoryStore) UpdatePassword(_ context.Context, id string, passwordHash string) error {
	const op = "identity.UpdatePassword"

	if passwordHash == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "empty hash"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return OpError{Op: op, Kind: ErrNotFound}
	}
	u.PasswordHash = passwordHash
	m.byID[id] = u
	return nil
}
