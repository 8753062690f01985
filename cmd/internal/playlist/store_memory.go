package playlist

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory playlist store for tests and DB-less dev mode.
type MemoryStore struct {
	mu      sync.Mutex
	lists   map[string]Playlist
	entries map[string][]Entry // playlist id -> ordered entries
}

// NewMemoryStore creates an empty in-memory playlist store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lists:   make(map[string]Playlist),
		entries: make(map[string][]Entry),
	}
}

// CreatePlaylist inserts a playlist header with no entries.
func (m *MemoryStore) CreatePlaylist(_ context.Context, p Playlist) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[p.ID] = p
	return nil
}

// GetPlaylist loads one playlist header.
func (m *MemoryStore) GetPlaylist(_ context.Context, id string) (Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.lists[id]
	if !ok {
		return Playlist{}, ErrNotFound
	}
	return p, nil
}

// UpdatePlaylist replaces a playlist header.
func (m *MemoryStore) UpdatePlaylist(_ context.Context, p Playlist) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lists[p.ID]; !ok {
		return ErrNotFound
	}
	m.lists[p.ID] = p
	return nil
}

// DeletePlaylist removes a playlist and its entries.
func (m *MemoryStore) DeletePlaylist(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lists[id]; !ok {
		return ErrNotFound
	}
	delete(m.lists, id)
	delete(m.entries, id)
	return nil
}

// ListByOwner lists the owner's playlists, oldest first.
func (m *MemoryStore) ListByOwner(_ context.Context, ownerID string) ([]Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Playlist
	for _, p := range m.lists {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	sortByCreation(out)
	return out, nil
}

// ListPublic lists playlists marked public, oldest first.
func (m *MemoryStore) ListPublic(_ context.Context) ([]Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Playlist
	for _, p := range m.lists {
		if p.Public {
			out = append(out, p)
		}
	}
	sortByCreation(out)
	return out, nil
}

// SearchByName matches a case-insensitive substring of the name.
func (m *MemoryStore) SearchByName(_ context.Context, q string) ([]Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	needle := strings.ToLower(strings.TrimSpace(q))
	var out []Playlist
	for _, p := range m.lists {
		if needle != "" && strings.Contains(strings.ToLower(p.Name), needle) {
			out = append(out, p)
		}
	}
	sortByCreation(out)
	return out, nil
}

// ListEntries returns a copy of the entry list ordered by position.
func (m *MemoryStore) ListEntries(_ context.Context, playlistID string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.lists[playlistID]; !ok {
		return nil, ErrNotFound
	}
	src := m.entries[playlistID]
	out := make([]Entry, len(src))
	copy(out, src)
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// ReplaceEntries swaps the full entry list.
func (m *MemoryStore) ReplaceEntries(_ context.Context, playlistID string, entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.lists[playlistID]; !ok {
		return ErrNotFound
	}
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	m.entries[playlistID] = cp
	return nil
}

func sortByCreation(ps []Playlist) {
	sort.Slice(ps, func(i, j int) bool {
		if !ps[i].CreatedAt.Equal(ps[j].CreatedAt) {
			return ps[i].CreatedAt.Before(ps[j].CreatedAt)
		}
		return ps[i].ID < ps[j].ID
	})
}
