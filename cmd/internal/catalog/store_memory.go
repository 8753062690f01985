package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory catalog for tests and DB-less dev mode.
// Seed it with Put* before serving; reads are safe for concurrent use
// with further writes.
type MemoryStore struct {
	mu      sync.RWMutex
	artists map[string]Artist
	albums  map[string]Album
	tracks  map[string]Track
}

// NewMemoryStore creates an empty in-memory catalog.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		artists: make(map[string]Artist),
		albums:  make(map[string]Album),
		tracks:  make(map[string]Track),
	}
}

// PutArtist inserts or replaces an artist.
func (m *MemoryStore) PutArtist(a Artist) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artists[a.ID] = a
}

// PutAlbum inserts or replaces an album.
func (m *MemoryStore) PutAlbum(a Album) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.albums[a.ID] = a
}

// PutTrack inserts or replaces a track.
func (m *MemoryStore) PutTrack(t Track) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracks[t.ID] = t
}

// GetArtist looks up an artist by id.
func (m *MemoryStore) GetArtist(_ context.Context, id string) (Artist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.artists[id]
	if !ok {
		return Artist{}, ErrNotFound
	}
	return a, nil
}

// GetAlbum looks up an album by id.
func (m *MemoryStore) GetAlbum(_ context.Context, id string) (Album, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.albums[id]
	if !ok {
		return Album{}, ErrNotFound
	}
	return a, nil
}

// GetTrack looks up a track by id.
func (m *MemoryStore) GetTrack(_ context.Context, id string) (Track, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tracks[id]
	if !ok {
		return Track{}, ErrNotFound
	}
	return t, nil
}

// ListArtists pages artists in stable id order.
func (m *MemoryStore) ListArtists(_ context.Context, limit, offset int) ([]Artist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]Artist, 0, len(m.artists))
	for _, a := range m.artists {
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return page(all, limit, offset), nil
}

// ListAlbumsByArtist lists an artist's albums, newest release first.
func (m *MemoryStore) ListAlbumsByArtist(_ context.Context, artistID string) ([]Album, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Album
	for _, a := range m.albums {
		if a.ArtistID == artistID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReleasedAt.Equal(out[j].ReleasedAt) {
			return out[i].ReleasedAt.After(out[j].ReleasedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ListTracks pages the whole catalog in stable id order.
func (m *MemoryStore) ListTracks(_ context.Context, limit, offset int) ([]Track, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return page(m.sortedTracks(), limit, offset), nil
}

// ListTracksByGenre matches the genre exactly, case-insensitively.
func (m *MemoryStore) ListTracksByGenre(_ context.Context, genre string, limit int) ([]Track, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	want := strings.ToLower(strings.TrimSpace(genre))
	var out []Track
	for _, t := range m.sortedTracks() {
		if strings.ToLower(t.Genre) == want {
			out = append(out, t)
		}
	}
	return page(out, limit, 0), nil
}

func (m *MemoryStore) sortedTracks() []Track {
	all := make([]Track, 0, len(m.tracks))
	for _, t := range m.tracks {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

func page[T any](all []T, limit, offset int) []T {
	limit = clampLimit(limit)
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}
