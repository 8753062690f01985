package playlist

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/freegatik/music-streaming/cmd/internal/catalog"
)

// Service implements the ordering rules on top of a Store. Track existence
// and metadata come from the catalog read model.
type Service struct {
	store   Store
	catalog catalog.Store

	now     func() time.Time
	shuffle func(n int, swap func(i, j int))
}

// NewService constructs a playlist Service.
func NewService(store Store, cat catalog.Store) *Service {
	return &Service{
		store:   store,
		catalog: cat,
		now:     func() time.Time { return time.Now().UTC() },
		shuffle: rand.Shuffle,
	}
}

// Create makes an empty playlist for owner.
func (s *Service) Create(ctx context.Context, ownerID, name, description string, public bool) (Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Playlist{}, fmt.Errorf("%w: empty name", ErrInvalidInput)
	}
	p := Playlist{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        name,
		Description: strings.TrimSpace(description),
		Public:      public,
		CreatedAt:   s.now(),
	}
	if err := s.store.CreatePlaylist(ctx, p); err != nil {
		return Playlist{}, err
	}
	return p, nil
}

// Get loads one playlist header.
func (s *Service) Get(ctx context.Context, id string) (Playlist, error) {
	return s.store.GetPlaylist(ctx, id)
}

// ListByOwner lists a user's playlists, oldest first.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]Playlist, error) {
	return s.store.ListByOwner(ctx, ownerID)
}

// ListPublic lists playlists marked public.
func (s *Service) ListPublic(ctx context.Context) ([]Playlist, error) {
	return s.store.ListPublic(ctx)
}

// SearchByName finds playlists whose name contains q, case-insensitively.
func (s *Service) SearchByName(ctx context.Context, q string) ([]Playlist, error) {
	return s.store.SearchByName(ctx, q)
}

// Rename updates the header fields of a playlist.
func (s *Service) Rename(ctx context.Context, id, name, description string, public bool) (Playlist, error) {
	p, err := s.store.GetPlaylist(ctx, id)
	if err != nil {
		return Playlist{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Playlist{}, fmt.Errorf("%w: empty name", ErrInvalidInput)
	}
	p.Name = name
	p.Description = strings.TrimSpace(description)
	p.Public = public
	if err := s.store.UpdatePlaylist(ctx, p); err != nil {
		return Playlist{}, err
	}
	return p, nil
}

// Delete removes a playlist and its entries.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeletePlaylist(ctx, id)
}

// AddTrack appends a catalog track, or places it at an explicit position.
//
// A nil or negative position means append. A position already taken does
// not displace the occupant: the list is renumbered to a dense sequence
// and the new track goes to the end.
func (s *Service) AddTrack(ctx context.Context, playlistID, trackID string, position *int) error {
	if _, err := s.store.GetPlaylist(ctx, playlistID); err != nil {
		return err
	}
	if _, err := s.catalog.GetTrack(ctx, trackID); err != nil {
		return fmt.Errorf("%w: unknown track %s", ErrInvalidInput, trackID)
	}

	entries, err := s.store.ListEntries(ctx, playlistID)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.TrackID == trackID {
			return ErrDuplicateTrack
		}
	}

	pos := -1
	if position != nil {
		pos = *position
	}
	if pos < 0 {
		pos = nextPosition(entries)
	} else if taken(entries, pos) {
		entries = renumber(entries)
		pos = nextPosition(entries)
	}

	entries = append(entries, Entry{TrackID: trackID, Position: pos})
	return s.store.ReplaceEntries(ctx, playlistID, entries)
}

// RemoveTrackAt deletes the entry at position and closes the gap.
func (s *Service) RemoveTrackAt(ctx context.Context, playlistID string, position int) error {
	entries, err := s.store.ListEntries(ctx, playlistID)
	if err != nil {
		return err
	}

	idx := -1
	for i, e := range entries {
		if e.Position == position {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrPositionNotFound
	}

	entries = append(entries[:idx], entries[idx+1:]...)
	return s.store.ReplaceEntries(ctx, playlistID, renumber(entries))
}

// Move places trackID at newPosition, shifting the rest. Out-of-range
// targets are clamped to the list bounds rather than rejected.
func (s *Service) Move(ctx context.Context, playlistID, trackID string, newPosition int) error {
	entries, err := s.store.ListEntries(ctx, playlistID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return ErrEmptyPlaylist
	}

	idx := -1
	for i, e := range entries {
		if e.TrackID == trackID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrTrackNotFound
	}

	target := entries[idx]
	rest := append(entries[:idx:idx], entries[idx+1:]...)

	pos := newPosition
	if pos < 0 {
		pos = 0
	}
	if pos > len(rest) {
		pos = len(rest)
	}

	out := make([]Entry, 0, len(rest)+1)
	out = append(out, rest[:pos]...)
	out = append(out, target)
	out = append(out, rest[pos:]...)
	return s.store.ReplaceEntries(ctx, playlistID, renumber(out))
}

// Shuffle randomizes the order of a non-empty playlist.
func (s *Service) Shuffle(ctx context.Context, playlistID string) error {
	entries, err := s.store.ListEntries(ctx, playlistID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return ErrEmptyPlaylist
	}

	s.shuffle(len(entries), func(i, j int) {
		entries[i], entries[j] = entries[j], entries[i]
	})
	return s.store.ReplaceEntries(ctx, playlistID, renumber(entries))
}

// Clone copies a playlist into targetOwner's library, preserving track
// order and renumbering from zero. Empty name or description fall back to
// the source's, with " (copy)" appended to the name.
func (s *Service) Clone(ctx context.Context, sourceID, targetOwnerID, name, description string, public bool) (Playlist, error) {
	src, err := s.store.GetPlaylist(ctx, sourceID)
	if err != nil {
		return Playlist{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = src.Name + " (copy)"
	}
	description = strings.TrimSpace(description)
	if description == "" {
		description = src.Description
	}

	clone, err := s.Create(ctx, targetOwnerID, name, description, public)
	if err != nil {
		return Playlist{}, err
	}

	entries, err := s.store.ListEntries(ctx, sourceID)
	if err != nil {
		return Playlist{}, err
	}
	if err := s.store.ReplaceEntries(ctx, clone.ID, renumber(entries)); err != nil {
		return Playlist{}, err
	}
	return clone, nil
}

// DailyMixRequest parameterizes DailyMix. Zero values mean defaults.
type DailyMixRequest struct {
	Name        string
	Description string
	Genre       string
	Limit       int
	MakePublic  bool
}

const defaultMixLimit = 10

// DailyMix builds a playlist sampled from the user's library.
//
// Candidates are the user's tracks deduplicated in first-seen order,
// walking playlists oldest first and entries by position, optionally
// filtered by genre. If that yields fewer than limit tracks the catalog
// tops the list up. The final list is capped to limit and shuffled.
func (s *Service) DailyMix(ctx context.Context, ownerID string, req DailyMixRequest) (Playlist, []Entry, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultMixLimit
	}
	genre := strings.TrimSpace(req.Genre)

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "Daily Mix " + s.now().Format("2006-01-02")
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = "Automatic playlist built from your favorite tracks"
	}

	candidates, err := s.mixCandidates(ctx, ownerID, genre, limit)
	if err != nil {
		return Playlist{}, nil, err
	}
	if len(candidates) == 0 {
		return Playlist{}, nil, ErrNoCandidates
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	s.shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	mix, err := s.Create(ctx, ownerID, name, description, req.MakePublic)
	if err != nil {
		return Playlist{}, nil, err
	}

	entries := make([]Entry, len(candidates))
	for i, trackID := range candidates {
		entries[i] = Entry{TrackID: trackID, Position: i}
	}
	if err := s.store.ReplaceEntries(ctx, mix.ID, entries); err != nil {
		return Playlist{}, nil, err
	}
	return mix, entries, nil
}

func (s *Service) mixCandidates(ctx context.Context, ownerID, genre string, limit int) ([]string, error) {
	lists, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var candidates []string
	for _, p := range lists {
		entries, err := s.store.ListEntries(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if seen[e.TrackID] {
				continue
			}
			if genre != "" {
				tr, err := s.catalog.GetTrack(ctx, e.TrackID)
				if err != nil || !strings.EqualFold(tr.Genre, genre) {
					continue
				}
			}
			seen[e.TrackID] = true
			candidates = append(candidates, e.TrackID)
		}
	}

	if len(candidates) >= limit {
		return candidates, nil
	}

	// Library too thin: top up from the catalog at large.
	var fallback []catalog.Track
	if genre != "" {
		fallback, err = s.catalog.ListTracksByGenre(ctx, genre, limit+len(candidates))
	} else {
		fallback, err = s.catalog.ListTracks(ctx, limit+len(candidates), 0)
	}
	if err != nil {
		return nil, err
	}
	for _, tr := range fallback {
		if len(candidates) >= limit {
			break
		}
		if !seen[tr.ID] {
			seen[tr.ID] = true
			candidates = append(candidates, tr.ID)
		}
	}
	return candidates, nil
}

// TrackView is one playlist row joined with its catalog metadata.
type TrackView struct {
	Position int
	Track    catalog.Track
}

// View returns the playlist's tracks in order with catalog metadata.
// Entries whose track has left the catalog are skipped, not errors.
func (s *Service) View(ctx context.Context, playlistID string) ([]TrackView, error) {
	if _, err := s.store.GetPlaylist(ctx, playlistID); err != nil {
		return nil, err
	}
	entries, err := s.store.ListEntries(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	out := make([]TrackView, 0, len(entries))
	for _, e := range entries {
		tr, err := s.catalog.GetTrack(ctx, e.TrackID)
		if err != nil {
			continue
		}
		out = append(out, TrackView{Position: e.Position, Track: tr})
	}
	return out, nil
}

// Summary aggregates the owner's library: playlist count, entry count,
// and total playing time.
func (s *Service) Summary(ctx context.Context, ownerID string) (LibrarySummary, error) {
	lists, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return LibrarySummary{}, err
	}

	sum := LibrarySummary{PlaylistCount: len(lists)}
	for _, p := range lists {
		entries, err := s.store.ListEntries(ctx, p.ID)
		if err != nil {
			return LibrarySummary{}, err
		}
		sum.TrackCount += len(entries)
		for _, e := range entries {
			if tr, err := s.catalog.GetTrack(ctx, e.TrackID); err == nil {
				sum.TotalDuration += tr.Duration
			}
		}
	}
	return sum, nil
}

// renumber rewrites positions to a dense 0..n-1 sequence, preserving order.
func renumber(entries []Entry) []Entry {
	for i := range entries {
		entries[i].Position = i
	}
	return entries
}

func nextPosition(entries []Entry) int {
	next := 0
	for _, e := range entries {
		if e.Position >= next {
			next = e.Position + 1
		}
	}
	return next
}

func taken(entries []Entry, pos int) bool {
	for _, e := range entries {
		if e.Position == pos {
			return true
		}
	}
	return false
}
