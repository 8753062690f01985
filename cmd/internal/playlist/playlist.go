// Package playlist maintains user playlists as dense ordered lists.
//
// Every mutation leaves positions as a gap-free 0..n-1 sequence. The
// ordering rules live in Service; stores persist playlists and their
// entry lists without interpreting positions.
package playlist

import (
	"context"
	"errors"
	"time"
)

// Stable errors for callers and status-code mapping.
var (
	ErrNotFound         = errors.New("playlist: not found")
	ErrInvalidInput     = errors.New("playlist: invalid input")
	ErrDuplicateTrack   = errors.New("playlist: track already in playlist")
	ErrPositionNotFound = errors.New("playlist: no track at position")
	ErrTrackNotFound    = errors.New("playlist: track not in playlist")
	ErrEmptyPlaylist    = errors.New("playlist: playlist is empty")
	ErrNoCandidates     = errors.New("playlist: not enough tracks to build a mix")
)

// Playlist is the list header; entries are stored separately.
type Playlist struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	Public      bool
	CreatedAt   time.Time
}

// Entry places one track at one position. Within a playlist both the
// track and the position are unique.
type Entry struct {
	TrackID  string
	Position int
}

// LibrarySummary aggregates a user's whole library.
type LibrarySummary struct {
	PlaylistCount int
	TrackCount    int
	TotalDuration time.Duration
}

// Store is the playlist persistence boundary.
type Store interface {
	CreatePlaylist(ctx context.Context, p Playlist) error
	GetPlaylist(ctx context.Context, id string) (Playlist, error)
	UpdatePlaylist(ctx context.Context, p Playlist) error
	DeletePlaylist(ctx context.Context, id string) error

	// ListByOwner returns the owner's playlists ordered by creation time,
	// oldest first. Daily-mix candidate ordering depends on this.
	ListByOwner(ctx context.Context, ownerID string) ([]Playlist, error)
	ListPublic(ctx context.Context) ([]Playlist, error)
	SearchByName(ctx context.Context, q string) ([]Playlist, error)

	// ListEntries returns entries ordered by ascending position.
	ListEntries(ctx context.Context, playlistID string) ([]Entry, error)

	// ReplaceEntries atomically swaps the full entry list.
	ReplaceEntries(ctx context.Context, playlistID string, entries []Entry) error
}
