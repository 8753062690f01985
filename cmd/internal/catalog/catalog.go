// Package catalog is the read model for artists, albums, and tracks.
//
// The catalog is maintained out of band (ingest tooling, admin imports);
// this service only reads it, so the store surface is lookup and listing.
package catalog

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a catalog entity does not exist.
var ErrNotFound = errors.New("catalog: not found")

// Artist is a performing artist or band.
type Artist struct {
	ID      string
	Name    string
	Country string
}

// Album groups tracks under one release.
type Album struct {
	ID         string
	ArtistID   string
	Title      string
	ReleasedAt time.Time
}

// Track is a single playable recording.
type Track struct {
	ID       string
	AlbumID  string
	ArtistID string
	Title    string
	Genre    string
	Duration time.Duration
}

// Store is the catalog persistence boundary.
type Store interface {
	GetArtist(ctx context.Context, id string) (Artist, error)
	GetAlbum(ctx context.Context, id string) (Album, error)
	GetTrack(ctx context.Context, id string) (Track, error)

	ListArtists(ctx context.Context, limit, offset int) ([]Artist, error)
	ListAlbumsByArtist(ctx context.Context, artistID string) ([]Album, error)

	// ListTracks pages through the whole catalog in stable id order.
	ListTracks(ctx context.Context, limit, offset int) ([]Track, error)

	// ListTracksByGenre matches the genre exactly, case-insensitively.
	ListTracksByGenre(ctx context.Context, genre string, limit int) ([]Track, error)
}

// Track durations are stored as whole seconds.
func secondsToDuration(s int64) time.Duration { return time.Duration(s) * time.Second }

