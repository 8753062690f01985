package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over the artists, albums, and tracks tables.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed catalog store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// GetArtist loads one artist row.
func (s *PostgresStore) GetArtist(ctx context.Context, id string) (Artist, error) {
	var a Artist
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, country FROM artists WHERE id = $1
	`, id).Scan(&a.ID, &a.Name, &a.Country)
	if errors.Is(err, pgx.ErrNoRows) {
		return Artist{}, ErrNotFound
	}
	if err != nil {
		return Artist{}, err
	}
	return a, nil
}

// GetAlbum loads one album row.
func (s *PostgresStore) GetAlbum(ctx context.Context, id string) (Album, error) {
	var a Album
	err := s.pool.QueryRow(ctx, `
		SELECT id, artist_id, title, released_at FROM albums WHERE id = $1
	`, id).Scan(&a.ID, &a.ArtistID, &a.Title, &a.ReleasedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Album{}, ErrNotFound
	}
	if err != nil {
		return Album{}, err
	}
	return a, nil
}

// GetTrack loads one track row.
func (s *PostgresStore) GetTrack(ctx context.Context, id string) (Track, error) {
	var t Track
	var durationSec int64
	err := s.pool.QueryRow(ctx, `
		SELECT id, album_id, artist_id, title, genre, duration_sec
		FROM tracks WHERE id = $1
	`, id).Scan(&t.ID, &t.AlbumID, &t.ArtistID, &t.Title, &t.Genre, &durationSec)
	if errors.Is(err, pgx.ErrNoRows) {
		return Track{}, ErrNotFound
	}
	if err != nil {
		return Track{}, err
	}
	t.Duration = secondsToDuration(durationSec)
	return t, nil
}

// ListArtists pages artists in stable id order.
func (s *PostgresStore) ListArtists(ctx context.Context, limit, offset int) ([]Artist, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, country FROM artists
		ORDER BY id LIMIT $1 OFFSET $2
	`, clampLimit(limit), max(offset, 0))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Artist
	for rows.Next() {
		var a Artist
		if err := rows.Scan(&a.ID, &a.Name, &a.Country); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListAlbumsByArtist lists an artist's albums, newest release first.
func (s *PostgresStore) ListAlbumsByArtist(ctx context.Context, artistID string) ([]Album, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, artist_id, title, released_at FROM albums
		WHERE artist_id = $1
		ORDER BY released_at DESC, id
	`, artistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Album
	for rows.Next() {
		var a Album
		if err := rows.Scan(&a.ID, &a.ArtistID, &a.Title, &a.ReleasedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListTracks pages the whole catalog in stable id order.
func (s *PostgresStore) ListTracks(ctx context.Context, limit, offset int) ([]Track, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, album_id, artist_id, title, genre, duration_sec
		FROM tracks ORDER BY id LIMIT $1 OFFSET $2
	`, clampLimit(limit), max(offset, 0))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTracks(rows)
}

// ListTracksByGenre matches the genre exactly, case-insensitively.
func (s *PostgresStore) ListTracksByGenre(ctx context.Context, genre string, limit int) ([]Track, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, album_id, artist_id, title, genre, duration_sec
		FROM tracks WHERE lower(genre) = $1
		ORDER BY id LIMIT $2
	`, strings.ToLower(strings.TrimSpace(genre)), clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTracks(rows)
}

func scanTracks(rows pgx.Rows) ([]Track, error) {
	var out []Track
	for rows.Next() {
		var t Track
		var durationSec int64
		if err := rows.Scan(&t.ID, &t.AlbumID, &t.ArtistID, &t.Title, &t.Genre, &durationSec); err != nil {
			return nil, err
		}
		t.Duration = secondsToDuration(durationSec)
		out = append(out, t)
	}
	return out, rows.Err()
}

const defaultListLimit = 100

func clampLimit(limit int) int {
	if limit <= 0 || limit > defaultListLimit {
		return defaultListLimit
	}
	return limit
}
