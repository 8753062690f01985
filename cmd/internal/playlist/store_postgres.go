package playlist

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over the playlists and playlist_tracks
// tables. ReplaceEntries runs delete + insert in one transaction so readers
// never observe a half-written list.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed playlist store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const playlistColumns = `id, owner_id, name, description, public, created_at`

// CreatePlaylist inserts a playlist header.
func (s *PostgresStore) CreatePlaylist(ctx context.Context, p Playlist) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO playlists (`+playlistColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.OwnerID, p.Name, p.Description, p.Public, p.CreatedAt)
	return err
}

// GetPlaylist loads one playlist header.
func (s *PostgresStore) GetPlaylist(ctx context.Context, id string) (Playlist, error) {
	return scanPlaylist(s.pool.QueryRow(ctx, `
		SELECT `+playlistColumns+` FROM playlists WHERE id = $1
	`, id))
}

// UpdatePlaylist replaces the header fields.
func (s *PostgresStore) UpdatePlaylist(ctx context.Context, p Playlist) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE playlists SET name = $2, description = $3, public = $4
		WHERE id = $1
	`, p.ID, p.Name, p.Description, p.Public)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePlaylist removes the header; entries go with it via ON DELETE CASCADE.
func (s *PostgresStore) DeletePlaylist(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByOwner lists the owner's playlists, oldest first.
func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID string) ([]Playlist, error) {
	return s.list(ctx, `
		SELECT `+playlistColumns+` FROM playlists
		WHERE owner_id = $1 ORDER BY created_at, id
	`, ownerID)
}

// ListPublic lists playlists marked public, oldest first.
func (s *PostgresStore) ListPublic(ctx context.Context) ([]Playlist, error) {
	return s.list(ctx, `
		SELECT `+playlistColumns+` FROM playlists
		WHERE public ORDER BY created_at, id
	`)
}

// SearchByName matches a case-insensitive substring of the name.
func (s *PostgresStore) SearchByName(ctx context.Context, q string) ([]Playlist, error) {
	needle := strings.TrimSpace(q)
	if needle == "" {
		return nil, nil
	}
	return s.list(ctx, `
		SELECT `+playlistColumns+` FROM playlists
		WHERE name ILIKE '%' || $1 || '%' ORDER BY created_at, id
	`, needle)
}

// ListEntries returns entries ordered by ascending position.
func (s *PostgresStore) ListEntries(ctx context.Context, playlistID string) ([]Entry, error) {
	if _, err := s.GetPlaylist(ctx, playlistID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT track_id, position FROM playlist_tracks
		WHERE playlist_id = $1 ORDER BY position
	`, playlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.TrackID, &e.Position); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ReplaceEntries swaps the full entry list transactionally.
func (s *PostgresStore) ReplaceEntries(ctx context.Context, playlistID string, entries []Entry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM playlists WHERE id = $1)
	`, playlistID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM playlist_tracks WHERE playlist_id = $1
	`, playlistID); err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := tx.Exec(ctx, `
			INSERT INTO playlist_tracks (playlist_id, track_id, position)
			VALUES ($1, $2, $3)
		`, playlistID, e.TrackID, e.Position); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) list(ctx context.Context, sql string, args ...any) ([]Playlist, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Playlist
	for rows.Next() {
		var p Playlist
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.Public, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPlaylist(row pgx.Row) (Playlist, error) {
	var p Playlist
	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.Public, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Playlist{}, ErrNotFound
	}
	if err != nil {
		return Playlist{}, err
	}
	return p, nil
}
