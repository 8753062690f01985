package session

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on the user_sessions table.
//
// The table carries a unique index on refresh_digest, which enforces the
// one-digest-one-session invariant at the storage layer.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed session store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Save inserts a new session row.
func (s *PostgresStore) Save(ctx context.Context, rec Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_sessions (
			id, subject_contact, device_id,
			access_token, refresh_digest,
			access_expires_at, refresh_expires_at,
			status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		rec.ID, rec.SubjectContact, rec.DeviceID,
		rec.AccessToken, rec.RefreshDigest,
		rec.AccessExpiresAt, rec.RefreshExpiresAt,
		string(rec.Status), rec.CreatedAt,
	)
	return err
}

const sessionColumns = `
	id, subject_contact, device_id,
	access_token, refresh_digest,
	access_expires_at, refresh_expires_at,
	status, created_at
`

// FindByID loads a session row by id.
func (s *PostgresStore) FindByID(ctx context.Context, id string) (Session, error) {
	return s.scanOne(s.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM user_sessions
		WHERE id = $1
	`, id))
}

// FindByRefreshDigest loads a session row by refresh-token digest.
func (s *PostgresStore) FindByRefreshDigest(ctx context.Context, digest string) (Session, error) {
	return s.scanOne(s.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM user_sessions
		WHERE refresh_digest = $1
	`, digest))
}

// CompareAndSetStatus performs the conditional status transition. The WHERE
// clause on the prior status makes the write a compare-and-swap: a row count
// of zero means another writer got there first (or the id is unknown).
func (s *PostgresStore) CompareAndSetStatus(ctx context.Context, id string, expected, next Status) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE user_sessions
		SET status = $3
		WHERE id = $1 AND status = $2
	`, id, string(expected), string(next))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RevokeAllActive moves every ACTIVE session for contact to REVOKED.
func (s *PostgresStore) RevokeAllActive(ctx context.Context, contact string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE user_sessions
		SET status = $2
		WHERE subject_contact = $1 AND status = $3
	`, contact, string(StatusRevoked), string(StatusActive))
	return err
}

func (s *PostgresStore) scanOne(row pgx.Row) (Session, error) {
	var rec Session
	var status string

	err := row.Scan(
		&rec.ID,
		&rec.SubjectContact,
		&rec.DeviceID,
		&rec.AccessToken,
		&rec.RefreshDigest,
		&rec.AccessExpiresAt,
		&rec.RefreshExpiresAt,
		&status,
		&rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, err
	}

	rec.Status = Status(status)
	return rec, nil
}
