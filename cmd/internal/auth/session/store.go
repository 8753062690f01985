package session

import (
	"context"
	"time"
)

// Session is the durable record binding one refresh-token generation to an
// identity and device. Rotation never mutates a session in place: each
// rotation creates a brand-new record and the old one only changes status.
type Session struct {
	ID             string
	SubjectContact string
	DeviceID       string

	// AccessToken is the access credential issued with this generation.
	// The refresh credential is persisted only as RefreshDigest; the plain
	// refresh token is returned to the caller exactly once and never stored.
	AccessToken   string
	RefreshDigest string

	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time

	Status    Status
	CreatedAt time.Time
}

// Store abstracts session persistence. CompareAndSetStatus is the only
// operation that must be atomic; everything else is plain persistence.
// Implementations must enforce that a refresh digest maps to at most one
// session record, ever.
type Store interface {
	// Save persists a new session record.
	Save(ctx context.Context, s Session) error

	// FindByID loads a session by its identifier. Absence is ErrSessionNotFound.
	FindByID(ctx context.Context, id string) (Session, error)

	// FindByRefreshDigest loads the session holding the given refresh-token
	// digest. Absence is ErrSessionNotFound.
	FindByRefreshDigest(ctx context.Context, digest string) (Session, error)

	// CompareAndSetStatus transitions id from expected to next and reports
	// whether the swap was applied. false with a nil error means the stored
	// status was not expected at the time of the write.
	CompareAndSetStatus(ctx context.Context, id string, expected, next Status) (bool, error)

	// RevokeAllActive moves every ACTIVE session for contact to REVOKED.
	RevokeAllActive(ctx context.Context, contact string) error
}
