package session

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"

	"github.com/freegatik/music-streaming/cmd/security/token"
)

// Identity is the verified principal handed to CreateSession after a
// successful password check. The lifecycle manager never resolves
// credentials itself; that belongs to the identity provider.
type Identity struct {
	Subject string // username
	Contact string // email; the key the session lineage hangs off
	Role    string
}

// TokenPair is the result of issuing or rotating a session.
type TokenPair struct {
	SessionID        string
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Service orchestrates credential issuance, rotation, reuse detection, and
// revocation. It is the only component with cross-session invariants; the
// store below it is plain persistence plus one conditional write.
type Service struct {
	cfg   Config
	codec *Codec
	store Store

	now func() time.Time
}

// NewService constructs a Service from configuration, codec, and store.
func NewService(cfg Config, codec *Codec, store Store) *Service {
	return &Service{
		cfg:   cfg,
		codec: codec,
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// CreateSession mints a fresh token pair for a verified identity and
// persists a new ACTIVE session. No pre-existing session is touched:
// concurrent sessions per identity/device are allowed (multi-device login).
func (s *Service) CreateSession(ctx context.Context, id Identity, deviceID string) (TokenPair, error) {
	now := s.now()
	sessionID := ulid.Make().String()

	access, accessExp, err := s.codec.Encode(Claims{
		Email:     id.Contact,
		Role:      id.Role,
		Class:     ClassAccess,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: id.Subject,
		},
	}, now, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, refreshExp, err := s.codec.Encode(Claims{
		Email:     id.Contact,
		Role:      id.Role,
		Class:     ClassRefresh,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: id.Subject,
		},
	}, now, s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}

	rec := Session{
		ID:               sessionID,
		SubjectContact:   id.Contact,
		DeviceID:         deviceID,
		AccessToken:      access,
		RefreshDigest:    s.digest(refresh),
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		Status:           StatusActive,
		CreatedAt:        now,
	}
	if err := s.store.Save(ctx, rec); err != nil {
		return TokenPair{}, StoreError{Op: "save", Err: err}
	}

	return TokenPair{
		SessionID:        sessionID,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh exchanges a presented refresh token for a new pair.
//
// Order matters, and each step short-circuits with a specific error:
//  1. stateless verification (signature, class, embedded expiry) — a token
//     rejected here never touches the store;
//  2. lookup by the exact presented token;
//  3. USED status is a reuse signal: revoke the lineage;
//  4. REVOKED status is a dead session;
//  5. stored expiry in the past revokes and reports expiry;
//  6. retire the current session BEFORE issuing the replacement. The
//     conditional write serializes concurrent rotations of the same token:
//     exactly one caller wins; the loser observes USED and is handled as reuse.
//
// Identity is re-derived from the stored session and the signed claims,
// never from the identity provider, so a mid-lifetime role change only
// lands at the next login.
func (s *Service) Refresh(ctx context.Context, presented string) (TokenPair, error) {
	now := s.now()

	claims, err := s.codec.Decode(presented)
	if err != nil {
		return TokenPair{}, ErrTokenInvalid
	}
	if claims.Class != ClassRefresh || claims.SessionID == "" || claims.IsExpired(now) {
		return TokenPair{}, ErrTokenInvalid
	}

	rec, err := s.store.FindByRefreshDigest(ctx, s.digest(presented))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return TokenPair{}, ErrSessionNotFound
		}
		return TokenPair{}, StoreError{Op: "find_by_refresh", Err: err}
	}

	if rec.Status == StatusUsed {
		return TokenPair{}, s.handleReuse(ctx, rec)
	}
	if rec.Status != StatusActive {
		return TokenPair{}, ErrSessionInactive
	}

	if !rec.RefreshExpiresAt.After(now) {
		if _, err := s.store.CompareAndSetStatus(ctx, rec.ID, StatusActive, StatusRevoked); err != nil {
			return TokenPair{}, StoreError{Op: "revoke_expired", Err: err}
		}
		return TokenPair{}, ErrTokenExpired
	}

	swapped, err := s.store.CompareAndSetStatus(ctx, rec.ID, StatusActive, StatusUsed)
	if err != nil {
		return TokenPair{}, StoreError{Op: "mark_used", Err: err}
	}
	if !swapped {
		// Lost the rotation race. Re-read: the winner left the record USED
		// (or a later event left it REVOKED); either way this caller does
		// not get a pair.
		cur, err := s.store.FindByID(ctx, rec.ID)
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				return TokenPair{}, ErrSessionNotFound
			}
			return TokenPair{}, StoreError{Op: "reread", Err: err}
		}
		if cur.Status == StatusUsed {
			return TokenPair{}, s.handleReuse(ctx, cur)
		}
		return TokenPair{}, ErrSessionInactive
	}

	return s.CreateSession(ctx, Identity{
		Subject: claims.Subject,
		Contact: rec.SubjectContact,
		Role:    claims.Role,
	}, rec.DeviceID)
}

// handleReuse is the security-critical branch: a consumed refresh token came
// back, so assume capture and replay. The reused record and every ACTIVE
// session of the same contact are revoked — the whole lineage burns, not
// just this record.
func (s *Service) handleReuse(ctx context.Context, rec Session) error {
	if _, err := s.store.CompareAndSetStatus(ctx, rec.ID, StatusUsed, StatusRevoked); err != nil {
		return StoreError{Op: "revoke_reused", Err: err}
	}
	if err := s.store.RevokeAllActive(ctx, rec.SubjectContact); err != nil {
		return StoreError{Op: "revoke_lineage", Err: err}
	}
	return ErrTokenReuseDetected
}

// Revoke moves a session to REVOKED. Idempotent: a session already in a
// terminal state, or missing entirely, is a no-op, never an error.
func (s *Service) Revoke(ctx context.Context, sessionID string) error {
	rec, err := s.store.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return StoreError{Op: "find_by_id", Err: err}
	}
	if rec.Status.Terminal() {
		return nil
	}
	if _, err := s.store.CompareAndSetStatus(ctx, sessionID, StatusActive, StatusRevoked); err != nil {
		return StoreError{Op: "revoke", Err: err}
	}
	return nil
}

// RevokeAll revokes every ACTIVE session for a contact ("log out everywhere",
// also run on password change).
func (s *Service) RevokeAll(ctx context.Context, contact string) error {
	if err := s.store.RevokeAllActive(ctx, contact); err != nil {
		return StoreError{Op: "revoke_all", Err: err}
	}
	return nil
}

// ValidateAccess verifies an access token statelessly: signature, class, and
// embedded expiry, no store lookup. Revocation therefore never reaches an
// already-issued access token before its natural expiry; that bound is the
// access TTL and it is a deliberate tradeoff.
func (s *Service) ValidateAccess(presented string, now time.Time) (Claims, error) {
	claims, err := s.codec.Decode(presented)
	if err != nil {
		return Claims{}, ErrTokenInvalid
	}
	if claims.Class != ClassAccess {
		return Claims{}, ErrTokenInvalid
	}
	if claims.IsExpired(now) {
		return Claims{}, ErrTokenExpired
	}
	return claims, nil
}

func (s *Service) digest(tok string) string {
	if len(s.cfg.DigestKey) > 0 {
		return token.HMACHex(tok, s.cfg.DigestKey)
	}
	return token.DigestHex(tok)
}
