package session

import (
	"errors"
	"fmt"
)

var (
	// ErrTokenInvalid is returned for malformed tokens, wrong token class,
	// or signature failure. Never retried.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrTokenExpired is returned for a structurally valid token past its expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrSessionNotFound is returned when a refresh token matches no session.
	// The API layer reports it identically to ErrTokenReuseDetected so callers
	// cannot probe which case occurred; audit logs keep them apart.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTokenReuseDetected is returned when a USED refresh token is presented
	// again. Handling it (revoking the lineage) is a correctness requirement,
	// not optional hardening.
	ErrTokenReuseDetected = errors.New("refresh token reuse detected")

	// ErrSessionInactive is returned when the session exists but is REVOKED.
	ErrSessionInactive = errors.New("session inactive")

	// ErrConfig is returned for invalid session configuration.
	ErrConfig = errors.New("invalid session config")

	// ErrStore marks infrastructure failures (store timeout/unavailability).
	// Always retryable by the caller, never conflated with the security errors
	// above; in particular a timed-out lookup is NOT "session missing".
	ErrStore = errors.New("session store unavailable")
)

// StoreError wraps an infrastructure failure with the failed operation.
// errors.Is(err, ErrStore) matches; Unwrap exposes the underlying cause.
type StoreError struct {
	Op  string
	Err error
}

func (e StoreError) Error() string {
	return fmt.Sprintf("session store: %s: %v", e.Op, e.Err)
}

func (e StoreError) Unwrap() error { return e.Err }

func (e StoreError) Is(target error) bool { return target == ErrStore }

// IsSecurityError reports whether err belongs to the terminal authentication
// error classes (as opposed to retryable infrastructure errors).
func IsSecurityError(err error) bool {
	return errors.Is(err, ErrTokenInvalid) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrTokenReuseDetected) ||
		errors.Is(err, ErrSessionInactive)
}
