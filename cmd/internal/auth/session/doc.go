// Package session implements the token lifecycle for the streaming service.
//
// It provides a multi-device session model: short-lived JWT access tokens
// verified statelessly, long-lived single-use refresh tokens rotated through
// a durable store, reuse detection that burns the whole session lineage, and
// per-session/per-user revocation.
//
// Refresh tokens are persisted only as digests (SHA-256, or HMAC-SHA256 when
// a digest key is configured). Transport integration lives in auth/api.
package session
