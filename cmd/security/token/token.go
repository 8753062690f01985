// Package token provides the digest primitives used to index refresh tokens
// server-side. The plain token string is never persisted; stores hold only
// the digest computed here.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// DigestHex returns the SHA-256 hex digest of s (64 hex chars).
func DigestHex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HMACHex returns the HMAC-SHA256 hex digest of s under key. Keyed digests
// keep a leaked sessions table from being matched against captured tokens.
func HMACHex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}
