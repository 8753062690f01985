package session

import (
	"os"
	"strings"
	"time"
)

// MinSigningKeyBytes is the minimum accepted HMAC signing secret length.
const MinSigningKeyBytes = 32

// Config is the session subsystem configuration. All values are externally
// supplied; the signing secret in particular has no baked-in default.
type Config struct {
	// SigningSecret signs both token classes (HS256).
	SigningSecret []byte

	// AccessTokenTTL bounds the blast radius of a compromised access token:
	// revocation only affects future refreshes, never issued access tokens.
	AccessTokenTTL time.Duration

	// RefreshTokenTTL is the lifetime of one refresh generation.
	RefreshTokenTTL time.Duration

	// DigestKey, when set, switches refresh-token digests from plain SHA-256
	// to HMAC-SHA256 under this key.
	DigestKey []byte
}

// DefaultConfig returns TTL defaults suitable for development. The signing
// secret must still be supplied.
func DefaultConfig() Config {
	return Config{
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 30 * 24 * time.Hour,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - STREAM_JWT_SECRET (>= 32 bytes)
//
// Optional (durations must be valid Go duration strings):
//   - STREAM_AUTH_ACCESS_TTL
//   - STREAM_AUTH_REFRESH_TTL
//   - STREAM_TOKEN_DIGEST_KEY
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	secret := strings.TrimSpace(os.Getenv("STREAM_JWT_SECRET"))
	if len(secret) < MinSigningKeyBytes {
		return Config{}, ErrConfig
	}
	cfg.SigningSecret = []byte(secret)

	if v := os.Getenv("STREAM_AUTH_ACCESS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.AccessTokenTTL = d
	}

	if v := os.Getenv("STREAM_AUTH_REFRESH_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.RefreshTokenTTL = d
	}

	if v := strings.TrimSpace(os.Getenv("STREAM_TOKEN_DIGEST_KEY")); v != "" {
		if len(v) < 16 {
			return Config{}, ErrConfig
		}
		cfg.DigestKey = []byte(v)
	}

	// Access tokens outliving the refresh generation would defeat rotation.
	if cfg.AccessTokenTTL >= cfg.RefreshTokenTTL {
		return Config{}, ErrConfig
	}

	return cfg, nil
}
