package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClass discriminates access from refresh credentials. It travels as a
// signed claim, so a holder cannot reclassify a token.
type TokenClass string

const (
	// ClassAccess authorizes individual requests; validated without a store lookup.
	ClassAccess TokenClass = "access"
	// ClassRefresh is used solely to mint a new token pair.
	ClassRefresh TokenClass = "refresh"
)

// Claims is the signed claim bundle carried by every issued credential.
// Subject (in RegisteredClaims) is the username; Email is the contact the
// session lineage is keyed by; SessionID ties both token classes to their
// issuing session (logout revokes by it).
type Claims struct {
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Class     TokenClass `json:"type"`
	SessionID string     `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// IsExpired reports whether the embedded expiry is at or before now.
// A token is valid strictly until its expiry instant.
func (c Claims) IsExpired(now time.Time) bool {
	return c.ExpiresAt == nil || !c.ExpiresAt.After(now)
}

// Codec signs and verifies claim bundles with HMAC-SHA256. The key is
// immutable constructor state; there is no package-level signing state.
type Codec struct {
	key []byte
}

// NewCodec builds a Codec from the configured signing secret.
func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) < MinSigningKeyBytes {
		return nil, ErrConfig
	}
	k := make([]byte, len(secret))
	copy(k, secret)
	return &Codec{key: k}, nil
}

// Encode signs claims with issued-at = now and expiry = now + ttl.
func (c *Codec) Encode(cl Claims, now time.Time, ttl time.Duration) (token string, exp time.Time, err error) {
	exp = now.Add(ttl)
	cl.IssuedAt = jwt.NewNumericDate(now)
	cl.ExpiresAt = jwt.NewNumericDate(exp)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(c.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Decode verifies signature and structure only. Expiry is deliberately not
// checked here (see Claims.IsExpired) so callers can distinguish a forged
// token from a stale one.
func (c *Codec) Decode(raw string) (Claims, error) {
	var cl Claims
	_, err := jwt.ParseWithClaims(raw, &cl, func(*jwt.Token) (any, error) { return c.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, ErrTokenInvalid
	}
	if cl.Email == "" || cl.Subject == "" || !cl.Class.valid() || cl.ExpiresAt == nil || cl.IssuedAt == nil {
		return Claims{}, ErrTokenInvalid
	}
	return cl, nil
}

func (tc TokenClass) valid() bool {
	return tc == ClassAccess || tc == ClassRefresh
}
