package session

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testClaims(class TokenClass) Claims {
	cl := Claims{
		Email: "a@x.com",
		Role:  "USER",
		Class: class,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "ana",
		},
	}
	if class == ClassRefresh {
		cl.SessionID = "01HSESSIONSESSIONSESSIONSE"
	}
	return cl
}

func TestCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	codec, err := NewCodec(testSecret)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	tok, exp, err := codec.Encode(testClaims(ClassRefresh), now, time.Hour)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !exp.Equal(now.Add(time.Hour)) {
		t.Fatalf("exp = %v, want %v", exp, now.Add(time.Hour))
	}

	got, err := codec.Decode(tok)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Email != "a@x.com" || got.Subject != "ana" || got.Role != "USER" {
		t.Fatalf("claims mismatch: %+v", got)
	}
	if got.Class != ClassRefresh || got.SessionID == "" {
		t.Fatalf("refresh claims mismatch: %+v", got)
	}
	if !got.ExpiresAt.Time.Equal(exp) {
		t.Fatalf("embedded exp = %v, want %v", got.ExpiresAt.Time, exp)
	}
}

func TestCodec_RejectsShortSecret(t *testing.T) {
	t.Parallel()

	if _, err := NewCodec([]byte("short")); !errors.Is(err, ErrConfig) {
		t.Fatalf("got %v, want ErrConfig", err)
	}
}

func TestCodec_RejectsTamperedToken(t *testing.T) {
	t.Parallel()

	codec, _ := NewCodec(testSecret)
	tok, _, err := codec.Encode(testClaims(ClassAccess), time.Now().UTC(), time.Hour)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Flip a byte in the payload segment.
	parts := strings.Split(tok, ".")
	body := []byte(parts[1])
	if body[0] == 'A' {
		body[0] = 'B'
	} else {
		body[0] = 'A'
	}
	tampered := parts[0] + "." + string(body) + "." + parts[2]

	if _, err := codec.Decode(tampered); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("got %v, want ErrTokenInvalid", err)
	}
}

func TestCodec_RejectsForeignKey(t *testing.T) {
	t.Parallel()

	codec, _ := NewCodec(testSecret)
	other, _ := NewCodec([]byte("ffffffffffffffffffffffffffffffff"))

	tok, _, err := other.Encode(testClaims(ClassAccess), time.Now().UTC(), time.Hour)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := codec.Decode(tok); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("got %v, want ErrTokenInvalid", err)
	}
}

func TestCodec_DecodeKeepsExpiredTokens(t *testing.T) {
	t.Parallel()

	codec, _ := NewCodec(testSecret)
	issued := time.Now().UTC().Add(-2 * time.Hour)
	tok, _, err := codec.Encode(testClaims(ClassAccess), issued, time.Hour)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Decode verifies signature and shape only; staleness is the caller's
	// decision so expired and forged tokens stay distinguishable.
	cl, err := codec.Decode(tok)
	if err != nil {
		t.Fatalf("Decode of expired token: %v", err)
	}
	if !cl.IsExpired(time.Now().UTC()) {
		t.Fatalf("token should report expired")
	}
}

func TestCodec_RejectsMissingClaims(t *testing.T) {
	t.Parallel()

	codec, _ := NewCodec(testSecret)
	now := time.Now().UTC()

	cases := map[string]Claims{
		"no email":   {Class: ClassAccess, RegisteredClaims: jwt.RegisteredClaims{Subject: "ana"}},
		"no subject": {Email: "a@x.com", Class: ClassAccess},
		"no class":   {Email: "a@x.com", RegisteredClaims: jwt.RegisteredClaims{Subject: "ana"}},
		"bad class":  {Email: "a@x.com", Class: "session", RegisteredClaims: jwt.RegisteredClaims{Subject: "ana"}},
	}
	for name, cl := range cases {
		tok, _, err := codec.Encode(cl, now, time.Hour)
		if err != nil {
			t.Fatalf("%s: Encode: %v", name, err)
		}
		if _, err := codec.Decode(tok); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("%s: got %v, want ErrTokenInvalid", name, err)
		}
	}
}

func TestClaims_IsExpiredBoundary(t *testing.T) {
	t.Parallel()

	exp := time.Now().UTC().Truncate(time.Second)
	cl := Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)}}

	if cl.IsExpired(exp.Add(-time.Second)) {
		t.Fatalf("expired before the expiry instant")
	}
	if !cl.IsExpired(exp) {
		t.Fatalf("not expired at the expiry instant")
	}
	if !(Claims{}).IsExpired(exp) {
		t.Fatalf("claims without exp must count as expired")
	}
}
