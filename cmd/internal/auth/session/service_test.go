package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestService(t *testing.T, store Store) *Service {
	t.Helper()
	codec, err := NewCodec(testSecret)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return NewService(DefaultConfig(), codec, store)
}

func testIdentity() Identity {
	return Identity{Subject: "ana", Contact: "a@x.com", Role: "USER"}
}

func TestCreateSession_IssuesPairAndPersistsActive(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	pair, err := svc.CreateSession(ctx, testIdentity(), "d1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" || pair.SessionID == "" {
		t.Fatalf("incomplete pair: %+v", pair)
	}
	if !pair.RefreshExpiresAt.After(pair.AccessExpiresAt) {
		t.Fatalf("refresh expiry %v not after access expiry %v", pair.RefreshExpiresAt, pair.AccessExpiresAt)
	}

	rec, err := store.FindByID(ctx, pair.SessionID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if rec.Status != StatusActive {
		t.Fatalf("status = %s, want ACTIVE", rec.Status)
	}
	if rec.SubjectContact != "a@x.com" || rec.DeviceID != "d1" {
		t.Fatalf("session record mismatch: %+v", rec)
	}
	if strings.Contains(rec.RefreshDigest, ".") || rec.RefreshDigest == pair.RefreshToken {
		t.Fatalf("plain refresh token leaked into the store")
	}
}

func TestCreateSession_MultiDeviceDoesNotTouchExisting(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	p1, err := svc.CreateSession(ctx, testIdentity(), "d1")
	if err != nil {
		t.Fatalf("CreateSession d1: %v", err)
	}
	p2, err := svc.CreateSession(ctx, testIdentity(), "d2")
	if err != nil {
		t.Fatalf("CreateSession d2: %v", err)
	}

	for _, id := range []string{p1.SessionID, p2.SessionID} {
		rec, err := store.FindByID(ctx, id)
		if err != nil {
			t.Fatalf("FindByID(%s): %v", id, err)
		}
		if rec.Status != StatusActive {
			t.Fatalf("session %s = %s, want ACTIVE", id, rec.Status)
		}
	}
}

func TestRefresh_SingleRotationSucceeds(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	p1, err := svc.CreateSession(ctx, testIdentity(), "d1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	p2, err := svc.Refresh(ctx, p1.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if p2.RefreshToken == p1.RefreshToken {
		t.Fatalf("rotation returned the input refresh token")
	}
	if p2.SessionID == p1.SessionID {
		t.Fatalf("rotation reused the session id")
	}

	old, err := store.FindByID(ctx, p1.SessionID)
	if err != nil {
		t.Fatalf("FindByID(old): %v", err)
	}
	if old.Status != StatusUsed {
		t.Fatalf("old session = %s, want USED", old.Status)
	}

	// The replacement carries the lineage: same contact, same device.
	next, err := store.FindByID(ctx, p2.SessionID)
	if err != nil {
		t.Fatalf("FindByID(new): %v", err)
	}
	if next.Status != StatusActive || next.SubjectContact != old.SubjectContact || next.DeviceID != old.DeviceID {
		t.Fatalf("replacement session mismatch: %+v", next)
	}
}

func TestRefresh_ReuseRevokesWholeLineage(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	p1, err := svc.CreateSession(ctx, testIdentity(), "d1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	p2, err := svc.Refresh(ctx, p1.RefreshToken)
	if err != nil {
		t.Fatalf("first Refresh: %v", err)
	}

	// Replay of the consumed token.
	_, err = svc.Refresh(ctx, p1.RefreshToken)
	if !errors.Is(err, ErrTokenReuseDetected) {
		t.Fatalf("replay: got %v, want ErrTokenReuseDetected", err)
	}

	old, _ := store.FindByID(ctx, p1.SessionID)
	if old.Status != StatusRevoked {
		t.Fatalf("replayed session = %s, want REVOKED", old.Status)
	}

	// P2 was never reused, but the lineage burned with it.
	_, err = svc.Refresh(ctx, p2.RefreshToken)
	if !errors.Is(err, ErrSessionInactive) {
		t.Fatalf("child refresh after reuse: got %v, want ErrSessionInactive", err)
	}
}

func TestRefresh_NeverRevivesTerminalSessions(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	p1, err := svc.CreateSession(ctx, testIdentity(), "d1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := svc.Refresh(ctx, p1.RefreshToken); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if _, err := svc.Refresh(ctx, p1.RefreshToken); err == nil {
		t.Fatalf("expected replay failure")
	}

	// Two more replays: the record must stay REVOKED, never flip back.
	for i := 0; i < 2; i++ {
		_, _ = svc.Refresh(ctx, p1.RefreshToken)
		rec, _ := store.FindByID(ctx, p1.SessionID)
		if rec.Status != StatusRevoked {
			t.Fatalf("attempt %d: status = %s, want REVOKED", i, rec.Status)
		}
	}
}

func TestRefresh_ConcurrentRotationExactlyOneWinner(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	p1, err := svc.CreateSession(ctx, testIdentity(), "d1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]error, callers)
	pairs := make([]TokenPair, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pairs[i], results[i] = svc.Refresh(ctx, p1.RefreshToken)
		}(i)
	}
	wg.Wait()

	wins := 0
	for i, err := range results {
		switch {
		case err == nil:
			wins++
			if pairs[i].RefreshToken == p1.RefreshToken {
				t.Fatalf("winner returned the input token")
			}
		case errors.Is(err, ErrTokenReuseDetected), errors.Is(err, ErrSessionInactive):
			// Losers must land here, nowhere else.
		default:
			t.Fatalf("caller %d: unexpected error %v", i, err)
		}
	}
	if wins != 1 {
		t.Fatalf("winners = %d, want exactly 1", wins)
	}
}

func TestRefresh_StoredExpiryRevokesAndReportsExpired(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	p1, err := svc.CreateSession(ctx, testIdentity(), "d1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	// Age only the stored record: the embedded claim stays valid, so the
	// rejection must come from step 5, not the stateless check.
	store.mu.Lock()
	rec := store.byID[p1.SessionID]
	rec.RefreshExpiresAt = time.Now().UTC().Add(-time.Minute)
	store.byID[p1.SessionID] = rec
	store.mu.Unlock()

	_, err = svc.Refresh(ctx, p1.RefreshToken)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("got %v, want ErrTokenExpired", err)
	}

	after, _ := store.FindByID(ctx, p1.SessionID)
	if after.Status != StatusRevoked {
		t.Fatalf("expired session = %s, want REVOKED", after.Status)
	}
}

func TestRefresh_UnknownTokenIsSessionNotFound(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	svc := newTestService(t, store)

	// Correctly signed refresh token that was never persisted.
	codec, _ := NewCodec(testSecret)
	tok, _, err := codec.Encode(Claims{
		Email:     "a@x.com",
		Role:      "USER",
		Class:     ClassRefresh,
		SessionID: "01HGHOSTGHOSTGHOSTGHOSTGH0",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "ana",
		},
	}, time.Now().UTC(), time.Hour)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	_, err = svc.Refresh(context.Background(), tok)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("got %v, want ErrSessionNotFound", err)
	}
}

func TestRefresh_BadSignatureNeverTouchesStore(t *testing.T) {
	t.Parallel()

	counting := &countingStore{Store: NewMemoryStore()}
	svc := newTestService(t, counting)

	otherCodec, _ := NewCodec([]byte("ffffffffffffffffffffffffffffffff"))
	forged, _, err := otherCodec.Encode(Claims{
		Email:     "a@x.com",
		Role:      "USER",
		Class:     ClassRefresh,
		SessionID: "01HFORGEDFORGEDFORGEDFORGE",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "ana",
		},
	}, time.Now().UTC(), time.Hour)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	_, err = svc.Refresh(context.Background(), forged)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("got %v, want ErrTokenInvalid", err)
	}
	if n := counting.calls.Load(); n != 0 {
		t.Fatalf("store touched %d times for a forged token", n)
	}
}

func TestRefresh_AccessClassTokenRejected(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	p1, err := svc.CreateSession(ctx, testIdentity(), "d1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	_, err = svc.Refresh(ctx, p1.AccessToken)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("got %v, want ErrTokenInvalid", err)
	}
}

func TestRevoke_Idempotent(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	p1, err := svc.CreateSession(ctx, testIdentity(), "d1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if err := svc.Revoke(ctx, p1.SessionID); err != nil {
		t.Fatalf("first Revoke: %v", err)
	}
	if err := svc.Revoke(ctx, p1.SessionID); err != nil {
		t.Fatalf("second Revoke: %v", err)
	}
	rec, _ := store.FindByID(ctx, p1.SessionID)
	if rec.Status != StatusRevoked {
		t.Fatalf("status = %s, want REVOKED", rec.Status)
	}

	// Unknown ids are a no-op too.
	if err := svc.Revoke(ctx, "01HNOSUCHSESSIONNOSUCHSESS"); err != nil {
		t.Fatalf("Revoke(unknown): %v", err)
	}
}

func TestRevoke_UsedSessionStaysUsed(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	p1, _ := svc.CreateSession(ctx, testIdentity(), "d1")
	if _, err := svc.Refresh(ctx, p1.RefreshToken); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if err := svc.Revoke(ctx, p1.SessionID); err != nil {
		t.Fatalf("Revoke(USED): %v", err)
	}
	rec, _ := store.FindByID(ctx, p1.SessionID)
	if rec.Status != StatusUsed {
		t.Fatalf("status = %s, want USED untouched", rec.Status)
	}
}

func TestRevokeAll_OnlyHitsContact(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	mine, _ := svc.CreateSession(ctx, testIdentity(), "d1")
	other, _ := svc.CreateSession(ctx, Identity{Subject: "bo", Contact: "b@x.com", Role: "USER"}, "d9")

	if err := svc.RevokeAll(ctx, "a@x.com"); err != nil {
		t.Fatalf("RevokeAll: %v", err)
	}

	got, _ := store.FindByID(ctx, mine.SessionID)
	if got.Status != StatusRevoked {
		t.Fatalf("own session = %s, want REVOKED", got.Status)
	}
	kept, _ := store.FindByID(ctx, other.SessionID)
	if kept.Status != StatusActive {
		t.Fatalf("other contact's session = %s, want ACTIVE", kept.Status)
	}
}

func TestValidateAccess_IndependentOfRevocation(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	p1, err := svc.CreateSession(ctx, testIdentity(), "d1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := svc.Revoke(ctx, p1.SessionID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	// Revocation only affects future refreshes, not issued access tokens.
	claims, err := svc.ValidateAccess(p1.AccessToken, time.Now().UTC())
	if err != nil {
		t.Fatalf("ValidateAccess after revoke: %v", err)
	}
	if claims.Email != "a@x.com" || claims.Role != "USER" || claims.Subject != "ana" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestValidateAccess_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	svc := newTestService(t, store)

	p1, err := svc.CreateSession(context.Background(), testIdentity(), "d1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if _, err := svc.ValidateAccess(p1.AccessToken, p1.AccessExpiresAt.Add(-time.Second)); err != nil {
		t.Fatalf("just before expiry: %v", err)
	}
	// Fails at the expiry instant and after it.
	if _, err := svc.ValidateAccess(p1.AccessToken, p1.AccessExpiresAt); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("at expiry: got %v, want ErrTokenExpired", err)
	}
	if _, err := svc.ValidateAccess(p1.AccessToken, p1.AccessExpiresAt.Add(time.Hour)); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("after expiry: got %v, want ErrTokenExpired", err)
	}
}

func TestValidateAccess_RejectsRefreshClass(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	svc := newTestService(t, store)

	p1, err := svc.CreateSession(context.Background(), testIdentity(), "d1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if _, err := svc.ValidateAccess(p1.RefreshToken, time.Now().UTC()); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("got %v, want ErrTokenInvalid", err)
	}
}

func TestRefresh_StoreFailureIsRetryableNotSecurity(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	p1, err := svc.CreateSession(ctx, testIdentity(), "d1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	broken := &failingStore{Store: store}
	svc.store = broken

	_, err = svc.Refresh(ctx, p1.RefreshToken)
	if !errors.Is(err, ErrStore) {
		t.Fatalf("got %v, want ErrStore", err)
	}
	if IsSecurityError(err) {
		t.Fatalf("infrastructure failure classified as a security error: %v", err)
	}
	// In particular a store outage must not masquerade as a missing session.
	if errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("store outage reported as SessionNotFound")
	}
}
