package session

import (
	"context"
	"errors"
	"sync/atomic"
)

// countingStore counts every store call; used to prove stateless rejection
// paths never touch persistence.
type countingStore struct {
	Store
	calls atomic.Int64
}

func (c *countingStore) Save(ctx context.Context, s Session) error {
	c.calls.Add(1)
	return c.Store.Save(ctx, s)
}

func (c *countingStore) FindByID(ctx context.Context, id string) (Session, error) {
	c.calls.Add(1)
	return c.Store.FindByID(ctx, id)
}

func (c *countingStore) FindByRefreshDigest(ctx context.Context, digest string) (Session, error) {
	c.calls.Add(1)
	return c.Store.FindByRefreshDigest(ctx, digest)
}

func (c *countingStore) CompareAndSetStatus(ctx context.Context, id string, expected, next Status) (bool, error) {
	c.calls.Add(1)
	return c.Store.CompareAndSetStatus(ctx, id, expected, next)
}

func (c *countingStore) RevokeAllActive(ctx context.Context, contact string) error {
	c.calls.Add(1)
	return c.Store.RevokeAllActive(ctx, contact)
}

var errStoreDown = errors.New("connection refused")

// failingStore fails every read; simulates a store outage.
type failingStore struct {
	Store
}

func (f *failingStore) FindByID(context.Context, string) (Session, error) {
	return Session{}, errStoreDown
}

func (f *failingStore) FindByRefreshDigest(context.Context, string) (Session, error) {
	return Session{}, errStoreDown
}
