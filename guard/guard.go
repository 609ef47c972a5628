// Package guard throttles checkout submissions per client and suppresses duplicate
// submissions of the same cart within a window.
package guard

import (
	"context"
	"errors"
	"time"
)

var (
	ErrRateLimited = errors.New("too many checkout attempts")
	ErrDuplicate   = errors.New("duplicate checkout submission")
)

// Store keeps the guard state. MemoryStore is process local; RedisStore is shared
// between instances.
type Store interface {
	// Hit records an attempt for key and returns the attempts seen in the current window.
	Hit(ctx context.Context, key string, window time.Duration) (int, error)
	// Claim marks fingerprint as in flight. It returns false when the fingerprint is
	// already in flight or completed within the window.
	Claim(ctx context.Context, fingerprint string, window time.Duration) (bool, error)
	// Complete swaps the in-flight claim for a completed marker that lives out the window.
	Complete(ctx context.Context, fingerprint string) error
	// Release drops the claim so the same cart may be submitted again.
	Release(ctx context.Context, fingerprint string) error
}

type Guard struct {
	store       Store
	rateLimit   int
	rateWindow  time.Duration
	dedupWindow time.Duration
}

func New(store Store, rateLimit int, rateWindow, dedupWindow time.Duration) *Guard {
	return &Guard{
		store:       store,
		rateLimit:   rateLimit,
		rateWindow:  rateWindow,
		dedupWindow: dedupWindow,
	}
}

// CheckRate returns ErrRateLimited once client exceeds the configured attempts.
func (g *Guard) CheckRate(ctx context.Context, client string) error {
	n, err := g.store.Hit(ctx, "rate:"+client, g.rateWindow)
	if err != nil {
		return err
	}
	if n > g.rateLimit {
		return ErrRateLimited
	}
	return nil
}

// Claim returns ErrDuplicate when the fingerprint was seen within the dedup window.
func (g *Guard) Claim(ctx context.Context, fingerprint string) error {
	ok, err := g.store.Claim(ctx, "dedup:"+fingerprint, g.dedupWindow)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDuplicate
	}
	return nil
}

func (g *Guard) Complete(ctx context.Context, fingerprint string) error {
	return g.store.Complete(ctx, "dedup:"+fingerprint)
}

func (g *Guard) Release(ctx context.Context, fingerprint string) error {
	return g.store.Release(ctx, "dedup:"+fingerprint)
}
