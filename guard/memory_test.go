package guard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestGuard(limit int) (*Guard, *MemoryStore, *clock) {
	c := &clock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	store.now = c.now
	return New(store, limit, time.Minute, 5*time.Minute), store, c
}

func TestGuard_CheckRate(t *testing.T) {
	g, _, c := newTestGuard(2)
	ctx := context.Background()

	require.NoError(t, g.CheckRate(ctx, "10.0.0.1"))
	require.NoError(t, g.CheckRate(ctx, "10.0.0.1"))
	assert.ErrorIs(t, g.CheckRate(ctx, "10.0.0.1"), ErrRateLimited)

	// other clients are unaffected
	assert.NoError(t, g.CheckRate(ctx, "10.0.0.2"))

	c.advance(time.Minute)
	assert.NoError(t, g.CheckRate(ctx, "10.0.0.1"))
}

func TestGuard_ClaimRejectsDuplicateWithinWindow(t *testing.T) {
	g, _, c := newTestGuard(5)
	ctx := context.Background()

	require.NoError(t, g.Claim(ctx, "fp"))
	assert.ErrorIs(t, g.Claim(ctx, "fp"), ErrDuplicate)

	require.NoError(t, g.Complete(ctx, "fp"))
	assert.ErrorIs(t, g.Claim(ctx, "fp"), ErrDuplicate, "completed fingerprint must stay blocked")

	c.advance(5 * time.Minute)
	assert.NoError(t, g.Claim(ctx, "fp"))
}

func TestGuard_ReleaseAllowsRetry(t *testing.T) {
	g, _, _ := newTestGuard(5)
	ctx := context.Background()

	require.NoError(t, g.Claim(ctx, "fp"))
	require.NoError(t, g.Release(ctx, "fp"))
	assert.NoError(t, g.Claim(ctx, "fp"))
}

func TestMemoryStore_PrunesExpiredEntries(t *testing.T) {
	g, store, c := newTestGuard(5)
	ctx := context.Background()

	require.NoError(t, g.CheckRate(ctx, "a"))
	require.NoError(t, g.Claim(ctx, "fp-a"))
	assert.Equal(t, 2, store.Len())

	c.advance(10 * time.Minute)
	require.NoError(t, g.CheckRate(ctx, "b"))
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_CompleteLeavesClaimUntilWindowEnds(t *testing.T) {
	g, store, c := newTestGuard(5)
	ctx := context.Background()

	require.NoError(t, g.Complete(ctx, "unknown"))
	assert.Zero(t, store.Len())

	require.NoError(t, g.Claim(ctx, "fp"))
	require.NoError(t, g.Complete(ctx, "fp"))
	assert.Equal(t, 1, store.Len())

	c.advance(5 * time.Minute)
	assert.NoError(t, g.Claim(ctx, "fp"))
}
