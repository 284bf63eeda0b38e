package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPresence(t *testing.T) (*Presence, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewPresence(client), mr
}

func TestPresenceConnectDisconnect(t *testing.T) {
	p, _ := newTestPresence(t)
	ctx := context.Background()
	auctionID := uuid.New()
	m1, m2 := uuid.New(), uuid.New()

	n, err := p.ActiveManagerCount(ctx, auctionID)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, p.Connect(ctx, auctionID, m1))
	require.NoError(t, p.Connect(ctx, auctionID, m2))
	// Reconnecting the same manager does not double count.
	require.NoError(t, p.Connect(ctx, auctionID, m1))

	n, err = p.ActiveManagerCount(ctx, auctionID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, p.Disconnect(ctx, auctionID, m1))
	n, err = p.ActiveManagerCount(ctx, auctionID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPresenceIsolatedPerAuction(t *testing.T) {
	p, _ := newTestPresence(t)
	ctx := context.Background()
	a1, a2 := uuid.New(), uuid.New()
	m := uuid.New()

	require.NoError(t, p.Connect(ctx, a1, m))

	n, err := p.ActiveManagerCount(ctx, a2)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPresenceExpiresWithTTL(t *testing.T) {
	p, mr := newTestPresence(t)
	ctx := context.Background()
	auctionID := uuid.New()

	require.NoError(t, p.Connect(ctx, auctionID, uuid.New()))

	// A crashed client that never disconnects ages out.
	mr.FastForward(presenceTTL + 1)

	n, err := p.ActiveManagerCount(ctx, auctionID)
	require.NoError(t, err)
	assert.Zero(t, n)
}
