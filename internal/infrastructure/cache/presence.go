package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Presence tracks which managers hold a live socket per auction, backed
// by a redis set with a sliding TTL. The engine consults it only for
// the advisory skip quorum, so staleness within the TTL is acceptable.
type Presence struct {
	client *redis.Client
	ttl    time.Duration
}

const presenceTTL = 90 * time.Second

func NewPresence(client *redis.Client) *Presence {
	return &Presence{client: client, ttl: presenceTTL}
}

func presenceKey(auctionID uuid.UUID) string {
	return fmt.Sprintf("presence:%s", auctionID)
}

// Connect marks the manager online. Called on socket attach and on
// heartbeat to slide the TTL.
func (p *Presence) Connect(ctx context.Context, auctionID, managerID uuid.UUID) error {
	key := presenceKey(auctionID)
	pipe := p.client.Pipeline()
	pipe.SAdd(ctx, key, managerID.String())
	pipe.Expire(ctx, key, p.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("recording presence: %w", err)
	}
	return nil
}

// Disconnect removes the manager on socket detach.
func (p *Presence) Disconnect(ctx context.Context, auctionID, managerID uuid.UUID) error {
	if err := p.client.SRem(ctx, presenceKey(auctionID), managerID.String()).Err(); err != nil {
		return fmt.Errorf("clearing presence: %w", err)
	}
	return nil
}

// ActiveManagerCount reports how many managers are currently connected.
func (p *Presence) ActiveManagerCount(ctx context.Context, auctionID uuid.UUID) (int, error) {
	n, err := p.client.SCard(ctx, presenceKey(auctionID)).Result()
	if err != nil {
		return 0, fmt.Errorf("counting presence: %w", err)
	}
	return int(n), nil
}
