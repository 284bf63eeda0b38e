package auction

import (
	"context"

	"github.com/google/uuid"

	"github.com/draftroom/squad-auction-backend/internal/domain/account"
	"github.com/draftroom/squad-auction-backend/internal/domain/auction"
	"github.com/draftroom/squad-auction-backend/internal/domain/bid"
	"github.com/draftroom/squad-auction-backend/internal/domain/vote"
)

// Store is the write-behind journal. The engine applies state in memory
// first, then journals; a failed write makes the command fail and the
// in-memory mutation is reverted.
type Store interface {
	SaveAuction(ctx context.Context, a *auction.Auction) error
	SavePlayer(ctx context.Context, p *auction.Player) error
	SaveBid(ctx context.Context, b *bid.Bid) error
	InvalidateBid(ctx context.Context, bidID uuid.UUID) error
	SaveManager(ctx context.Context, auctionID uuid.UUID, m *account.Manager) error
	SaveVote(ctx context.Context, auctionID uuid.UUID, v *vote.Vote) error

	// CommitResolution journals the resolution tuple (auction cursor,
	// touched players, winning manager) atomically.
	CommitResolution(ctx context.Context, rec *ResolutionRecord) error
}

// ResolutionRecord is the document tuple a resolution must journal as one
// transaction.
type ResolutionRecord struct {
	Auction *auction.Auction
	// Players holds the resolved player plus, when the session advanced,
	// the newly activated one.
	Players []*auction.Player
	// Winner is nil when the player went unsold or was skipped.
	Winner *account.Manager
}

// StoredState is everything needed to rebuild an engine on cold start.
type StoredState struct {
	Auction  *auction.Auction
	Managers []*account.Manager
	// Bids is the per-auction bid tail in placement order.
	Bids []*bid.Bid
	Votes []*vote.Vote
}

// Loader rebuilds engine state from the journal on cold start.
type Loader interface {
	LoadState(ctx context.Context, auctionID uuid.UUID) (*StoredState, error)
}

// Broadcaster fans engine events out to subscribers in emission order.
type Broadcaster interface {
	Publish(auctionID uuid.UUID, eventType string, payload interface{})
	// PublishTo delivers to a single subscriber (bidRejected goes only to
	// the submitter).
	PublishTo(auctionID uuid.UUID, subscriberID string, eventType string, payload interface{})
}

// Presence reports how many managers are currently connected to the
// auction. Used only for the advisory skip quorum.
type Presence interface {
	ActiveManagerCount(ctx context.Context, auctionID uuid.UUID) (int, error)
}
