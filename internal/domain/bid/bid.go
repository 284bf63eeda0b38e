package bid

import (
	"time"

	"github.com/google/uuid"

	"github.com/draftroom/squad-auction-backend/internal/domain/values"
)

type Bid struct {
	ID        uuid.UUID `json:"id"`
	AuctionID uuid.UUID `json:"auction_id"`
	PlayerID  uuid.UUID `json:"player_id"`
	BidderID  uuid.UUID `json:"bidder_id"`

	Amount         values.Money `json:"amount"`
	PreviousAmount values.Money `json:"previous_amount"`

	// Sequence is per-player, dense, starting at 1. Assigned by the Log.
	Sequence int `json:"sequence"`

	// TimerRemaining is the countdown the bidder saw at placement,
	// captured before any anti-snipe extension.
	TimerRemaining time.Duration `json:"timer_remaining_ms"`

	Valid  bool   `json:"valid"`
	Source string `json:"source"`

	// ClientBidID is an optional client-supplied token for dedup.
	ClientBidID string `json:"client_bid_id,omitempty"`

	PlacedAt time.Time `json:"placed_at"`
}

// Increment is the raise over the previous standing bid.
func (b *Bid) Increment() values.Money {
	return b.Amount.Sub(b.PreviousAmount)
}

func New(auctionID, playerID, bidderID uuid.UUID, amount, previous values.Money, timerRemaining time.Duration, source string) *Bid {
	return &Bid{
		ID:             uuid.New(),
		AuctionID:      auctionID,
		PlayerID:       playerID,
		BidderID:       bidderID,
		Amount:         amount,
		PreviousAmount: previous,
		TimerRemaining: timerRemaining,
		Valid:          true,
		Source:         source,
		PlacedAt:       time.Now(),
	}
}
