package auction

import (
	"time"

	"github.com/google/uuid"

	"github.com/draftroom/squad-auction-backend/internal/domain/values"
)

type Player struct {
	ID        uuid.UUID `json:"id"`
	AuctionID uuid.UUID `json:"auction_id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`

	// BaseValue is the minimum opening bid.
	BaseValue values.Money `json:"base_value"`

	Status     PlayerStatus `json:"status"`
	CurrentBid values.Money `json:"current_bid"`
	HighBidder *uuid.UUID   `json:"high_bidder,omitempty"`
	TotalBids  int          `json:"total_bids"`

	// Set on resolution.
	Winner     *uuid.UUID    `json:"winner,omitempty"`
	FinalPrice *values.Money `json:"final_price,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PlayerStatus int

const (
	PlayerAvailable PlayerStatus = iota
	PlayerActive
	PlayerSold
	PlayerUnsold
	PlayerSkipped
)

func (s PlayerStatus) String() string {
	switch s {
	case PlayerAvailable:
		return "available"
	case PlayerActive:
		return "active"
	case PlayerSold:
		return "sold"
	case PlayerUnsold:
		return "unsold"
	case PlayerSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// PlayerStatusFromString parses a persisted status tag.
func PlayerStatusFromString(s string) PlayerStatus {
	switch s {
	case "active":
		return PlayerActive
	case "sold":
		return PlayerSold
	case "unsold":
		return PlayerUnsold
	case "skipped":
		return PlayerSkipped
	default:
		return PlayerAvailable
	}
}

func NewPlayer(auctionID uuid.UUID, name, category string, baseValue values.Money) *Player {
	now := time.Now()
	return &Player{
		ID:         uuid.New(),
		AuctionID:  auctionID,
		Name:       name,
		Category:   category,
		BaseValue:  baseValue,
		Status:     PlayerAvailable,
		CurrentBid: values.Zero(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Activate opens the player for bidding at its base value.
func (p *Player) Activate() {
	p.Status = PlayerActive
	p.CurrentBid = values.Zero()
	p.HighBidder = nil
	p.UpdatedAt = time.Now()
}

// RecordBid installs a new high bid. Callers validate the amount first.
func (p *Player) RecordBid(bidderID uuid.UUID, amount values.Money) {
	b := bidderID
	p.CurrentBid = amount
	p.HighBidder = &b
	p.TotalBids++
	p.UpdatedAt = time.Now()
}

// Sell closes the contest with a winner at the current bid.
func (p *Player) Sell(winner uuid.UUID, finalPrice values.Money) {
	w := winner
	fp := finalPrice
	p.Status = PlayerSold
	p.Winner = &w
	p.FinalPrice = &fp
	p.UpdatedAt = time.Now()
}

// MarkUnsold closes the contest with no valid bids.
func (p *Player) MarkUnsold() {
	p.Status = PlayerUnsold
	p.HighBidder = nil
	p.CurrentBid = values.Zero()
	p.UpdatedAt = time.Now()
}

// MarkSkipped records an admin skip before any bids arrived.
func (p *Player) MarkSkipped() {
	p.Status = PlayerSkipped
	p.UpdatedAt = time.Now()
}

// HasBids reports whether any bid is currently standing.
func (p *Player) HasBids() bool {
	return p.HighBidder != nil
}
