package auction

import (
	"time"

	"github.com/google/uuid"

	"github.com/draftroom/squad-auction-backend/internal/domain/auction"
	"github.com/draftroom/squad-auction-backend/internal/domain/values"
	"github.com/draftroom/squad-auction-backend/internal/domain/vote"
)

// Broadcast event types. Every event carries a per-auction monotonically
// increasing seq assigned by the broadcaster.
const (
	EventAuctionStarted    = "auctionStarted"
	EventAuctionStopped    = "auctionStopped"
	EventAuctionContinued  = "auctionContinued"
	EventAuctionCompleted  = "auctionCompleted"
	EventCategoryCompleted = "categoryCompleted"
	EventNextPlayer        = "nextPlayer"
	EventBidAccepted       = "bidAccepted"
	EventBidRejected       = "bidRejected"
	EventBidUndone         = "bidUndone"
	EventPlayerSold        = "playerSold"
	EventPlayerUnsold      = "playerUnsold"
	EventPlayerSkipped     = "playerSkipped"
	EventTimerTick         = "timerTick"
	EventVoteRecorded      = "voteRecorded"
)

// PlayerView is the wire shape of a player inside event payloads and
// snapshots.
type PlayerView struct {
	ID         uuid.UUID     `json:"id"`
	Name       string        `json:"name"`
	Category   string        `json:"category"`
	BaseValue  values.Money  `json:"base_value"`
	Status     string        `json:"status"`
	CurrentBid values.Money  `json:"current_bid"`
	HighBidder *uuid.UUID    `json:"high_bidder,omitempty"`
	TotalBids  int           `json:"total_bids"`
	Winner     *uuid.UUID    `json:"winner,omitempty"`
	FinalPrice *values.Money `json:"final_price,omitempty"`
}

func newPlayerView(p *auction.Player) PlayerView {
	return PlayerView{
		ID:         p.ID,
		Name:       p.Name,
		Category:   p.Category,
		BaseValue:  p.BaseValue,
		Status:     p.Status.String(),
		CurrentBid: p.CurrentBid,
		HighBidder: p.HighBidder,
		TotalBids:  p.TotalBids,
		Winner:     p.Winner,
		FinalPrice: p.FinalPrice,
	}
}

// Snapshot is the engine-side resulting state returned on every accepted
// command and served to late subscribers for resync.
type Snapshot struct {
	AuctionID        uuid.UUID     `json:"auction_id"`
	Status           string        `json:"status"`
	Category         string        `json:"category,omitempty"`
	CurrentPlayer    *PlayerView   `json:"current_player,omitempty"`
	TimerRemainingMs int64         `json:"timer_remaining_ms"`
	TakenAt          time.Time     `json:"taken_at"`
	Managers         []ManagerView `json:"managers,omitempty"`
}

// ManagerView is the balance projection exposed to clients.
type ManagerView struct {
	ID        uuid.UUID    `json:"id"`
	Name      string       `json:"name"`
	Initial   values.Money `json:"initial_balance"`
	Spent     values.Money `json:"spent"`
	Reserved  values.Money `json:"reserved"`
	Available values.Money `json:"available"`
	WonCount  int          `json:"won_count"`
}

type bidAcceptedPayload struct {
	Bid              BidView `json:"bid"`
	TimerRemainingMs int64   `json:"timer_remaining_ms"`
	TimerExtended    bool    `json:"timer_extended"`
}

type bidRejectedPayload struct {
	PlayerID  uuid.UUID    `json:"player_id"`
	BidderID  uuid.UUID    `json:"bidder_id"`
	Amount    values.Money `json:"amount"`
	ErrorKind string       `json:"error_kind"`
	Message   string       `json:"message"`
}

// BidView is the wire shape of a bid.
type BidView struct {
	ID               uuid.UUID    `json:"id"`
	PlayerID         uuid.UUID    `json:"player_id"`
	BidderID         uuid.UUID    `json:"bidder_id"`
	Amount           values.Money `json:"amount"`
	PreviousAmount   values.Money `json:"previous_amount"`
	Increment        values.Money `json:"increment"`
	Sequence         int          `json:"sequence"`
	TimerRemainingMs int64        `json:"timer_remaining_ms"`
	PlacedAt         time.Time    `json:"placed_at"`
}

type playerSoldPayload struct {
	Player     PlayerView   `json:"player"`
	Winner     uuid.UUID    `json:"winner"`
	FinalPrice values.Money `json:"final_price"`
}

type nextPlayerPayload struct {
	Player           PlayerView `json:"player"`
	Category         string     `json:"category"`
	TimerRemainingMs int64      `json:"timer_remaining_ms"`
}

type timerTickPayload struct {
	PlayerID    uuid.UUID `json:"player_id"`
	RemainingMs int64     `json:"remaining_ms"`
	Extended    bool      `json:"extended,omitempty"`
}

type voteRecordedPayload struct {
	PlayerID    uuid.UUID   `json:"player_id"`
	Counts      vote.Counts `json:"counts"`
	SkipAdvised bool        `json:"skip_advised"`
}

type categoryCompletedPayload struct {
	Category string `json:"category"`
}
