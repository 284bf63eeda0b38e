package auction

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/draftroom/squad-auction-backend/internal/domain/values"
	"github.com/draftroom/squad-auction-backend/internal/domain/vote"
)

// commandKind tags the variant over the engine's command set. Transport
// adapters translate HTTP/socket frames into these records.
type commandKind int

const (
	cmdStart commandKind = iota
	cmdStop
	cmdContinue
	cmdPlaceBid
	cmdFinalCall
	cmdSkip
	cmdUndo
	cmdVote
	cmdTimerExpired
	cmdTimerTick
	cmdSnapshot
)

func (k commandKind) String() string {
	switch k {
	case cmdStart:
		return "start"
	case cmdStop:
		return "stop"
	case cmdContinue:
		return "continue"
	case cmdPlaceBid:
		return "placeBid"
	case cmdFinalCall:
		return "finalCall"
	case cmdSkip:
		return "skip"
	case cmdUndo:
		return "undo"
	case cmdVote:
		return "vote"
	case cmdTimerExpired:
		return "timerExpired"
	case cmdTimerTick:
		return "timerTick"
	case cmdSnapshot:
		return "snapshot"
	default:
		return "unknown"
	}
}

// command is one entry in the engine's serialized queue.
type command struct {
	kind commandKind
	ctx  context.Context

	callerID uuid.UUID // admin, bidder or voter depending on kind
	playerID uuid.UUID

	amount      values.Money
	clientBidID string
	source      string

	voteValue vote.Value

	// subscriberID routes point-to-point events (bidRejected) back to
	// the submitter's broadcast subscription.
	subscriberID string

	// tick carries the timer generation for synthetic timer commands.
	tick      uint64
	remaining time.Duration

	reply chan commandReply
}

type commandReply struct {
	result *Result
	err    error
}

// Result is the success response of an engine command: the resulting
// snapshot plus command-specific extras.
type Result struct {
	Snapshot *Snapshot `json:"snapshot"`

	// Bid is set for accepted PlaceBid commands.
	Bid *BidView `json:"bid,omitempty"`

	// Vote extras.
	Counts      *vote.Counts `json:"counts,omitempty"`
	SelfValue   string       `json:"self_value,omitempty"`
	SkipAdvised bool         `json:"skip_advised,omitempty"`
}

// BidRequest is the PlaceBid input contract.
type BidRequest struct {
	BidderID     uuid.UUID
	PlayerID     uuid.UUID
	Amount       values.Money
	ClientBidID  string
	Source       string
	SubscriberID string
}
