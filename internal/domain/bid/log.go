package bid

import (
	"github.com/google/uuid"

	"github.com/draftroom/squad-auction-backend/internal/domain/errors"
)

// Log is the append-only per-player bid history. Sequence numbers are
// dense 1..N in append order; invalidation flips a flag and never
// renumbers. The Log is owned by one engine and mutated only from its
// serialized command flow.
type Log struct {
	byPlayer map[uuid.UUID][]*Bid
}

func NewLog() *Log {
	return &Log{byPlayer: make(map[uuid.UUID][]*Bid)}
}

// Append assigns the next sequence number and records the bid.
func (l *Log) Append(b *Bid) {
	entries := l.byPlayer[b.PlayerID]
	b.Sequence = len(entries) + 1
	l.byPlayer[b.PlayerID] = append(entries, b)
}

// Invalidate flips the valid flag on the given bid.
func (l *Log) Invalidate(playerID, bidID uuid.UUID) error {
	for _, b := range l.byPlayer[playerID] {
		if b.ID == bidID {
			b.Valid = false
			return nil
		}
	}
	return errors.NewNotFoundError("bid")
}

// DropLast removes the most recently appended bid. Only the engine's
// persistence rollback uses this, before the append was ever observable;
// the journaled history stays append-only.
func (l *Log) DropLast(playerID uuid.UUID) {
	entries := l.byPlayer[playerID]
	if len(entries) == 0 {
		return
	}
	l.byPlayer[playerID] = entries[:len(entries)-1]
}

// LatestValid returns the most recent valid bid on the player, nil when
// none is standing.
func (l *Log) LatestValid(playerID uuid.UUID) *Bid {
	entries := l.byPlayer[playerID]
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Valid {
			return entries[i]
		}
	}
	return nil
}

// CurrentTop returns the max-amount valid bid. Amounts are strictly
// increasing across the valid prefix, so the latest valid bid is the top.
func (l *Log) CurrentTop(playerID uuid.UUID) *Bid {
	var top *Bid
	for _, b := range l.byPlayer[playerID] {
		if !b.Valid {
			continue
		}
		if top == nil || top.Amount.LessThan(b.Amount) {
			top = b
		}
	}
	return top
}

// History returns the full sequence for the player, invalidated entries
// included.
func (l *Log) History(playerID uuid.UUID) []*Bid {
	entries := l.byPlayer[playerID]
	out := make([]*Bid, len(entries))
	copy(out, entries)
	return out
}

// ValidHistory returns the valid-only view in sequence order.
func (l *Log) ValidHistory(playerID uuid.UUID) []*Bid {
	var out []*Bid
	for _, b := range l.byPlayer[playerID] {
		if b.Valid {
			out = append(out, b)
		}
	}
	return out
}

// ValidCount reports how many valid bids stand on the player.
func (l *Log) ValidCount(playerID uuid.UUID) int {
	n := 0
	for _, b := range l.byPlayer[playerID] {
		if b.Valid {
			n++
		}
	}
	return n
}

// FindByClientID locates a bid on the player carrying the given
// client-supplied token. Used for duplicate submission dedup.
func (l *Log) FindByClientID(playerID uuid.UUID, clientBidID string) *Bid {
	if clientBidID == "" {
		return nil
	}
	for _, b := range l.byPlayer[playerID] {
		if b.ClientBidID == clientBidID {
			return b
		}
	}
	return nil
}
