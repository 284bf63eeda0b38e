package vote

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type Value int

const (
	Like Value = iota
	Dislike
)

func (v Value) String() string {
	if v == Dislike {
		return "dislike"
	}
	return "like"
}

// ValueFromString parses a persisted or client-supplied vote value.
// Anything that is not "dislike" counts as a like.
func ValueFromString(s string) Value {
	if s == "dislike" {
		return Dislike
	}
	return Like
}

// Vote is one manager's current opinion on one player.
type Vote struct {
	PlayerID uuid.UUID `json:"player_id"`
	VoterID  uuid.UUID `json:"voter_id"`
	Value    Value     `json:"value"`
	CastAt   time.Time `json:"cast_at"`
}

// Counts is the admin-visible tally for a player.
type Counts struct {
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
}

// Tally keeps like/dislike counters per player plus the per-voter last
// vote so a re-vote replaces instead of stacking. Owned by one engine,
// mutated only from its serialized command flow.
type Tally struct {
	counts  map[uuid.UUID]*Counts
	byVoter map[uuid.UUID]map[uuid.UUID]Value // playerID -> voterID -> value
}

func NewTally() *Tally {
	return &Tally{
		counts:  make(map[uuid.UUID]*Counts),
		byVoter: make(map[uuid.UUID]map[uuid.UUID]Value),
	}
}

// Record registers the voter's value on the player, replacing any prior
// vote. Returns the updated counts plus the voter's own standing value.
func (t *Tally) Record(voterID, playerID uuid.UUID, value Value) (Counts, Value) {
	c, ok := t.counts[playerID]
	if !ok {
		c = &Counts{}
		t.counts[playerID] = c
	}
	voters, ok := t.byVoter[playerID]
	if !ok {
		voters = make(map[uuid.UUID]Value)
		t.byVoter[playerID] = voters
	}

	if prior, voted := voters[voterID]; voted {
		if prior == value {
			return *c, value
		}
		if prior == Dislike {
			c.Dislikes--
		} else {
			c.Likes--
		}
	}

	voters[voterID] = value
	if value == Dislike {
		c.Dislikes++
	} else {
		c.Likes++
	}
	return *c, value
}

// ValueOf returns the voter's standing vote on the player.
func (t *Tally) ValueOf(voterID, playerID uuid.UUID) (Value, bool) {
	v, ok := t.byVoter[playerID][voterID]
	return v, ok
}

// Remove withdraws the voter's vote. Used to roll back a Record whose
// journal write failed.
func (t *Tally) Remove(voterID, playerID uuid.UUID) {
	voters, ok := t.byVoter[playerID]
	if !ok {
		return
	}
	prior, voted := voters[voterID]
	if !voted {
		return
	}
	delete(voters, voterID)
	c := t.counts[playerID]
	if prior == Dislike {
		c.Dislikes--
	} else {
		c.Likes--
	}
}

// CountsFor returns the current tally for the player.
func (t *Tally) CountsFor(playerID uuid.UUID) Counts {
	if c, ok := t.counts[playerID]; ok {
		return *c
	}
	return Counts{}
}

// SkipAdvised reports whether dislikes have reached the quorum
// ceil(activeManagers * dislikeFraction). Advisory only: the authoritative
// skip stays an admin command.
func (t *Tally) SkipAdvised(playerID uuid.UUID, activeManagers int, dislikeFraction float64) bool {
	if activeManagers <= 0 {
		return false
	}
	quorum := int(math.Ceil(float64(activeManagers) * dislikeFraction))
	if quorum < 1 {
		quorum = 1
	}
	return t.CountsFor(playerID).Dislikes >= quorum
}
