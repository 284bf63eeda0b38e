package vote

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTallyRecordAndReplace(t *testing.T) {
	tally := NewTally()
	playerID := uuid.New()
	voter := uuid.New()

	counts, self := tally.Record(voter, playerID, Dislike)
	assert.Equal(t, Counts{Dislikes: 1}, counts)
	assert.Equal(t, Dislike, self)

	// Re-voting the same value is a no-op.
	counts, _ = tally.Record(voter, playerID, Dislike)
	assert.Equal(t, Counts{Dislikes: 1}, counts)

	// Flipping replaces instead of stacking.
	counts, self = tally.Record(voter, playerID, Like)
	assert.Equal(t, Counts{Likes: 1}, counts)
	assert.Equal(t, Like, self)
}

func TestTallyCountsPerPlayer(t *testing.T) {
	tally := NewTally()
	p1, p2 := uuid.New(), uuid.New()

	tally.Record(uuid.New(), p1, Dislike)
	tally.Record(uuid.New(), p1, Like)
	tally.Record(uuid.New(), p2, Dislike)

	assert.Equal(t, Counts{Likes: 1, Dislikes: 1}, tally.CountsFor(p1))
	assert.Equal(t, Counts{Dislikes: 1}, tally.CountsFor(p2))
	assert.Equal(t, Counts{}, tally.CountsFor(uuid.New()))
}

func TestTallyRemove(t *testing.T) {
	tally := NewTally()
	playerID := uuid.New()
	voter := uuid.New()

	tally.Record(voter, playerID, Dislike)
	tally.Remove(voter, playerID)
	assert.Equal(t, Counts{}, tally.CountsFor(playerID))

	_, voted := tally.ValueOf(voter, playerID)
	assert.False(t, voted)

	// Removing an absent vote is a no-op.
	tally.Remove(uuid.New(), playerID)
	tally.Remove(voter, uuid.New())
}

func TestTallySkipAdvised(t *testing.T) {
	tally := NewTally()
	playerID := uuid.New()

	// Quorum for 5 active managers at 0.6 is ceil(3.0) = 3.
	tally.Record(uuid.New(), playerID, Dislike)
	tally.Record(uuid.New(), playerID, Dislike)
	assert.False(t, tally.SkipAdvised(playerID, 5, 0.6))

	tally.Record(uuid.New(), playerID, Dislike)
	assert.True(t, tally.SkipAdvised(playerID, 5, 0.6))

	// Likes never count toward the quorum.
	tally.Record(uuid.New(), playerID, Like)
	assert.True(t, tally.SkipAdvised(playerID, 5, 0.6))

	// Zero connected managers never advises.
	assert.False(t, tally.SkipAdvised(playerID, 0, 0.6))
}

func TestValueFromString(t *testing.T) {
	assert.Equal(t, Dislike, ValueFromString("dislike"))
	assert.Equal(t, Like, ValueFromString("like"))
	assert.Equal(t, Like, ValueFromString("anything"))
}
