package bid

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftroom/squad-auction-backend/internal/domain/values"
)

func appendBid(t *testing.T, l *Log, playerID uuid.UUID, amount int64) *Bid {
	t.Helper()
	b := New(uuid.New(), playerID, uuid.New(),
		values.NewMoneyFromInt(amount), values.Zero(), 10*time.Second, "test")
	l.Append(b)
	return b
}

func TestLogSequencesAreDense(t *testing.T) {
	l := NewLog()
	playerID := uuid.New()

	b1 := appendBid(t, l, playerID, 5)
	b2 := appendBid(t, l, playerID, 6)
	b3 := appendBid(t, l, playerID, 7)

	assert.Equal(t, 1, b1.Sequence)
	assert.Equal(t, 2, b2.Sequence)
	assert.Equal(t, 3, b3.Sequence)

	// A second player gets its own sequence space.
	other := appendBid(t, l, uuid.New(), 5)
	assert.Equal(t, 1, other.Sequence)
}

func TestLogInvalidateKeepsSequence(t *testing.T) {
	l := NewLog()
	playerID := uuid.New()

	appendBid(t, l, playerID, 5)
	b2 := appendBid(t, l, playerID, 6)

	require.NoError(t, l.Invalidate(playerID, b2.ID))
	assert.Equal(t, 1, l.ValidCount(playerID))
	assert.Len(t, l.History(playerID), 2)

	// The next append still extends the dense numbering.
	b3 := appendBid(t, l, playerID, 7)
	assert.Equal(t, 3, b3.Sequence)

	assert.Error(t, l.Invalidate(playerID, uuid.New()))
}

func TestLogLatestValidSkipsInvalidated(t *testing.T) {
	l := NewLog()
	playerID := uuid.New()

	b1 := appendBid(t, l, playerID, 5)
	b2 := appendBid(t, l, playerID, 6)

	require.NoError(t, l.Invalidate(playerID, b2.ID))
	assert.Equal(t, b1.ID, l.LatestValid(playerID).ID)

	require.NoError(t, l.Invalidate(playerID, b1.ID))
	assert.Nil(t, l.LatestValid(playerID))
}

func TestLogCurrentTop(t *testing.T) {
	l := NewLog()
	playerID := uuid.New()

	appendBid(t, l, playerID, 5)
	top := appendBid(t, l, playerID, 8)

	assert.Equal(t, top.ID, l.CurrentTop(playerID).ID)

	require.NoError(t, l.Invalidate(playerID, top.ID))
	got := l.CurrentTop(playerID)
	require.NotNil(t, got)
	assert.True(t, got.Amount.Equal(values.NewMoneyFromInt(5)))
}

func TestLogDropLast(t *testing.T) {
	l := NewLog()
	playerID := uuid.New()

	appendBid(t, l, playerID, 5)
	appendBid(t, l, playerID, 6)

	l.DropLast(playerID)
	assert.Len(t, l.History(playerID), 1)

	next := appendBid(t, l, playerID, 6)
	assert.Equal(t, 2, next.Sequence)

	// No-op on an empty history.
	l.DropLast(uuid.New())
}

func TestLogFindByClientID(t *testing.T) {
	l := NewLog()
	playerID := uuid.New()

	b := appendBid(t, l, playerID, 5)
	b.ClientBidID = "tok-1"

	assert.Equal(t, b.ID, l.FindByClientID(playerID, "tok-1").ID)
	assert.Nil(t, l.FindByClientID(playerID, "tok-2"))
	assert.Nil(t, l.FindByClientID(playerID, ""))
}

func TestBidIncrement(t *testing.T) {
	b := New(uuid.New(), uuid.New(), uuid.New(),
		values.NewMoneyFromInt(8), values.NewMoneyFromInt(5), time.Second, "test")
	assert.True(t, b.Increment().Equal(values.NewMoneyFromInt(3)))
}
