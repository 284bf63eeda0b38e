package account

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftroom/squad-auction-backend/internal/domain/errors"
	"github.com/draftroom/squad-auction-backend/internal/domain/values"
)

func newTestLedger(t *testing.T, balance int64) (*Ledger, uuid.UUID) {
	t.Helper()
	l := NewLedger()
	id := uuid.New()
	l.Register(NewManager(id, "alice", values.NewMoneyFromInt(balance)))
	return l, id
}

func TestLedgerUnknownManager(t *testing.T) {
	l := NewLedger()
	_, err := l.Get(uuid.New())
	assert.ErrorIs(t, err, errors.ErrUnknownManager)

	err = l.Reserve(uuid.New(), values.NewMoneyFromInt(10), uuid.New())
	assert.ErrorIs(t, err, errors.ErrUnknownManager)
}

func TestLedgerReserveWithinBalance(t *testing.T) {
	l, id := newTestLedger(t, 100)
	playerID := uuid.New()

	require.NoError(t, l.Reserve(id, values.NewMoneyFromInt(60), playerID))

	avail, err := l.AvailableFor(id)
	require.NoError(t, err)
	assert.True(t, avail.Equal(values.NewMoneyFromInt(40)))
}

func TestLedgerReserveInsufficient(t *testing.T) {
	l, id := newTestLedger(t, 100)

	err := l.Reserve(id, values.NewMoneyFromInt(101), uuid.New())
	assert.ErrorIs(t, err, errors.ErrInsufficientBalance)
}

func TestLedgerReserveReplacesOnSamePlayer(t *testing.T) {
	l, id := newTestLedger(t, 100)
	playerID := uuid.New()

	require.NoError(t, l.Reserve(id, values.NewMoneyFromInt(90), playerID))
	// The prior hold on the same player counts as headroom for the raise.
	require.NoError(t, l.Reserve(id, values.NewMoneyFromInt(100), playerID))

	avail, err := l.AvailableFor(id)
	require.NoError(t, err)
	assert.True(t, avail.IsZero())
}

func TestLedgerReservationsAcrossPlayersStack(t *testing.T) {
	l, id := newTestLedger(t, 100)

	require.NoError(t, l.Reserve(id, values.NewMoneyFromInt(60), uuid.New()))
	err := l.Reserve(id, values.NewMoneyFromInt(60), uuid.New())
	assert.ErrorIs(t, err, errors.ErrInsufficientBalance)
}

func TestLedgerRelease(t *testing.T) {
	l, id := newTestLedger(t, 100)
	playerID := uuid.New()

	require.NoError(t, l.Reserve(id, values.NewMoneyFromInt(100), playerID))
	require.NoError(t, l.ReleaseReservation(id, playerID))

	avail, err := l.AvailableFor(id)
	require.NoError(t, err)
	assert.True(t, avail.Equal(values.NewMoneyFromInt(100)))
}

func TestLedgerCommitMovesReservationToSpent(t *testing.T) {
	l, id := newTestLedger(t, 100)
	playerID := uuid.New()

	require.NoError(t, l.Reserve(id, values.NewMoneyFromInt(45), playerID))
	require.NoError(t, l.Commit(id, values.NewMoneyFromInt(45), playerID))

	m, err := l.Get(id)
	require.NoError(t, err)
	assert.True(t, m.Spent.Equal(values.NewMoneyFromInt(45)))
	assert.True(t, m.TotalReserved().IsZero())
	assert.Equal(t, []uuid.UUID{playerID}, m.WonPlayers)

	avail, err := l.AvailableFor(id)
	require.NoError(t, err)
	assert.True(t, avail.Equal(values.NewMoneyFromInt(55)))
}

func TestLedgerRevertCommit(t *testing.T) {
	l, id := newTestLedger(t, 100)
	playerID := uuid.New()

	require.NoError(t, l.Reserve(id, values.NewMoneyFromInt(45), playerID))
	require.NoError(t, l.Commit(id, values.NewMoneyFromInt(45), playerID))
	require.NoError(t, l.RevertCommit(id, values.NewMoneyFromInt(45), playerID))

	m, err := l.Get(id)
	require.NoError(t, err)
	assert.True(t, m.Spent.IsZero())
	assert.Empty(t, m.WonPlayers)
	assert.True(t, m.ReservationOn(playerID).Equal(values.NewMoneyFromInt(45)))
}
