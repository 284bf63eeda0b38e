package auction

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftroom/squad-auction-backend/internal/domain/values"
)

func newTestAuction(t *testing.T) *Auction {
	t.Helper()
	return New("summer draft", uuid.New(), DefaultConfig())
}

func addPlayer(a *Auction, category string) *Player {
	p := NewPlayer(a.ID, "player-"+category, category, values.NewMoneyFromInt(5))
	a.AddPlayer(p)
	return p
}

func TestAuctionCursorWalksCategoriesInOrder(t *testing.T) {
	a := newTestAuction(t)
	gk := addPlayer(a, "GK")
	def1 := addPlayer(a, "DEF")
	def2 := addPlayer(a, "DEF")
	att := addPlayer(a, "ATT")

	require.True(t, a.ResetCursor())
	assert.Equal(t, gk.ID, a.Cursor.PlayerID)
	assert.Equal(t, "GK", a.CurrentCategory())

	completed, done := a.Advance()
	assert.Equal(t, "GK", completed)
	assert.False(t, done)
	assert.Equal(t, def1.ID, a.Cursor.PlayerID)

	completed, done = a.Advance()
	assert.Empty(t, completed)
	assert.False(t, done)
	assert.Equal(t, def2.ID, a.Cursor.PlayerID)

	// MID is empty and gets skipped over entirely.
	completed, done = a.Advance()
	assert.Equal(t, "DEF", completed)
	assert.False(t, done)
	assert.Equal(t, att.ID, a.Cursor.PlayerID)
	assert.Equal(t, "ATT", a.CurrentCategory())

	completed, done = a.Advance()
	assert.Equal(t, "ATT", completed)
	assert.True(t, done)
	assert.Nil(t, a.CurrentPlayer())
}

func TestAuctionResetCursorEmpty(t *testing.T) {
	a := newTestAuction(t)
	assert.False(t, a.ResetCursor())
	assert.Equal(t, 0, a.PlayerCount())
}

func TestAuctionResetCursorSkipsEmptyLeadingCategory(t *testing.T) {
	a := newTestAuction(t)
	mid := addPlayer(a, "MID")

	require.True(t, a.ResetCursor())
	assert.Equal(t, mid.ID, a.Cursor.PlayerID)
	assert.Equal(t, "MID", a.CurrentCategory())
}

func TestAuctionManagerRoster(t *testing.T) {
	a := newTestAuction(t)
	id := uuid.New()

	a.AddManager(id)
	a.AddManager(id) // duplicate ignored
	assert.Len(t, a.Managers, 1)
	assert.True(t, a.HasManager(id))
	assert.False(t, a.HasManager(uuid.New()))
}

func TestAuctionStatusTransitions(t *testing.T) {
	a := newTestAuction(t)
	assert.Equal(t, StatusDraft, a.Status)

	a.MarkOngoing()
	assert.Equal(t, StatusOngoing, a.Status)
	a.MarkPaused()
	assert.Equal(t, StatusPaused, a.Status)
	a.MarkCompleted()
	assert.Equal(t, StatusCompleted, a.Status)
	assert.Equal(t, uuid.Nil, a.Cursor.PlayerID)
}

func TestStatusRoundTrip(t *testing.T) {
	for _, s := range []Status{StatusDraft, StatusOngoing, StatusPaused, StatusCompleted} {
		assert.Equal(t, s, StatusFromString(s.String()))
	}
	for _, s := range []PlayerStatus{PlayerAvailable, PlayerActive, PlayerSold, PlayerUnsold, PlayerSkipped} {
		assert.Equal(t, s, PlayerStatusFromString(s.String()))
	}
}

func TestPlayerLifecycle(t *testing.T) {
	p := NewPlayer(uuid.New(), "Kane", "ATT", values.NewMoneyFromInt(10))
	bidder := uuid.New()

	p.Activate()
	assert.Equal(t, PlayerActive, p.Status)
	assert.False(t, p.HasBids())

	p.RecordBid(bidder, values.NewMoneyFromInt(12))
	assert.True(t, p.HasBids())
	assert.Equal(t, 1, p.TotalBids)
	require.NotNil(t, p.HighBidder)
	assert.Equal(t, bidder, *p.HighBidder)

	p.Sell(bidder, values.NewMoneyFromInt(12))
	assert.Equal(t, PlayerSold, p.Status)
	require.NotNil(t, p.FinalPrice)
	assert.True(t, p.FinalPrice.Equal(values.NewMoneyFromInt(12)))
}

func TestConfigNormalize(t *testing.T) {
	cfg := Config{}.Normalize()
	def := DefaultConfig()

	assert.Equal(t, def.InitialBid, cfg.InitialBid)
	assert.Equal(t, def.AntiSnipeThreshold, cfg.AntiSnipeThreshold)
	assert.Equal(t, def.AntiSnipeExtension, cfg.AntiSnipeExtension)
	assert.True(t, cfg.MinIncrement.Equal(def.MinIncrement))
	assert.Equal(t, def.CategoryOrder, cfg.CategoryOrder)
	assert.Equal(t, def.DislikeFraction, cfg.DislikeFraction)

	// Out-of-range fraction falls back.
	cfg = Config{DislikeFraction: 1.5}.Normalize()
	assert.Equal(t, def.DislikeFraction, cfg.DislikeFraction)
}
