package auction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/draftroom/squad-auction-backend/internal/domain/account"
	domauction "github.com/draftroom/squad-auction-backend/internal/domain/auction"
	"github.com/draftroom/squad-auction-backend/internal/domain/bid"
	"github.com/draftroom/squad-auction-backend/internal/domain/values"
	"github.com/draftroom/squad-auction-backend/internal/domain/vote"
	"github.com/draftroom/squad-auction-backend/internal/metrics"
)

// failingResolutionStore journals everything except resolutions.
type failingResolutionStore struct {
	mu      sync.Mutex
	commits int
}

func (s *failingResolutionStore) SaveAuction(context.Context, *domauction.Auction) error { return nil }

func (s *failingResolutionStore) SavePlayer(context.Context, *domauction.Player) error { return nil }

func (s *failingResolutionStore) SaveBid(context.Context, *bid.Bid) error { return nil }

func (s *failingResolutionStore) InvalidateBid(context.Context, uuid.UUID) error { return nil }

func (s *failingResolutionStore) SaveManager(context.Context, uuid.UUID, *account.Manager) error {
	return nil
}

func (s *failingResolutionStore) SaveVote(context.Context, uuid.UUID, *vote.Vote) error { return nil }

func (s *failingResolutionStore) CommitResolution(context.Context, *ResolutionRecord) error {
	s.mu.Lock()
	s.commits++
	s.mu.Unlock()
	return errors.New("journal down")
}

func (s *failingResolutionStore) commitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

type nopBroadcast struct{}

func (nopBroadcast) Publish(uuid.UUID, string, interface{}) {}

func (nopBroadcast) PublishTo(uuid.UUID, string, string, interface{}) {}

// A timer-path sale whose journal stays down escalates to unsold; when
// that cannot journal either, the full revert must leave the standing
// high bid backed by its reservation.
func TestTimerResolutionDoubleJournalFailureKeepsReservation(t *testing.T) {
	orig := resolutionBackoff
	resolutionBackoff = []time.Duration{time.Millisecond}
	t.Cleanup(func() { resolutionBackoff = orig })

	admin, alice, bob := uuid.New(), uuid.New(), uuid.New()
	cfg := domauction.DefaultConfig()
	cfg.InitialBid = time.Hour
	a := domauction.New("revert test", admin, cfg)
	a.AddManager(alice)
	a.AddManager(bob)
	player := domauction.NewPlayer(a.ID, "Neuer", "GK", values.NewMoneyFromInt(5))
	a.AddPlayer(player)

	ledger := account.NewLedger()
	ledger.Register(account.NewManager(alice, "alice", values.NewMoneyFromInt(100)))
	ledger.Register(account.NewManager(bob, "bob", values.NewMoneyFromInt(100)))

	store := &failingResolutionStore{}
	e := NewEngine(a, ledger, store, nopBroadcast{}, nil, zap.NewNop())
	t.Cleanup(e.Close)

	ctx := context.Background()
	_, err := e.Start(ctx, admin)
	require.NoError(t, err)
	_, err = e.PlaceBid(ctx, BidRequest{BidderID: alice, PlayerID: player.ID, Amount: values.NewMoneyFromInt(5)})
	require.NoError(t, err)

	e.enqueueSynthetic(&command{kind: cmdTimerExpired, tick: e.timer.Generation()})

	// The sale attempt and the unsold escalation each run the initial
	// write plus one retry.
	require.Eventually(t, func() bool { return store.commitCount() >= 4 }, 5*time.Second, 10*time.Millisecond)

	snap, err := e.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ongoing", snap.Status)
	require.NotNil(t, snap.CurrentPlayer)
	assert.Equal(t, "active", snap.CurrentPlayer.Status)
	require.NotNil(t, snap.CurrentPlayer.HighBidder)
	assert.Equal(t, alice, *snap.CurrentPlayer.HighBidder)
	assert.True(t, snap.CurrentPlayer.CurrentBid.Equal(values.NewMoneyFromInt(5)))

	// The reservation still backs the restored high bid.
	m, err := ledger.Get(alice)
	require.NoError(t, err)
	assert.True(t, m.Spent.IsZero())
	assert.True(t, m.TotalReserved().Equal(values.NewMoneyFromInt(5)),
		"reserved %s, want 5", m.TotalReserved())
	assert.True(t, m.Available().Equal(values.NewMoneyFromInt(95)),
		"available %s, want 95", m.Available())

	// The contest stays live: an outbid is still possible, and the
	// replaced reservation releases cleanly.
	_, err = e.PlaceBid(ctx, BidRequest{BidderID: bob, PlayerID: player.ID, Amount: values.NewMoneyFromInt(6)})
	require.NoError(t, err)
	m, err = ledger.Get(alice)
	require.NoError(t, err)
	assert.True(t, m.TotalReserved().IsZero())
}

func TestCommandQueueDepthGauge(t *testing.T) {
	admin := uuid.New()
	a := domauction.New("gauge", admin, domauction.DefaultConfig())
	e := NewEngine(a, account.NewLedger(), &failingResolutionStore{}, nopBroadcast{}, nil, zap.NewNop())
	t.Cleanup(e.Close)

	_, err := e.Snapshot(context.Background())
	require.NoError(t, err)

	var m dto.Metric
	require.NoError(t, metrics.CommandQueueDepth.Write(&m))
	assert.Equal(t, 0.0, m.GetGauge().GetValue())
}
