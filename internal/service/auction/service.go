package auction

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/draftroom/squad-auction-backend/internal/domain/account"
	"github.com/draftroom/squad-auction-backend/internal/domain/auction"
	"github.com/draftroom/squad-auction-backend/internal/domain/errors"
	"github.com/draftroom/squad-auction-backend/internal/domain/values"
)

// Service is the registry of live engines, one serial executor per
// auction. Different auctions execute independently in parallel.
type Service struct {
	store    Store
	loader   Loader
	bcast    Broadcaster
	presence Presence
	logger   *zap.Logger

	mu      sync.RWMutex
	engines map[uuid.UUID]*Engine
}

func NewService(store Store, loader Loader, bcast Broadcaster, presence Presence, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		loader:   loader,
		bcast:    bcast,
		presence: presence,
		logger:   logger,
		engines:  make(map[uuid.UUID]*Engine),
	}
}

// PlayerSpec describes one catalog entry at auction creation.
type PlayerSpec struct {
	Name      string
	Category  string
	BaseValue values.Money
}

// ManagerSpec describes one roster entry at auction creation.
type ManagerSpec struct {
	ID             uuid.UUID
	Name           string
	InitialBalance values.Money
}

// CreateAuction builds the draft aggregate, journals it and registers a
// live engine for it.
func (s *Service) CreateAuction(ctx context.Context, name string, adminID uuid.UUID, cfg auction.Config, players []PlayerSpec, managers []ManagerSpec) (*auction.Auction, error) {
	a := auction.New(name, adminID, cfg)

	ledger := account.NewLedger()
	for _, ms := range managers {
		a.AddManager(ms.ID)
		ledger.Register(account.NewManager(ms.ID, ms.Name, ms.InitialBalance))
	}
	for _, ps := range players {
		a.AddPlayer(auction.NewPlayer(a.ID, ps.Name, ps.Category, ps.BaseValue))
	}

	if err := s.store.SaveAuction(ctx, a); err != nil {
		return nil, errors.NewPersistenceError("journal auction").WithCause(err)
	}
	for _, p := range a.Players {
		if err := s.store.SavePlayer(ctx, p); err != nil {
			return nil, errors.NewPersistenceError("journal player").WithCause(err)
		}
	}
	for _, m := range ledger.Managers() {
		if err := s.store.SaveManager(ctx, a.ID, m); err != nil {
			return nil, errors.NewPersistenceError("journal manager").WithCause(err)
		}
	}

	engine := NewEngine(a, ledger, s.store, s.bcast, s.presence, s.logger)

	s.mu.Lock()
	s.engines[a.ID] = engine
	s.mu.Unlock()
	s.installSnapshotProvider(engine)

	s.logger.Info("auction created",
		zap.String("auction_id", a.ID.String()),
		zap.String("name", name),
		zap.Int("players", len(players)),
		zap.Int("managers", len(managers)))

	return a, nil
}

// Engine returns the live engine for the auction.
func (s *Service) Engine(auctionID uuid.UUID) (*Engine, error) {
	s.mu.RLock()
	engine, ok := s.engines[auctionID]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.ErrUnknownAuction
	}
	return engine, nil
}

// Restore rebuilds an engine from the journal after a cold start.
func (s *Service) Restore(ctx context.Context, auctionID uuid.UUID) (*Engine, error) {
	s.mu.RLock()
	if engine, ok := s.engines[auctionID]; ok {
		s.mu.RUnlock()
		return engine, nil
	}
	s.mu.RUnlock()

	state, err := s.loader.LoadState(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	engine := NewEngineFromState(state, s.store, s.bcast, s.presence, s.logger)

	s.mu.Lock()
	s.engines[auctionID] = engine
	s.mu.Unlock()
	s.installSnapshotProvider(engine)

	s.logger.Info("auction restored from journal",
		zap.String("auction_id", auctionID.String()),
		zap.String("status", state.Auction.Status.String()),
		zap.Int("bids_replayed", len(state.Bids)))

	return engine, nil
}

// installSnapshotProvider lets the broadcaster hand late subscribers a
// current snapshot. Broadcasters without resync support are fine; the
// tests' recording double is one.
func (s *Service) installSnapshotProvider(engine *Engine) {
	installer, ok := s.bcast.(interface {
		SetSnapshotProvider(auctionID uuid.UUID, provider func() interface{})
	})
	if !ok {
		return
	}
	auctionID := engine.Auction().ID
	installer.SetSnapshotProvider(auctionID, func() interface{} {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		snap, err := engine.Snapshot(ctx)
		if err != nil {
			return nil
		}
		return snap
	})
}

// Close shuts every engine down.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, engine := range s.engines {
		engine.Close()
	}
}
