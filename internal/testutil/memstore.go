// Package testutil provides in-memory infrastructure doubles for
// package-level tests.
package testutil

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/draftroom/squad-auction-backend/internal/domain/account"
	"github.com/draftroom/squad-auction-backend/internal/domain/auction"
	"github.com/draftroom/squad-auction-backend/internal/domain/bid"
	"github.com/draftroom/squad-auction-backend/internal/domain/errors"
	"github.com/draftroom/squad-auction-backend/internal/domain/vote"
	engine "github.com/draftroom/squad-auction-backend/internal/service/auction"
)

// MemStore is an in-memory journal with per-method failure injection.
type MemStore struct {
	mu sync.Mutex

	Auctions    map[uuid.UUID]*auction.Auction
	Players     map[uuid.UUID]*auction.Player
	Bids        []*bid.Bid
	Invalidated map[uuid.UUID]bool
	Managers    map[uuid.UUID]*account.Manager
	Votes       []*vote.Vote
	Resolutions int

	failures map[string]error
}

func NewMemStore() *MemStore {
	return &MemStore{
		Auctions:    make(map[uuid.UUID]*auction.Auction),
		Players:     make(map[uuid.UUID]*auction.Player),
		Invalidated: make(map[uuid.UUID]bool),
		Managers:    make(map[uuid.UUID]*account.Manager),
		failures:    make(map[string]error),
	}
}

// FailWith makes the named method return err until cleared with a nil
// err. Method names match the Store interface.
func (s *MemStore) FailWith(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, method)
		return
	}
	s.failures[method] = err
}

func (s *MemStore) failure(method string) error {
	return s.failures[method]
}

func (s *MemStore) SaveAuction(_ context.Context, a *auction.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("SaveAuction"); err != nil {
		return err
	}
	s.Auctions[a.ID] = a
	return nil
}

func (s *MemStore) SavePlayer(_ context.Context, p *auction.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("SavePlayer"); err != nil {
		return err
	}
	s.Players[p.ID] = p
	return nil
}

func (s *MemStore) SaveBid(_ context.Context, b *bid.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("SaveBid"); err != nil {
		return err
	}
	s.Bids = append(s.Bids, b)
	return nil
}

func (s *MemStore) InvalidateBid(_ context.Context, bidID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("InvalidateBid"); err != nil {
		return err
	}
	s.Invalidated[bidID] = true
	return nil
}

func (s *MemStore) SaveManager(_ context.Context, _ uuid.UUID, m *account.Manager) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("SaveManager"); err != nil {
		return err
	}
	s.Managers[m.ID] = m
	return nil
}

func (s *MemStore) SaveVote(_ context.Context, _ uuid.UUID, v *vote.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("SaveVote"); err != nil {
		return err
	}
	s.Votes = append(s.Votes, v)
	return nil
}

func (s *MemStore) CommitResolution(_ context.Context, rec *engine.ResolutionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("CommitResolution"); err != nil {
		return err
	}
	s.Auctions[rec.Auction.ID] = rec.Auction
	for _, p := range rec.Players {
		s.Players[p.ID] = p
	}
	if rec.Winner != nil {
		s.Managers[rec.Winner.ID] = rec.Winner
	}
	s.Resolutions++
	return nil
}

func (s *MemStore) LoadState(_ context.Context, auctionID uuid.UUID) (*engine.StoredState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.Auctions[auctionID]
	if !ok {
		return nil, errors.ErrUnknownAuction
	}
	state := &engine.StoredState{Auction: a}
	for _, m := range s.Managers {
		state.Managers = append(state.Managers, m)
	}
	for _, b := range s.Bids {
		if b.AuctionID == auctionID && !s.Invalidated[b.ID] {
			state.Bids = append(state.Bids, b)
		}
	}
	state.Votes = append(state.Votes, s.Votes...)
	return state, nil
}

// BidCount reports the journaled bid count, thread-safe.
func (s *MemStore) BidCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Bids)
}
