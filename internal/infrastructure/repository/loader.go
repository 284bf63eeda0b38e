package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	apperrors "github.com/draftroom/squad-auction-backend/internal/domain/errors"

	"github.com/draftroom/squad-auction-backend/internal/domain/account"
	"github.com/draftroom/squad-auction-backend/internal/domain/auction"
	"github.com/draftroom/squad-auction-backend/internal/domain/bid"
	"github.com/draftroom/squad-auction-backend/internal/domain/values"
	"github.com/draftroom/squad-auction-backend/internal/domain/vote"
	engine "github.com/draftroom/squad-auction-backend/internal/service/auction"
)

// LoadState rebuilds the full engine state for one auction: the
// aggregate with its queues and players, the manager balances, the bid
// tail in placement order, and the standing votes.
func (s *Store) LoadState(ctx context.Context, auctionID uuid.UUID) (*engine.StoredState, error) {
	a, err := s.loadAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if err := s.loadPlayers(ctx, a); err != nil {
		return nil, err
	}
	managers, err := s.loadManagers(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	bids, err := s.loadBids(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	votes, err := s.loadVotes(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	return &engine.StoredState{
		Auction:  a,
		Managers: managers,
		Bids:     bids,
		Votes:    votes,
	}, nil
}

// ListAuctionIDs returns every non-completed auction, for cold-start
// restore.
func (s *Store) ListAuctionIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM auctions WHERE status <> 'completed' ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing auctions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning auction id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) loadAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error) {
	query := `
		SELECT id, name, admin_id, status, config, queues, managers,
		       category_index, player_index, current_player_id,
		       created_at, updated_at
		FROM auctions
		WHERE id = $1
	`
	var (
		a             auction.Auction
		status        string
		cfgJSON       []byte
		queuesJSON    []byte
		managersJSON  []byte
		currentPlayer *uuid.UUID
	)
	err := s.pool.QueryRow(ctx, query, auctionID).Scan(
		&a.ID, &a.Name, &a.AdminID, &status, &cfgJSON, &queuesJSON, &managersJSON,
		&a.Cursor.CategoryIndex, &a.Cursor.PlayerIndex, &currentPlayer,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrUnknownAuction
	}
	if err != nil {
		return nil, fmt.Errorf("loading auction %s: %w", auctionID, err)
	}

	a.Status = auction.StatusFromString(status)
	if a.Config, err = decodeConfig(cfgJSON); err != nil {
		return nil, fmt.Errorf("decoding config for %s: %w", auctionID, err)
	}
	if err := json.Unmarshal(queuesJSON, &a.Queues); err != nil {
		return nil, fmt.Errorf("decoding queues for %s: %w", auctionID, err)
	}
	if err := json.Unmarshal(managersJSON, &a.Managers); err != nil {
		return nil, fmt.Errorf("decoding managers for %s: %w", auctionID, err)
	}
	if a.Queues == nil {
		a.Queues = make(map[string][]uuid.UUID)
	}
	a.Players = make(map[uuid.UUID]*auction.Player)
	if currentPlayer != nil {
		a.Cursor.PlayerID = *currentPlayer
	}
	return &a, nil
}

func (s *Store) loadPlayers(ctx context.Context, a *auction.Auction) error {
	query := `
		SELECT id, name, category, base_value::text, status,
		       current_bid::text, high_bidder, total_bids, winner, final_price::text,
		       created_at, updated_at
		FROM players
		WHERE auction_id = $1
	`
	rows, err := s.pool.Query(ctx, query, a.ID)
	if err != nil {
		return fmt.Errorf("loading players for %s: %w", a.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		p := &auction.Player{AuctionID: a.ID}
		var (
			status     string
			baseValue  string
			currentBid string
			finalPrice *string
		)
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Category, &baseValue, &status,
			&currentBid, &p.HighBidder, &p.TotalBids, &p.Winner, &finalPrice,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return fmt.Errorf("scanning player: %w", err)
		}
		p.Status = auction.PlayerStatusFromString(status)
		if p.BaseValue, err = values.NewMoneyFromString(baseValue); err != nil {
			return fmt.Errorf("parsing base value for %s: %w", p.ID, err)
		}
		if p.CurrentBid, err = values.NewMoneyFromString(currentBid); err != nil {
			return fmt.Errorf("parsing current bid for %s: %w", p.ID, err)
		}
		if finalPrice != nil {
			fp, err := values.NewMoneyFromString(*finalPrice)
			if err != nil {
				return fmt.Errorf("parsing final price for %s: %w", p.ID, err)
			}
			p.FinalPrice = &fp
		}
		a.Players[p.ID] = p
	}
	return rows.Err()
}

func (s *Store) loadManagers(ctx context.Context, auctionID uuid.UUID) ([]*account.Manager, error) {
	query := `
		SELECT manager_id, name, initial_balance::text, spent::text, won_players, updated_at
		FROM auction_managers
		WHERE auction_id = $1
	`
	rows, err := s.pool.Query(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("loading managers for %s: %w", auctionID, err)
	}
	defer rows.Close()

	var managers []*account.Manager
	for rows.Next() {
		var (
			id        uuid.UUID
			name      string
			initial   string
			spent     string
			wonJSON   []byte
			updatedAt time.Time
		)
		if err := rows.Scan(&id, &name, &initial, &spent, &wonJSON, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning manager: %w", err)
		}
		initialBal, err := values.NewMoneyFromString(initial)
		if err != nil {
			return nil, fmt.Errorf("parsing balance for %s: %w", id, err)
		}
		spentAmt, err := values.NewMoneyFromString(spent)
		if err != nil {
			return nil, fmt.Errorf("parsing spent for %s: %w", id, err)
		}

		m := account.NewManager(id, name, initialBal)
		m.Spent = spentAmt
		m.UpdatedAt = updatedAt
		if len(wonJSON) > 0 {
			if err := json.Unmarshal(wonJSON, &m.WonPlayers); err != nil {
				return nil, fmt.Errorf("decoding won players for %s: %w", id, err)
			}
		}
		managers = append(managers, m)
	}
	return managers, rows.Err()
}

func (s *Store) loadBids(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	query := `
		SELECT id, player_id, bidder_id, amount::text, previous_amount::text,
		       sequence, timer_remaining_ms, valid, source, client_bid_id, placed_at
		FROM bids
		WHERE auction_id = $1
		ORDER BY placed_at, sequence
	`
	rows, err := s.pool.Query(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("loading bids for %s: %w", auctionID, err)
	}
	defer rows.Close()

	var bids []*bid.Bid
	for rows.Next() {
		b := &bid.Bid{AuctionID: auctionID}
		var (
			amount      string
			previous    string
			remainingMs int64
			clientBidID *string
		)
		if err := rows.Scan(
			&b.ID, &b.PlayerID, &b.BidderID, &amount, &previous,
			&b.Sequence, &remainingMs, &b.Valid, &b.Source, &clientBidID, &b.PlacedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning bid: %w", err)
		}
		if b.Amount, err = values.NewMoneyFromString(amount); err != nil {
			return nil, fmt.Errorf("parsing bid amount for %s: %w", b.ID, err)
		}
		if b.PreviousAmount, err = values.NewMoneyFromString(previous); err != nil {
			return nil, fmt.Errorf("parsing previous amount for %s: %w", b.ID, err)
		}
		b.TimerRemaining = time.Duration(remainingMs) * time.Millisecond
		if clientBidID != nil {
			b.ClientBidID = *clientBidID
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

func (s *Store) loadVotes(ctx context.Context, auctionID uuid.UUID) ([]*vote.Vote, error) {
	query := `
		SELECT player_id, voter_id, value, cast_at
		FROM votes
		WHERE auction_id = $1
		ORDER BY cast_at
	`
	rows, err := s.pool.Query(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("loading votes for %s: %w", auctionID, err)
	}
	defer rows.Close()

	var votes []*vote.Vote
	for rows.Next() {
		v := &vote.Vote{}
		var value string
		if err := rows.Scan(&v.PlayerID, &v.VoterID, &value, &v.CastAt); err != nil {
			return nil, fmt.Errorf("scanning vote: %w", err)
		}
		v.Value = vote.ValueFromString(value)
		votes = append(votes, v)
	}
	return votes, rows.Err()
}
