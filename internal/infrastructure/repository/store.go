package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/draftroom/squad-auction-backend/internal/domain/account"
	"github.com/draftroom/squad-auction-backend/internal/domain/auction"
	"github.com/draftroom/squad-auction-backend/internal/domain/bid"
	"github.com/draftroom/squad-auction-backend/internal/domain/values"
	"github.com/draftroom/squad-auction-backend/internal/domain/vote"
	engine "github.com/draftroom/squad-auction-backend/internal/service/auction"
)

// Store journals engine state to PostgreSQL. The engine treats it as
// write-behind: in-memory state is authoritative and these writes gate
// command acknowledgement.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// configDoc is the persisted shape of auction.Config, in milliseconds.
type configDoc struct {
	InitialBidMs         int64    `json:"initial_bid_ms"`
	AntiSnipeThresholdMs int64    `json:"anti_snipe_threshold_ms"`
	AntiSnipeExtensionMs int64    `json:"anti_snipe_extension_ms"`
	MinIncrement         string   `json:"min_increment"`
	CategoryOrder        []string `json:"category_order"`
	DislikeFraction      float64  `json:"dislike_fraction"`
}

func encodeConfig(c auction.Config) ([]byte, error) {
	return json.Marshal(configDoc{
		InitialBidMs:         c.InitialBid.Milliseconds(),
		AntiSnipeThresholdMs: c.AntiSnipeThreshold.Milliseconds(),
		AntiSnipeExtensionMs: c.AntiSnipeExtension.Milliseconds(),
		MinIncrement:         c.MinIncrement.Amount().String(),
		CategoryOrder:        c.CategoryOrder,
		DislikeFraction:      c.DislikeFraction,
	})
}

func decodeConfig(data []byte) (auction.Config, error) {
	var doc configDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return auction.Config{}, err
	}
	minInc, err := values.NewMoneyFromString(doc.MinIncrement)
	if err != nil {
		return auction.Config{}, err
	}
	cfg := auction.Config{
		InitialBid:         time.Duration(doc.InitialBidMs) * time.Millisecond,
		AntiSnipeThreshold: time.Duration(doc.AntiSnipeThresholdMs) * time.Millisecond,
		AntiSnipeExtension: time.Duration(doc.AntiSnipeExtensionMs) * time.Millisecond,
		MinIncrement:       minInc,
		CategoryOrder:      doc.CategoryOrder,
		DislikeFraction:    doc.DislikeFraction,
	}
	return cfg.Normalize(), nil
}

func (s *Store) SaveAuction(ctx context.Context, a *auction.Auction) error {
	return s.saveAuction(ctx, s.pool, a)
}

// queryer is satisfied by both *pgxpool.Pool and pgx.Tx so the save
// helpers run standalone or inside the resolution transaction.
type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *Store) saveAuction(ctx context.Context, q queryer, a *auction.Auction) error {
	cfgJSON, err := encodeConfig(a.Config)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	queuesJSON, err := json.Marshal(a.Queues)
	if err != nil {
		return fmt.Errorf("encoding queues: %w", err)
	}
	managersJSON, err := json.Marshal(a.Managers)
	if err != nil {
		return fmt.Errorf("encoding managers: %w", err)
	}

	var currentPlayer *uuid.UUID
	if a.Cursor.PlayerID != uuid.Nil {
		id := a.Cursor.PlayerID
		currentPlayer = &id
	}

	query := `
		INSERT INTO auctions (
			id, name, admin_id, status, config, queues, managers,
			category_index, player_index, current_player_id,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			config = EXCLUDED.config,
			queues = EXCLUDED.queues,
			managers = EXCLUDED.managers,
			category_index = EXCLUDED.category_index,
			player_index = EXCLUDED.player_index,
			current_player_id = EXCLUDED.current_player_id,
			updated_at = EXCLUDED.updated_at
	`
	_, err = q.Exec(ctx, query,
		a.ID, a.Name, a.AdminID, a.Status.String(), cfgJSON, queuesJSON, managersJSON,
		a.Cursor.CategoryIndex, a.Cursor.PlayerIndex, currentPlayer,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving auction: %w", err)
	}
	return nil
}

func (s *Store) SavePlayer(ctx context.Context, p *auction.Player) error {
	return s.savePlayer(ctx, s.pool, p)
}

func (s *Store) savePlayer(ctx context.Context, q queryer, p *auction.Player) error {
	query := `
		INSERT INTO players (
			id, auction_id, name, category, base_value, status,
			current_bid, high_bidder, total_bids, winner, final_price,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			current_bid = EXCLUDED.current_bid,
			high_bidder = EXCLUDED.high_bidder,
			total_bids = EXCLUDED.total_bids,
			winner = EXCLUDED.winner,
			final_price = EXCLUDED.final_price,
			updated_at = EXCLUDED.updated_at
	`
	var finalPrice *string
	if p.FinalPrice != nil {
		fp := p.FinalPrice.Amount().String()
		finalPrice = &fp
	}
	_, err := q.Exec(ctx, query,
		p.ID, p.AuctionID, p.Name, p.Category, p.BaseValue.Amount().String(), p.Status.String(),
		p.CurrentBid.Amount().String(), p.HighBidder, p.TotalBids, p.Winner, finalPrice,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving player: %w", err)
	}
	return nil
}

func (s *Store) SaveBid(ctx context.Context, b *bid.Bid) error {
	query := `
		INSERT INTO bids (
			id, auction_id, player_id, bidder_id, amount, previous_amount,
			sequence, timer_remaining_ms, valid, source, client_bid_id, placed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.pool.Exec(ctx, query,
		b.ID, b.AuctionID, b.PlayerID, b.BidderID,
		b.Amount.Amount().String(), b.PreviousAmount.Amount().String(),
		b.Sequence, b.TimerRemaining.Milliseconds(), b.Valid, b.Source,
		nullableString(b.ClientBidID), b.PlacedAt,
	)
	if err != nil {
		return fmt.Errorf("saving bid: %w", err)
	}
	return nil
}

func (s *Store) InvalidateBid(ctx context.Context, bidID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `UPDATE bids SET valid = false WHERE id = $1`, bidID)
	if err != nil {
		return fmt.Errorf("invalidating bid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invalidating bid: no such bid %s", bidID)
	}
	return nil
}

func (s *Store) SaveManager(ctx context.Context, auctionID uuid.UUID, m *account.Manager) error {
	return s.saveManager(ctx, s.pool, auctionID, m)
}

func (s *Store) saveManager(ctx context.Context, q queryer, auctionID uuid.UUID, m *account.Manager) error {
	wonJSON, err := json.Marshal(m.WonPlayers)
	if err != nil {
		return fmt.Errorf("encoding won players: %w", err)
	}
	query := `
		INSERT INTO auction_managers (
			auction_id, manager_id, name, initial_balance, spent, won_players, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (auction_id, manager_id) DO UPDATE SET
			spent = EXCLUDED.spent,
			won_players = EXCLUDED.won_players,
			updated_at = EXCLUDED.updated_at
	`
	_, err = q.Exec(ctx, query,
		auctionID, m.ID, m.Name,
		m.InitialBalance.Amount().String(), m.Spent.Amount().String(),
		wonJSON, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving manager: %w", err)
	}
	return nil
}

func (s *Store) SaveVote(ctx context.Context, auctionID uuid.UUID, v *vote.Vote) error {
	query := `
		INSERT INTO votes (auction_id, player_id, voter_id, value, cast_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (player_id, voter_id) DO UPDATE SET
			value = EXCLUDED.value,
			cast_at = EXCLUDED.cast_at
	`
	_, err := s.pool.Exec(ctx, query, auctionID, v.PlayerID, v.VoterID, v.Value.String(), v.CastAt)
	if err != nil {
		return fmt.Errorf("saving vote: %w", err)
	}
	return nil
}

// CommitResolution writes the resolution tuple in one transaction:
// auction cursor, the touched players and the winning manager commit
// land together or not at all.
func (s *Store) CommitResolution(ctx context.Context, rec *engine.ResolutionRecord) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning resolution tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.saveAuction(ctx, tx, rec.Auction); err != nil {
		return err
	}
	for _, p := range rec.Players {
		if err := s.savePlayer(ctx, tx, p); err != nil {
			return err
		}
	}
	if rec.Winner != nil {
		if err := s.saveManager(ctx, tx, rec.Auction.ID, rec.Winner); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing resolution tx: %w", err)
	}
	return nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
