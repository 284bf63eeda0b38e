package auction

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/draftroom/squad-auction-backend/internal/domain/auction"
	"github.com/draftroom/squad-auction-backend/internal/domain/errors"
	"github.com/draftroom/squad-auction-backend/internal/metrics"
)

// Journal retry schedule for timer-path resolutions.
var resolutionBackoff = []time.Duration{
	100 * time.Millisecond,
	200 * time.Millisecond,
	400 * time.Millisecond,
	800 * time.Millisecond,
	1600 * time.Millisecond,
	2 * time.Second,
}

// resolveCurrent closes the contest on the active player and advances the
// session cursor. Reached from timer expiry (viaTimer=true, journal
// failures retry with backoff before escalating to unsold) and from
// FinalCall (journal failure reverts, the player stays active and a next
// attempt may proceed).
func (e *Engine) resolveCurrent(ctx context.Context, viaTimer bool) error {
	player := e.auc.CurrentPlayer()

	remaining := e.timer.Remaining()
	e.timer.Cancel()
	// Re-arming after a failed resolution must not fire instantly in a
	// tight loop when the countdown had already hit zero.
	if remaining < time.Second {
		remaining = time.Second
	}

	prevCursor := e.auc.Cursor
	prevStatus := player.Status
	prevBid := player.CurrentBid
	prevBidder := player.HighBidder

	sold := player.HasBids()
	if sold {
		winnerID := *player.HighBidder
		finalPrice := player.CurrentBid
		if err := e.ledger.Commit(winnerID, finalPrice, player.ID); err != nil {
			e.timer.Arm(remaining)
			return errors.NewInternalError("ledger commit failed").WithCause(err)
		}
		player.Sell(winnerID, finalPrice)
	} else {
		player.MarkUnsold()
	}

	completedCat, done := e.auc.Advance()
	var next *auction.Player
	if done {
		e.auc.MarkCompleted()
	} else {
		next = e.auc.CurrentPlayer()
		next.Activate()
	}

	rec := &ResolutionRecord{Auction: e.auc, Players: []*auction.Player{player}}
	if next != nil {
		rec.Players = append(rec.Players, next)
	}
	if sold {
		if m, err := e.ledger.Get(*player.Winner); err == nil {
			rec.Winner = m
		}
	}

	released := false
	err := e.commitResolution(ctx, rec, viaTimer)
	if err != nil && viaTimer && sold {
		// Escalate: back out the sale and resolve unsold so the session
		// can make progress. The inconsistency is logged for operator
		// review.
		e.logger.Error("resolution journal exhausted retries, escalating to unsold",
			zap.String("player", player.Name), zap.Error(err))
		e.ledger.RevertCommit(*player.Winner, *player.FinalPrice, player.ID)
		e.ledger.ReleaseReservation(*prevBidder, player.ID)
		released = true
		player.Winner = nil
		player.FinalPrice = nil
		player.MarkUnsold()
		sold = false
		rec.Winner = nil
		err = e.commitResolution(ctx, rec, true)
	}
	if err != nil {
		if viaTimer {
			// Unsold resolution that still cannot journal: park the
			// player back in active and surface the error.
			e.logger.Error("resolution journal failed, player stays active", zap.Error(err))
		}
		if next != nil {
			next.Status = auction.PlayerAvailable
		}
		if sold {
			e.ledger.RevertCommit(*player.Winner, *player.FinalPrice, player.ID)
			player.Winner = nil
			player.FinalPrice = nil
		}
		if released && prevBidder != nil {
			// The escalation path released the standing reservation; the
			// restored high bid must be backed again.
			if rerr := e.ledger.Reserve(*prevBidder, prevBid, player.ID); rerr != nil {
				e.logger.Error("failed to restore reservation after revert", zap.Error(rerr))
			}
		}
		player.Status = prevStatus
		player.CurrentBid = prevBid
		player.HighBidder = prevBidder
		e.auc.Cursor = prevCursor
		e.auc.Status = auction.StatusOngoing
		e.timer.Arm(remaining)
		return errors.NewPersistenceError("journal resolution").WithCause(err)
	}

	if sold {
		metrics.PlayersSold.Inc()
		e.publish(EventPlayerSold, playerSoldPayload{
			Player:     newPlayerView(player),
			Winner:     *player.Winner,
			FinalPrice: *player.FinalPrice,
		})
		e.logger.Info("player sold",
			zap.String("player", player.Name),
			zap.String("winner", player.Winner.String()),
			zap.String("final_price", player.FinalPrice.String()))
	} else {
		metrics.PlayersUnsold.Inc()
		e.publish(EventPlayerUnsold, newPlayerView(player))
		e.logger.Info("player unsold", zap.String("player", player.Name))
	}

	e.afterAdvance(completedCat, done, next)
	return nil
}

// commitResolution journals the resolution tuple, retrying on the timer
// path only.
func (e *Engine) commitResolution(ctx context.Context, rec *ResolutionRecord, viaTimer bool) error {
	err := e.store.CommitResolution(ctx, rec)
	if err == nil || !viaTimer {
		return err
	}
	for _, delay := range resolutionBackoff {
		select {
		case <-time.After(delay):
		case <-e.done:
			return err
		}
		if err = e.store.CommitResolution(ctx, rec); err == nil {
			return nil
		}
		e.logger.Warn("resolution journal retry failed",
			zap.Duration("backoff", delay), zap.Error(err))
	}
	return err
}

// afterAdvance emits the cursor-movement events and arms the next
// contest.
func (e *Engine) afterAdvance(completedCategory string, done bool, next *auction.Player) {
	if completedCategory != "" {
		e.publish(EventCategoryCompleted, categoryCompletedPayload{Category: completedCategory})
	}
	if done {
		metrics.AuctionsActive.Dec()
		if !e.startedAt.IsZero() {
			metrics.AuctionDuration.Observe(time.Since(e.startedAt).Seconds())
		}
		e.publish(EventAuctionCompleted, e.snapshot())
		e.logger.Info("auction completed")
		return
	}

	e.timer.Arm(e.auc.Config.InitialBid)
	e.publish(EventNextPlayer, nextPlayerPayload{
		Player:           newPlayerView(next),
		Category:         e.auc.CurrentCategory(),
		TimerRemainingMs: e.auc.Config.InitialBid.Milliseconds(),
	})
	e.publishTick(e.auc.Config.InitialBid, false)
}
