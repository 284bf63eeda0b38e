package auction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/draftroom/squad-auction-backend/internal/domain/account"
	"github.com/draftroom/squad-auction-backend/internal/domain/auction"
	"github.com/draftroom/squad-auction-backend/internal/domain/bid"
	"github.com/draftroom/squad-auction-backend/internal/domain/errors"
	"github.com/draftroom/squad-auction-backend/internal/domain/values"
	"github.com/draftroom/squad-auction-backend/internal/domain/vote"
	"github.com/draftroom/squad-auction-backend/internal/metrics"
)

const commandQueueSize = 256

// Engine is the single serialization point for one auction. Every
// mutating operation enters the command queue and runs to completion, in
// arrival order, on the engine goroutine. That goroutine is the only
// writer of session state: the aggregate, the bid log, the ledger rows of
// roster managers, and the vote tally.
type Engine struct {
	auc    *auction.Auction
	ledger *account.Ledger
	log    *bid.Log
	tally  *vote.Tally
	timer  *contestTimer

	store    Store
	bcast    Broadcaster
	presence Presence
	logger   *zap.Logger

	cmds chan *command
	done chan struct{}

	startedAt time.Time
}

// NewEngine builds an engine around a draft aggregate. Managers must be
// registered in the ledger before Start.
func NewEngine(a *auction.Auction, ledger *account.Ledger, store Store, bcast Broadcaster, presence Presence, logger *zap.Logger) *Engine {
	e := &Engine{
		auc:      a,
		ledger:   ledger,
		log:      bid.NewLog(),
		tally:    vote.NewTally(),
		store:    store,
		bcast:    bcast,
		presence: presence,
		logger:   logger.With(zap.String("auction_id", a.ID.String())),
		cmds:     make(chan *command, commandQueueSize),
		done:     make(chan struct{}),
	}
	e.timer = newContestTimer(e.onTimerExpired, e.onTimerTick)
	go e.run()
	return e
}

// NewEngineFromState rebuilds an engine from the journal on cold start.
// The bid tail is replayed through the log; an auction that was ongoing
// comes back paused and waits for an admin Continue, because the live
// countdown did not survive the restart.
func NewEngineFromState(state *StoredState, store Store, bcast Broadcaster, presence Presence, logger *zap.Logger) *Engine {
	ledger := account.NewLedger()
	for _, m := range state.Managers {
		ledger.Register(m)
	}

	e := NewEngine(state.Auction, ledger, store, bcast, presence, logger)

	for _, b := range state.Bids {
		e.log.Append(b)
	}
	for _, v := range state.Votes {
		e.tally.Record(v.VoterID, v.PlayerID, v.Value)
	}

	if state.Auction.Status == auction.StatusOngoing {
		state.Auction.MarkPaused()
		// Reinstate the reservation for the standing high bid.
		if p := state.Auction.CurrentPlayer(); p != nil && p.HighBidder != nil {
			if err := ledger.Reserve(*p.HighBidder, p.CurrentBid, p.ID); err != nil {
				e.logger.Error("failed to rebuild reservation", zap.Error(err))
			}
		}
	}
	if state.Auction.Status == auction.StatusPaused {
		// The live countdown did not survive the restart; the admin's
		// Continue restarts the contest with a full window.
		e.timer.Prime(state.Auction.Config.InitialBid)
	}

	return e
}

// Close stops the engine goroutine and the timer.
func (e *Engine) Close() {
	select {
	case <-e.done:
		return
	default:
	}
	close(e.done)
	e.timer.Cancel()
}

// Auction exposes the aggregate for read-only wiring (registry lookups).
// Mutation outside the command flow is not allowed.
func (e *Engine) Auction() *auction.Auction {
	return e.auc
}

// --- public command surface ---

func (e *Engine) Start(ctx context.Context, adminID uuid.UUID) (*Result, error) {
	return e.submit(ctx, &command{kind: cmdStart, callerID: adminID})
}

func (e *Engine) Stop(ctx context.Context, adminID uuid.UUID) (*Result, error) {
	return e.submit(ctx, &command{kind: cmdStop, callerID: adminID})
}

func (e *Engine) Continue(ctx context.Context, adminID uuid.UUID) (*Result, error) {
	return e.submit(ctx, &command{kind: cmdContinue, callerID: adminID})
}

func (e *Engine) PlaceBid(ctx context.Context, req BidRequest) (*Result, error) {
	return e.submit(ctx, &command{
		kind:         cmdPlaceBid,
		callerID:     req.BidderID,
		playerID:     req.PlayerID,
		amount:       req.Amount,
		clientBidID:  req.ClientBidID,
		source:       req.Source,
		subscriberID: req.SubscriberID,
	})
}

func (e *Engine) FinalCall(ctx context.Context, adminID uuid.UUID) (*Result, error) {
	return e.submit(ctx, &command{kind: cmdFinalCall, callerID: adminID})
}

func (e *Engine) Skip(ctx context.Context, adminID, playerID uuid.UUID) (*Result, error) {
	return e.submit(ctx, &command{kind: cmdSkip, callerID: adminID, playerID: playerID})
}

func (e *Engine) Undo(ctx context.Context, adminID uuid.UUID) (*Result, error) {
	return e.submit(ctx, &command{kind: cmdUndo, callerID: adminID})
}

func (e *Engine) Vote(ctx context.Context, voterID, playerID uuid.UUID, value vote.Value) (*Result, error) {
	return e.submit(ctx, &command{kind: cmdVote, callerID: voterID, playerID: playerID, voteValue: value})
}

// Snapshot reads consistent state through the command queue.
func (e *Engine) Snapshot(ctx context.Context) (*Snapshot, error) {
	res, err := e.submit(ctx, &command{kind: cmdSnapshot})
	if err != nil {
		return nil, err
	}
	return res.Snapshot, nil
}

// submit enqueues and waits for the reply. A deadline that elapses before
// dequeue drops the command unobserved.
func (e *Engine) submit(ctx context.Context, cmd *command) (*Result, error) {
	cmd.ctx = ctx
	cmd.reply = make(chan commandReply, 1)

	select {
	case e.cmds <- cmd:
	case <-ctx.Done():
		return nil, errors.NewCancelledError("command cancelled before dequeue")
	case <-e.done:
		return nil, errors.ErrUnknownAuction
	}

	select {
	case rep := <-cmd.reply:
		return rep.result, rep.err
	case <-e.done:
		return nil, errors.ErrUnknownAuction
	}
}

// enqueueSynthetic posts a timer-originated command. Blocking is fine:
// the engine goroutine drains the queue, and shutdown unblocks via done.
func (e *Engine) enqueueSynthetic(cmd *command) {
	cmd.ctx = context.Background()
	select {
	case e.cmds <- cmd:
	case <-e.done:
	}
}

func (e *Engine) onTimerExpired(gen uint64) {
	e.enqueueSynthetic(&command{kind: cmdTimerExpired, tick: gen})
}

func (e *Engine) onTimerTick(gen uint64, remaining time.Duration) {
	cmd := &command{kind: cmdTimerTick, tick: gen, remaining: remaining, ctx: context.Background()}
	// Ticks are coarse and lossy; never let them back up the queue.
	select {
	case e.cmds <- cmd:
	default:
	}
}

// --- engine loop ---

func (e *Engine) run() {
	for {
		select {
		case <-e.done:
			return
		case cmd := <-e.cmds:
			e.dispatch(cmd)
		}
	}
}

func (e *Engine) dispatch(cmd *command) {
	metrics.CommandQueueDepth.Set(float64(len(e.cmds)))

	// Deadline elapsed while queued: drop unobserved.
	if err := cmd.ctx.Err(); err != nil {
		e.replyErr(cmd, errors.NewCancelledError("command deadline elapsed in queue"))
		return
	}

	started := time.Now()
	var (
		res *Result
		err error
	)

	switch cmd.kind {
	case cmdStart:
		res, err = e.handleStart(cmd)
	case cmdStop:
		res, err = e.handleStop(cmd)
	case cmdContinue:
		res, err = e.handleContinue(cmd)
	case cmdPlaceBid:
		res, err = e.handlePlaceBid(cmd)
	case cmdFinalCall:
		res, err = e.handleFinalCall(cmd)
	case cmdSkip:
		res, err = e.handleSkip(cmd)
	case cmdUndo:
		res, err = e.handleUndo(cmd)
	case cmdVote:
		res, err = e.handleVote(cmd)
	case cmdTimerExpired:
		e.handleTimerExpired(cmd)
		return
	case cmdTimerTick:
		e.handleTimerTick(cmd)
		return
	case cmdSnapshot:
		res = &Result{Snapshot: e.snapshot()}
	default:
		err = errors.NewInternalError("unknown command kind")
	}

	metrics.CommandDuration.WithLabelValues(cmd.kind.String()).Observe(time.Since(started).Seconds())

	if err != nil {
		e.replyErr(cmd, err)
		return
	}
	e.reply(cmd, res)
}

func (e *Engine) reply(cmd *command, res *Result) {
	if cmd.reply != nil {
		cmd.reply <- commandReply{result: res}
	}
}

func (e *Engine) replyErr(cmd *command, err error) {
	if cmd.reply != nil {
		cmd.reply <- commandReply{err: err}
	}
}

// --- handlers ---

func (e *Engine) handleStart(cmd *command) (*Result, error) {
	if e.auc.Status != auction.StatusDraft {
		return nil, errors.ErrWrongState
	}
	if cmd.callerID != e.auc.AdminID {
		return nil, errors.ErrNotOwner
	}
	if e.auc.PlayerCount() == 0 {
		return nil, errors.ErrEmptyCatalog
	}

	prevCursor := e.auc.Cursor
	if !e.auc.ResetCursor() {
		return nil, errors.ErrEmptyCatalog
	}
	player := e.auc.CurrentPlayer()
	player.Activate()
	e.auc.MarkOngoing()

	if err := e.persistStart(cmd.ctx, player); err != nil {
		player.Status = auction.PlayerAvailable
		e.auc.Status = auction.StatusDraft
		e.auc.Cursor = prevCursor
		return nil, err
	}

	e.startedAt = time.Now()
	metrics.AuctionsActive.Inc()
	e.timer.Arm(e.auc.Config.InitialBid)

	e.publish(EventAuctionStarted, e.snapshot())
	e.publish(EventNextPlayer, nextPlayerPayload{
		Player:           newPlayerView(player),
		Category:         e.auc.CurrentCategory(),
		TimerRemainingMs: e.auc.Config.InitialBid.Milliseconds(),
	})
	e.publishTick(e.auc.Config.InitialBid, false)

	e.logger.Info("auction started",
		zap.String("first_player", player.Name),
		zap.Int("players", e.auc.PlayerCount()))

	return &Result{Snapshot: e.snapshot()}, nil
}

func (e *Engine) persistStart(ctx context.Context, player *auction.Player) error {
	if err := e.store.SaveAuction(ctx, e.auc); err != nil {
		return errors.NewPersistenceError("journal auction").WithCause(err)
	}
	if err := e.store.SavePlayer(ctx, player); err != nil {
		return errors.NewPersistenceError("journal player").WithCause(err)
	}
	return nil
}

func (e *Engine) handleStop(cmd *command) (*Result, error) {
	if cmd.callerID != e.auc.AdminID {
		return nil, errors.ErrNotOwner
	}
	if e.auc.Status == auction.StatusPaused {
		// Idempotent on paused.
		return &Result{Snapshot: e.snapshot()}, nil
	}
	if e.auc.Status != auction.StatusOngoing {
		return nil, errors.ErrWrongState
	}

	remaining := e.timer.Freeze()
	e.auc.MarkPaused()

	if err := e.store.SaveAuction(cmd.ctx, e.auc); err != nil {
		e.auc.MarkOngoing()
		e.timer.Resume()
		return nil, errors.NewPersistenceError("journal auction").WithCause(err)
	}

	e.publish(EventAuctionStopped, timerTickPayload{
		PlayerID:    e.auc.Cursor.PlayerID,
		RemainingMs: remaining.Milliseconds(),
	})
	e.logger.Info("auction paused", zap.Duration("timer_remaining", remaining))

	return &Result{Snapshot: e.snapshot()}, nil
}

func (e *Engine) handleContinue(cmd *command) (*Result, error) {
	if cmd.callerID != e.auc.AdminID {
		return nil, errors.ErrNotOwner
	}
	if e.auc.Status != auction.StatusPaused {
		return nil, errors.ErrWrongState
	}

	e.auc.MarkOngoing()
	if err := e.store.SaveAuction(cmd.ctx, e.auc); err != nil {
		e.auc.MarkPaused()
		return nil, errors.NewPersistenceError("journal auction").WithCause(err)
	}

	e.timer.Resume()
	remaining := e.timer.Remaining()

	e.publish(EventAuctionContinued, timerTickPayload{
		PlayerID:    e.auc.Cursor.PlayerID,
		RemainingMs: remaining.Milliseconds(),
	})
	e.publishTick(remaining, false)
	e.logger.Info("auction continued", zap.Duration("timer_remaining", remaining))

	return &Result{Snapshot: e.snapshot()}, nil
}

func (e *Engine) handlePlaceBid(cmd *command) (*Result, error) {
	res, err := e.placeBid(cmd)
	if err != nil {
		metrics.BidsRejected.WithLabelValues(errors.Kind(err)).Inc()
		if cmd.subscriberID != "" {
			e.bcast.PublishTo(e.auc.ID, cmd.subscriberID, EventBidRejected, bidRejectedPayload{
				PlayerID:  cmd.playerID,
				BidderID:  cmd.callerID,
				Amount:    cmd.amount,
				ErrorKind: errors.Kind(err),
				Message:   err.Error(),
			})
		}
		return nil, err
	}
	metrics.BidsAccepted.Inc()
	return res, nil
}

func (e *Engine) placeBid(cmd *command) (*Result, error) {
	if e.auc.Status != auction.StatusOngoing {
		return nil, errors.ErrWrongState
	}
	player := e.auc.CurrentPlayer()
	if player == nil || cmd.playerID != player.ID {
		return nil, errors.ErrNotActivePlayer
	}
	if !e.auc.HasManager(cmd.callerID) {
		return nil, errors.ErrUnknownManager
	}

	// Duplicate client submission: return the original accept.
	if dup := e.log.FindByClientID(player.ID, cmd.clientBidID); dup != nil && dup.BidderID == cmd.callerID {
		view := newBidView(dup)
		return &Result{Snapshot: e.snapshot(), Bid: &view}, nil
	}

	if player.HighBidder != nil && *player.HighBidder == cmd.callerID {
		return nil, errors.ErrSelfOutbid
	}

	minAmount := player.BaseValue
	if player.HasBids() {
		minAmount = player.CurrentBid.Add(e.auc.Config.MinIncrement)
	}
	if cmd.amount.LessThan(minAmount) {
		return nil, errors.ErrAmountTooLow
	}

	// Countdown the bidder saw, captured before any anti-snipe extension.
	remaining := e.timer.Remaining()

	prevBidder := player.HighBidder
	prevAmount := player.CurrentBid

	if err := e.ledger.Reserve(cmd.callerID, cmd.amount, player.ID); err != nil {
		return nil, err
	}
	if prevBidder != nil {
		if err := e.ledger.ReleaseReservation(*prevBidder, player.ID); err != nil {
			e.ledger.ReleaseReservation(cmd.callerID, player.ID)
			return nil, err
		}
	}

	b := bid.New(e.auc.ID, player.ID, cmd.callerID, cmd.amount, prevAmount, remaining, cmd.source)
	b.ClientBidID = cmd.clientBidID
	e.log.Append(b)
	player.RecordBid(cmd.callerID, cmd.amount)

	if err := e.persistBid(cmd.ctx, b, player, cmd.callerID, prevBidder); err != nil {
		e.log.DropLast(player.ID)
		player.CurrentBid = prevAmount
		player.HighBidder = prevBidder
		player.TotalBids--
		e.ledger.ReleaseReservation(cmd.callerID, player.ID)
		if prevBidder != nil {
			e.ledger.Reserve(*prevBidder, prevAmount, player.ID)
		}
		return nil, err
	}

	extended := false
	if remaining < e.auc.Config.AntiSnipeThreshold {
		_, extended = e.timer.Extend(e.auc.Config.AntiSnipeExtension)
	}

	view := newBidView(b)
	e.publish(EventBidAccepted, bidAcceptedPayload{
		Bid:              view,
		TimerRemainingMs: e.timer.Remaining().Milliseconds(),
		TimerExtended:    extended,
	})
	if extended {
		e.publishTick(e.timer.Remaining(), true)
	}

	e.logger.Debug("bid accepted",
		zap.String("player", player.Name),
		zap.String("bidder", cmd.callerID.String()),
		zap.String("amount", cmd.amount.String()),
		zap.Int("sequence", b.Sequence))

	return &Result{Snapshot: e.snapshot(), Bid: &view}, nil
}

func (e *Engine) persistBid(ctx context.Context, b *bid.Bid, player *auction.Player, bidderID uuid.UUID, prevBidder *uuid.UUID) error {
	if err := e.store.SaveBid(ctx, b); err != nil {
		return errors.NewPersistenceError("journal bid").WithCause(err)
	}
	if err := e.store.SavePlayer(ctx, player); err != nil {
		return errors.NewPersistenceError("journal player").WithCause(err)
	}
	if m, err := e.ledger.Get(bidderID); err == nil {
		if err := e.store.SaveManager(ctx, e.auc.ID, m); err != nil {
			return errors.NewPersistenceError("journal manager").WithCause(err)
		}
	}
	if prevBidder != nil {
		if m, err := e.ledger.Get(*prevBidder); err == nil {
			if err := e.store.SaveManager(ctx, e.auc.ID, m); err != nil {
				return errors.NewPersistenceError("journal manager").WithCause(err)
			}
		}
	}
	return nil
}

func (e *Engine) handleSkip(cmd *command) (*Result, error) {
	if cmd.callerID != e.auc.AdminID {
		return nil, errors.ErrNotOwner
	}
	if e.auc.Status != auction.StatusOngoing {
		return nil, errors.ErrWrongState
	}
	player := e.auc.CurrentPlayer()
	if player == nil || cmd.playerID != player.ID {
		return nil, errors.ErrNotActivePlayer
	}
	if e.log.ValidCount(player.ID) > 0 {
		return nil, errors.ErrWrongState
	}

	remaining := e.timer.Remaining()
	e.timer.Cancel()

	prevCursor := e.auc.Cursor
	player.MarkSkipped()
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
	if err := e.store.CommitResolution(cmd.ctx, rec); err != nil {
		if next != nil {
			next.Status = auction.PlayerAvailable
		}
		player.Activate()
		e.auc.Cursor = prevCursor
		e.auc.Status = auction.StatusOngoing
		e.timer.Arm(remaining)
		return nil, errors.NewPersistenceError("journal skip").WithCause(err)
	}

	metrics.PlayersUnsold.Inc()
	e.publish(EventPlayerSkipped, newPlayerView(player))
	e.afterAdvance(completedCat, done, next)
	e.logger.Info("player skipped", zap.String("player", player.Name))

	return &Result{Snapshot: e.snapshot()}, nil
}

func (e *Engine) handleUndo(cmd *command) (*Result, error) {
	if cmd.callerID != e.auc.AdminID {
		return nil, errors.ErrNotOwner
	}
	if e.auc.Status != auction.StatusOngoing {
		return nil, errors.ErrWrongState
	}
	player := e.auc.CurrentPlayer()
	if player == nil {
		return nil, errors.ErrWrongState
	}
	undone := e.log.LatestValid(player.ID)
	if undone == nil {
		return nil, errors.ErrNothingToUndo
	}

	undone.Valid = false
	top := e.log.CurrentTop(player.ID)

	prevBid := player.CurrentBid
	prevBidder := player.HighBidder
	prevTotal := player.TotalBids

	e.ledger.ReleaseReservation(undone.BidderID, player.ID)
	if top != nil {
		if err := e.ledger.Reserve(top.BidderID, top.Amount, player.ID); err != nil {
			undone.Valid = true
			e.ledger.Reserve(undone.BidderID, undone.Amount, player.ID)
			return nil, errors.NewInternalError("failed to restore prior reservation").WithCause(err)
		}
		bidder := top.BidderID
		player.CurrentBid = top.Amount
		player.HighBidder = &bidder
	} else {
		player.CurrentBid = values.Zero()
		player.HighBidder = nil
	}
	player.TotalBids = e.log.ValidCount(player.ID)

	if err := e.persistUndo(cmd.ctx, undone, player, top); err != nil {
		undone.Valid = true
		player.CurrentBid = prevBid
		player.HighBidder = prevBidder
		player.TotalBids = prevTotal
		if top != nil {
			e.ledger.ReleaseReservation(top.BidderID, player.ID)
		}
		e.ledger.Reserve(undone.BidderID, undone.Amount, player.ID)
		return nil, err
	}

	// The timer is never extended back by an undo.
	payload := struct {
		UndoneBidID uuid.UUID  `json:"undone_bid_id"`
		Player      PlayerView `json:"player"`
	}{UndoneBidID: undone.ID, Player: newPlayerView(player)}
	e.publish(EventBidUndone, payload)

	e.logger.Info("bid undone",
		zap.String("player", player.Name),
		zap.Int("sequence", undone.Sequence))

	return &Result{Snapshot: e.snapshot()}, nil
}

func (e *Engine) persistUndo(ctx context.Context, undone *bid.Bid, player *auction.Player, top *bid.Bid) error {
	if err := e.store.InvalidateBid(ctx, undone.ID); err != nil {
		return errors.NewPersistenceError("journal bid invalidation").WithCause(err)
	}
	if err := e.store.SavePlayer(ctx, player); err != nil {
		return errors.NewPersistenceError("journal player").WithCause(err)
	}
	if m, err := e.ledger.Get(undone.BidderID); err == nil {
		if err := e.store.SaveManager(ctx, e.auc.ID, m); err != nil {
			return errors.NewPersistenceError("journal manager").WithCause(err)
		}
	}
	if top != nil {
		if m, err := e.ledger.Get(top.BidderID); err == nil {
			if err := e.store.SaveManager(ctx, e.auc.ID, m); err != nil {
				return errors.NewPersistenceError("journal manager").WithCause(err)
			}
		}
	}
	return nil
}

func (e *Engine) handleVote(cmd *command) (*Result, error) {
	if !e.auc.HasManager(cmd.callerID) {
		return nil, errors.ErrUnknownManager
	}
	if _, ok := e.auc.Players[cmd.playerID]; !ok {
		return nil, errors.ErrUnknownPlayer
	}

	prior, hadPrior := e.tally.ValueOf(cmd.callerID, cmd.playerID)
	counts, self := e.tally.Record(cmd.callerID, cmd.playerID, cmd.voteValue)

	v := &vote.Vote{PlayerID: cmd.playerID, VoterID: cmd.callerID, Value: cmd.voteValue, CastAt: time.Now()}
	if err := e.store.SaveVote(cmd.ctx, e.auc.ID, v); err != nil {
		if hadPrior {
			e.tally.Record(cmd.callerID, cmd.playerID, prior)
		} else {
			e.tally.Remove(cmd.callerID, cmd.playerID)
		}
		return nil, errors.NewPersistenceError("journal vote").WithCause(err)
	}

	advised := e.tally.SkipAdvised(cmd.playerID, e.activeManagerCount(cmd.ctx), e.auc.Config.DislikeFraction)
	e.publish(EventVoteRecorded, voteRecordedPayload{
		PlayerID:    cmd.playerID,
		Counts:      counts,
		SkipAdvised: advised,
	})

	return &Result{
		Snapshot:    e.snapshot(),
		Counts:      &counts,
		SelfValue:   self.String(),
		SkipAdvised: advised,
	}, nil
}

// activeManagerCount prefers live presence, falling back to roster size.
func (e *Engine) activeManagerCount(ctx context.Context) int {
	if e.presence != nil {
		if n, err := e.presence.ActiveManagerCount(ctx, e.auc.ID); err == nil && n > 0 {
			return n
		}
	}
	return len(e.auc.Managers)
}

func (e *Engine) handleFinalCall(cmd *command) (*Result, error) {
	if cmd.callerID != e.auc.AdminID {
		return nil, errors.ErrNotOwner
	}
	if e.auc.Status != auction.StatusOngoing {
		return nil, errors.ErrWrongState
	}
	if e.auc.CurrentPlayer() == nil {
		return nil, errors.ErrWrongState
	}

	if err := e.resolveCurrent(cmd.ctx, false); err != nil {
		return nil, err
	}
	return &Result{Snapshot: e.snapshot()}, nil
}

func (e *Engine) handleTimerExpired(cmd *command) {
	// Stale tick: the timer was re-armed, extended or cancelled since.
	if cmd.tick != e.timer.Generation() {
		return
	}
	if e.auc.Status != auction.StatusOngoing || e.auc.CurrentPlayer() == nil {
		return
	}
	if err := e.resolveCurrent(cmd.ctx, true); err != nil {
		e.logger.Error("timer resolution failed", zap.Error(err))
	}
}

func (e *Engine) handleTimerTick(cmd *command) {
	if cmd.tick != e.timer.Generation() {
		return
	}
	if e.auc.Status != auction.StatusOngoing {
		return
	}
	e.publishTick(cmd.remaining, false)
}

// --- event plumbing ---

func (e *Engine) publish(eventType string, payload interface{}) {
	e.bcast.Publish(e.auc.ID, eventType, payload)
}

func (e *Engine) publishTick(remaining time.Duration, extended bool) {
	e.publish(EventTimerTick, timerTickPayload{
		PlayerID:    e.auc.Cursor.PlayerID,
		RemainingMs: remaining.Milliseconds(),
		Extended:    extended,
	})
}

func newBidView(b *bid.Bid) BidView {
	return BidView{
		ID:               b.ID,
		PlayerID:         b.PlayerID,
		BidderID:         b.BidderID,
		Amount:           b.Amount,
		PreviousAmount:   b.PreviousAmount,
		Increment:        b.Increment(),
		Sequence:         b.Sequence,
		TimerRemainingMs: b.TimerRemaining.Milliseconds(),
		PlacedAt:         b.PlacedAt,
	}
}

func (e *Engine) snapshot() *Snapshot {
	snap := &Snapshot{
		AuctionID:        e.auc.ID,
		Status:           e.auc.Status.String(),
		TimerRemainingMs: e.timer.Remaining().Milliseconds(),
		TakenAt:          time.Now(),
	}
	if p := e.auc.CurrentPlayer(); p != nil {
		view := newPlayerView(p)
		snap.CurrentPlayer = &view
		snap.Category = e.auc.CurrentCategory()
	}
	for _, m := range e.ledger.Managers() {
		snap.Managers = append(snap.Managers, ManagerView{
			ID:        m.ID,
			Name:      m.Name,
			Initial:   m.InitialBalance,
			Spent:     m.Spent,
			Reserved:  m.TotalReserved(),
			Available: m.Available(),
			WonCount:  len(m.WonPlayers),
		})
	}
	return snap
}
