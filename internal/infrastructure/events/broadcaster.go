package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/draftroom/squad-auction-backend/internal/metrics"
)

// Envelope is the wire frame for every broadcast event. seq increases
// monotonically per auction and matches engine emission order.
type Envelope struct {
	Type      string      `json:"type"`
	AuctionID uuid.UUID   `json:"auction_id"`
	Seq       uint64      `json:"seq"`
	Payload   interface{} `json:"payload"`
	ServerTs  time.Time   `json:"server_ts"`
}

// Broadcaster fans engine events out to per-auction subscriber sets.
// Publish is called from the engine's serialized command flow, so events
// for one auction arrive here already totally ordered; the broadcaster's
// job is to never reorder them and to never let a slow subscriber stall
// the engine. A subscriber whose buffer is full is disconnected.
type Broadcaster struct {
	logger *zap.Logger

	bufferSize int

	mu       sync.RWMutex
	auctions map[uuid.UUID]*auctionHub
}

type auctionHub struct {
	mu          sync.Mutex
	seq         uint64
	subscribers map[string]*Subscription
	// snapshot returns the current resync state for late subscribers.
	snapshot func() interface{}
}

// Subscription is one subscriber's ordered event feed. C is closed when
// the subscriber is dropped or unsubscribed.
type Subscription struct {
	ID        string
	AuctionID uuid.UUID
	C         chan Envelope

	closed bool
}

const defaultBufferSize = 256

func NewBroadcaster(logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		logger:     logger,
		bufferSize: defaultBufferSize,
		auctions:   make(map[uuid.UUID]*auctionHub),
	}
}

func (b *Broadcaster) hub(auctionID uuid.UUID) *auctionHub {
	b.mu.RLock()
	h, ok := b.auctions[auctionID]
	b.mu.RUnlock()
	if ok {
		return h
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if h, ok = b.auctions[auctionID]; ok {
		return h
	}
	h = &auctionHub{subscribers: make(map[string]*Subscription)}
	b.auctions[auctionID] = h
	return h
}

// SetSnapshotProvider installs the resync source for late subscribers.
func (b *Broadcaster) SetSnapshotProvider(auctionID uuid.UUID, provider func() interface{}) {
	h := b.hub(auctionID)
	h.mu.Lock()
	h.snapshot = provider
	h.mu.Unlock()
}

// Subscribe registers a subscriber. With resync enabled a snapshot
// envelope is queued, stamped with the seq at registration; the
// snapshot state itself may already include later events, which the
// live tail then re-describes.
func (b *Broadcaster) Subscribe(auctionID uuid.UUID, subscriberID string, resync bool) *Subscription {
	h := b.hub(auctionID)

	sub := &Subscription{
		ID:        subscriberID,
		AuctionID: auctionID,
		C:         make(chan Envelope, b.bufferSize),
	}

	h.mu.Lock()
	if prior, ok := h.subscribers[subscriberID]; ok {
		prior.closeLocked()
	}
	h.subscribers[subscriberID] = sub
	seqAtJoin := h.seq
	provider := h.snapshot
	h.mu.Unlock()

	// The provider may round-trip through the engine, so it must run
	// outside the hub lock or a concurrent Publish deadlocks.
	if resync && provider != nil {
		if state := provider(); state != nil {
			select {
			case sub.C <- Envelope{
				Type:      "snapshot",
				AuctionID: auctionID,
				Seq:       seqAtJoin,
				Payload:   state,
				ServerTs:  time.Now(),
			}:
			default:
			}
		}
	}

	metrics.BroadcastSubscribers.Inc()
	return sub
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(auctionID uuid.UUID, subscriberID string) {
	h := b.hub(auctionID)
	h.mu.Lock()
	if sub, ok := h.subscribers[subscriberID]; ok {
		delete(h.subscribers, subscriberID)
		sub.closeLocked()
		metrics.BroadcastSubscribers.Dec()
	}
	h.mu.Unlock()
}

// Publish fans the event out to every subscriber of the auction.
func (b *Broadcaster) Publish(auctionID uuid.UUID, eventType string, payload interface{}) {
	h := b.hub(auctionID)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	env := Envelope{
		Type:      eventType,
		AuctionID: auctionID,
		Seq:       h.seq,
		Payload:   payload,
		ServerTs:  time.Now(),
	}

	for id, sub := range h.subscribers {
		select {
		case sub.C <- env:
		default:
			// Slow subscriber: drop it rather than stall the engine.
			delete(h.subscribers, id)
			sub.closeLocked()
			metrics.BroadcastSubscribers.Dec()
			metrics.BroadcastDropped.Inc()
			b.logger.Warn("dropped slow broadcast subscriber",
				zap.String("auction_id", auctionID.String()),
				zap.String("subscriber_id", id),
				zap.String("event", eventType))
		}
	}
}

// PublishTo delivers point-to-point (bidRejected goes to the submitter
// only). The envelope still consumes a seq so ordering against the live
// feed stays unambiguous; other subscribers simply observe a gap.
func (b *Broadcaster) PublishTo(auctionID uuid.UUID, subscriberID string, eventType string, payload interface{}) {
	h := b.hub(auctionID)

	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.subscribers[subscriberID]
	if !ok {
		return
	}

	h.seq++
	env := Envelope{
		Type:      eventType,
		AuctionID: auctionID,
		Seq:       h.seq,
		Payload:   payload,
		ServerTs:  time.Now(),
	}

	select {
	case sub.C <- env:
	default:
		delete(h.subscribers, subscriberID)
		sub.closeLocked()
		metrics.BroadcastSubscribers.Dec()
		metrics.BroadcastDropped.Inc()
	}
}

func (s *Subscription) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.C)
}
