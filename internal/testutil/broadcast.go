package testutil

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// RecordedEvent is one captured broadcast emission.
type RecordedEvent struct {
	AuctionID    uuid.UUID
	SubscriberID string // empty for fan-out
	Type         string
	Payload      interface{}
}

// RecordingBroadcaster captures events in emission order.
type RecordingBroadcaster struct {
	mu     sync.Mutex
	events []RecordedEvent
}

func NewRecordingBroadcaster() *RecordingBroadcaster {
	return &RecordingBroadcaster{}
}

func (b *RecordingBroadcaster) Publish(auctionID uuid.UUID, eventType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, RecordedEvent{AuctionID: auctionID, Type: eventType, Payload: payload})
}

func (b *RecordingBroadcaster) PublishTo(auctionID uuid.UUID, subscriberID, eventType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, RecordedEvent{AuctionID: auctionID, SubscriberID: subscriberID, Type: eventType, Payload: payload})
}

// Events returns a copy of everything captured so far.
func (b *RecordingBroadcaster) Events() []RecordedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]RecordedEvent, len(b.events))
	copy(out, b.events)
	return out
}

// Types returns the captured event types in order.
func (b *RecordingBroadcaster) Types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	for i, e := range b.events {
		out[i] = e.Type
	}
	return out
}

// CountOf reports how many events of the given type were captured.
func (b *RecordingBroadcaster) CountOf(eventType string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

// LastOf returns the most recent event of the given type.
func (b *RecordingBroadcaster) LastOf(eventType string) (RecordedEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.events) - 1; i >= 0; i-- {
		if b.events[i].Type == eventType {
			return b.events[i], true
		}
	}
	return RecordedEvent{}, false
}

// StaticPresence reports a fixed connected-manager count.
type StaticPresence struct {
	N int
}

func (p *StaticPresence) ActiveManagerCount(_ context.Context, _ uuid.UUID) (int, error) {
	return p.N, nil
}
