package auction

import (
	"sync"
	"time"
)

// contestTimer is the single logical countdown for an auction's active
// player. Every arm/extend/freeze/cancel bumps the generation counter;
// expiry and tick callbacks carry the generation so the engine can drop
// stale ones after the timer has been re-armed.
//
// Scheduling rides on the monotonic clock inside time.Timer; remaining
// time is derived from the stored deadline.
type contestTimer struct {
	mu        sync.Mutex
	gen       uint64
	deadline  time.Time
	remaining time.Duration // meaningful while frozen
	frozen    bool
	running   bool
	timer     *time.Timer

	onExpire func(gen uint64)
	onTick   func(gen uint64, remaining time.Duration)

	tickEvery time.Duration
	stopTicks chan struct{}
}

func newContestTimer(onExpire func(uint64), onTick func(uint64, time.Duration)) *contestTimer {
	return &contestTimer{
		onExpire:  onExpire,
		onTick:    onTick,
		tickEvery: time.Second,
	}
}

// Arm starts a fresh countdown of d.
func (t *contestTimer) Arm(d time.Duration) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armLocked(d)
}

func (t *contestTimer) armLocked(d time.Duration) uint64 {
	t.gen++
	gen := t.gen
	t.stopLocked()
	t.deadline = time.Now().Add(d)
	t.frozen = false
	t.running = true
	t.timer = time.AfterFunc(d, func() {
		t.onExpire(gen)
	})
	t.stopTicks = make(chan struct{})
	go t.tickLoop(gen, t.stopTicks)
	return gen
}

// Extend sets remaining to max(remaining, d). No-op while frozen or idle.
func (t *contestTimer) Extend(d time.Duration) (uint64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running || t.frozen {
		return t.gen, false
	}
	if time.Until(t.deadline) >= d {
		return t.gen, false
	}
	return t.armLocked(d), true
}

// Freeze suspends the countdown and captures the remaining time.
func (t *contestTimer) Freeze() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running || t.frozen {
		return t.remaining
	}
	t.gen++
	t.remaining = time.Until(t.deadline)
	if t.remaining < 0 {
		t.remaining = 0
	}
	t.frozen = true
	t.stopLocked()
	return t.remaining
}

// Resume restarts the countdown with the frozen remainder.
func (t *contestTimer) Resume() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.frozen {
		return t.gen
	}
	return t.armLocked(t.remaining)
}

// Prime loads a frozen remainder without starting the countdown. Used
// on cold start so a later Resume arms a fresh contest window.
func (t *contestTimer) Prime(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	t.remaining = d
	t.frozen = true
	t.running = false
	t.stopLocked()
}

// Cancel stops the countdown entirely.
func (t *contestTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	t.frozen = false
	t.running = false
	t.stopLocked()
}

// Remaining returns the live countdown value.
func (t *contestTimer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.frozen {
		return t.remaining
	}
	if !t.running {
		return 0
	}
	r := time.Until(t.deadline)
	if r < 0 {
		r = 0
	}
	return r
}

// Generation returns the current tick generation.
func (t *contestTimer) Generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen
}

func (t *contestTimer) stopLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.stopTicks != nil {
		close(t.stopTicks)
		t.stopTicks = nil
	}
}

func (t *contestTimer) tickLoop(gen uint64, stop chan struct{}) {
	if t.onTick == nil {
		return
	}
	ticker := time.NewTicker(t.tickEvery)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.mu.Lock()
			if t.gen != gen || !t.running || t.frozen {
				t.mu.Unlock()
				return
			}
			remaining := time.Until(t.deadline)
			t.mu.Unlock()
			if remaining < 0 {
				remaining = 0
			}
			t.onTick(gen, remaining)
		}
	}
}
