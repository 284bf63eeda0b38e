package auction

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type expiryRecorder struct {
	mu   sync.Mutex
	gens []uint64
}

func (r *expiryRecorder) record(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gens = append(r.gens, gen)
}

func (r *expiryRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.gens)
}

func TestTimerExpiresWithArmedGeneration(t *testing.T) {
	rec := &expiryRecorder{}
	timer := newContestTimer(rec.record, nil)
	defer timer.Cancel()

	gen := timer.Arm(30 * time.Millisecond)

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, gen, rec.gens[0])
}

func TestTimerRearmInvalidatesOldGeneration(t *testing.T) {
	rec := &expiryRecorder{}
	timer := newContestTimer(rec.record, nil)
	defer timer.Cancel()

	old := timer.Arm(30 * time.Millisecond)
	fresh := timer.Arm(40 * time.Millisecond)
	assert.Greater(t, fresh, old)

	require.Eventually(t, func() bool { return rec.count() >= 1 }, time.Second, 5*time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []uint64{fresh}, rec.gens)
}

func TestTimerExtendTakesMax(t *testing.T) {
	timer := newContestTimer(func(uint64) {}, nil)
	defer timer.Cancel()

	timer.Arm(10 * time.Second)

	// Shorter extension is a no-op: remaining already exceeds it.
	_, extended := timer.Extend(5 * time.Second)
	assert.False(t, extended)
	assert.InDelta(t, 10*time.Second, timer.Remaining(), float64(200*time.Millisecond))

	_, extended = timer.Extend(20 * time.Second)
	assert.True(t, extended)
	assert.InDelta(t, 20*time.Second, timer.Remaining(), float64(200*time.Millisecond))
}

func TestTimerFreezeResume(t *testing.T) {
	rec := &expiryRecorder{}
	timer := newContestTimer(rec.record, nil)
	defer timer.Cancel()

	timer.Arm(10 * time.Second)
	remaining := timer.Freeze()
	assert.InDelta(t, 10*time.Second, remaining, float64(200*time.Millisecond))

	// Frozen: remaining holds still and extends are refused.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, remaining, timer.Remaining())
	_, extended := timer.Extend(time.Hour)
	assert.False(t, extended)

	timer.Resume()
	assert.InDelta(t, remaining, timer.Remaining(), float64(200*time.Millisecond))
	assert.Zero(t, rec.count())
}

func TestTimerCancelSuppressesExpiry(t *testing.T) {
	rec := &expiryRecorder{}
	timer := newContestTimer(rec.record, nil)

	timer.Arm(20 * time.Millisecond)
	timer.Cancel()

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, rec.count())
	assert.Equal(t, time.Duration(0), timer.Remaining())
}

func TestTimerPrime(t *testing.T) {
	rec := &expiryRecorder{}
	timer := newContestTimer(rec.record, nil)
	defer timer.Cancel()

	timer.Prime(7 * time.Second)
	assert.Equal(t, 7*time.Second, timer.Remaining())
	assert.Zero(t, rec.count())

	// Resume arms the primed remainder.
	timer.Resume()
	assert.InDelta(t, 7*time.Second, timer.Remaining(), float64(200*time.Millisecond))
}

func TestTimerTicks(t *testing.T) {
	var mu sync.Mutex
	var ticks []time.Duration
	timer := newContestTimer(func(uint64) {}, func(_ uint64, remaining time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		ticks = append(ticks, remaining)
	})
	defer timer.Cancel()
	timer.tickEvery = 10 * time.Millisecond

	timer.Arm(5 * time.Second)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(ticks) >= 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, r := range ticks {
		assert.LessOrEqual(t, r, 5*time.Second)
		assert.Greater(t, r, 4*time.Second)
	}
}
