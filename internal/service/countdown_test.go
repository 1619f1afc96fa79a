package service

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCountdownTicksUntilFalse(t *testing.T) {
	clock := newFakeClock()
	cd := NewCountdown(clock, time.Second)

	var calls int32
	cd.Start(func() bool {
		return atomic.AddInt32(&calls, 1) < 3
	})
	ticker := clock.lastTicker()

	for i := 0; i < 3; i++ {
		ticker.ch <- clock.Now()
		want := int32(i + 1)
		assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == want }, time.Second, time.Millisecond)
	}

	assert.Eventually(t, cd.Stopped, time.Second, time.Millisecond)
	assert.Eventually(t, ticker.isStopped, time.Second, time.Millisecond)
}

func TestCountdownStopPreventsFurtherTicks(t *testing.T) {
	clock := newFakeClock()
	cd := NewCountdown(clock, time.Second)

	var calls int32
	cd.Start(func() bool {
		atomic.AddInt32(&calls, 1)
		return true
	})
	ticker := clock.lastTicker()

	cd.Stop()
	cd.Stop()
	assert.True(t, cd.Stopped())
	assert.Eventually(t, ticker.isStopped, time.Second, time.Millisecond)

	select {
	case ticker.ch <- clock.Now():
	default:
	}
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestCountdownStopFromInsideTick(t *testing.T) {
	clock := newFakeClock()
	cd := NewCountdown(clock, time.Second)

	var calls int32
	cd.Start(func() bool {
		atomic.AddInt32(&calls, 1)
		cd.Stop()
		return true
	})

	clock.lastTicker().ch <- clock.Now()
	assert.Eventually(t, cd.Stopped, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
