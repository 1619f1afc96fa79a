package service

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

// Countdown 周期性调用 tick，tick 返回 false 或调用 Stop 后结束。
// Stop 可以在 tick 回调内部调用，不会等待协程退出。
type Countdown struct {
	clock    Clock
	interval time.Duration
	ticker   Ticker
	tick     func() bool
	done     chan struct{}
	stopOnce sync.Once
}

func NewCountdown(clock Clock, interval time.Duration) *Countdown {
	return &Countdown{
		clock:    clock,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start 只能调用一次
func (c *Countdown) Start(tick func() bool) {
	c.tick = tick
	c.ticker = c.clock.NewTicker(c.interval)
	go c.run()
}

func (c *Countdown) run() {
	defer c.ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-c.ticker.C():
			select {
			case <-c.done:
				return
			default:
			}
			if !c.tick() {
				c.Stop()
				return
			}
		}
	}
}

func (c *Countdown) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

// Stopped 用于测试和清理判断
func (c *Countdown) Stopped() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
