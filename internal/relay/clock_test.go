package relay

import (
	"sync"
	"testing"
	"time"
)

// fakeClock hands out tickers that fire only when Advance moves time past
// their next deadline.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
	created chan *fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		created: make(chan *fakeTicker, 64),
	}
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTicker{
		clock:  c,
		period: d,
		next:   c.now.Add(d),
		ch:     make(chan time.Time, 1),
	}
	c.tickers = append(c.tickers, t)
	c.created <- t
	return t
}

// Advance moves time forward by d and fires every running ticker whose
// deadline has passed. Like time.Ticker, ticks nobody has consumed are dropped.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
	for _, t := range c.tickers {
		if t.stopped {
			continue
		}
		for !t.next.After(c.now) {
			select {
			case t.ch <- t.next:
			default:
			}
			t.next = t.next.Add(t.period)
		}
	}
}

func (c *fakeClock) waitForTicker(t *testing.T) *fakeTicker {
	t.Helper()
	select {
	case tk := <-c.created:
		return tk
	case <-time.After(2 * time.Second):
		t.Fatal("no ticker was created")
		return nil
	}
}

type fakeTicker struct {
	clock   *fakeClock
	period  time.Duration
	next    time.Time
	ch      chan time.Time
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.stopped = true
}

func (t *fakeTicker) isStopped() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	return t.stopped
}
