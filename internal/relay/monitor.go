package relay

import (
	"sync"
	"time"
)

// Clock creates tickers. Production code uses the system clock; tests
// substitute a fake to drive pings deterministically.
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

// Ticker is the part of *time.Ticker the monitor needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// SystemClock is the Clock backed by package time.
type SystemClock struct{}

// NewTicker implements Clock.
func (SystemClock) NewTicker(d time.Duration) Ticker {
	return systemTicker{time.NewTicker(d)}
}

type systemTicker struct{ t *time.Ticker }

func (t systemTicker) C() <-chan time.Time { return t.t.C }
func (t systemTicker) Stop()               { t.t.Stop() }

// Monitor sends a keepalive probe at a fixed interval until stopped.
// Probe errors are reported to onError and do not stop the monitor; a dead
// socket is detected by the connection's read loop.
type Monitor struct {
	ticker  Ticker
	probe   func() error
	onError func(error)

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// StartMonitor starts a monitor calling probe every interval.
func StartMonitor(clock Clock, interval time.Duration, probe func() error, onError func(error)) *Monitor {
	if clock == nil {
		clock = SystemClock{}
	}
	m := &Monitor{
		ticker:  clock.NewTicker(interval),
		probe:   probe,
		onError: onError,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *Monitor) run() {
	defer close(m.done)
	for {
		select {
		case <-m.stop:
			return
		case <-m.ticker.C():
			// A tick and a stop can be ready together; stop wins.
			select {
			case <-m.stop:
				return
			default:
			}
			if err := m.probe(); err != nil && m.onError != nil {
				m.onError(err)
			}
		}
	}
}

// Stop cancels the monitor and waits for its goroutine to exit, so no probe
// runs after Stop returns. Only the first call does anything; it reports
// whether this call was the one that stopped the monitor.
func (m *Monitor) Stop() bool {
	if m == nil {
		return false
	}
	stopped := false
	m.stopOnce.Do(func() {
		m.ticker.Stop()
		close(m.stop)
		stopped = true
	})
	<-m.done
	return stopped
}
