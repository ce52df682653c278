// Copyright (c) 2018 Mortal
// released under the MIT license

package aioirc

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Keepalive watches one connection for idleness. After interval with no
// inbound traffic it sends a probe; if nothing at all arrives within the
// grace window the transport is declared dead and expire runs (once).
//
// Server-initiated probes are not handled here -- the Client answers those
// inline on the read path so they are never queued behind plugin dispatch.
type Keepalive struct {
	clock    clockwork.Clock
	interval time.Duration
	grace    time.Duration
	logger   *slog.Logger

	// probe writes the PING; expire tears the transport down, which makes
	// the read loop exit and drive exactly one reconnect.
	probe  func() error
	expire func()

	mu          sync.Mutex
	lastTraffic time.Time

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewKeepalive(interval, grace time.Duration, clock clockwork.Clock, logger *slog.Logger, probe func() error, expire func()) *Keepalive {
	return &Keepalive{
		clock:       clock,
		interval:    interval,
		grace:       grace,
		logger:      logger,
		probe:       probe,
		expire:      expire,
		lastTraffic: clock.Now(),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Touch records inbound traffic. Called by the read loop for every line.
func (ka *Keepalive) Touch() {
	ka.mu.Lock()
	ka.lastTraffic = ka.clock.Now()
	ka.mu.Unlock()
}

func (ka *Keepalive) last() time.Time {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	return ka.lastTraffic
}

// Start launches the watcher goroutine.
func (ka *Keepalive) Start() {
	go ka.run()
}

// Stop halts the watcher. Safe to call more than once.
func (ka *Keepalive) Stop() {
	ka.stopOnce.Do(func() { close(ka.stop) })
	<-ka.done
}

func (ka *Keepalive) run() {
	defer close(ka.done)

	for {
		wait := ka.interval - ka.clock.Since(ka.last())
		if wait > 0 {
			select {
			case <-ka.stop:
				return
			case <-ka.clock.After(wait):
			}
			continue
		}

		probedAt := ka.clock.Now()
		if err := ka.probe(); err != nil {
			// write failed: the transport is already dying and the read
			// loop will notice on its own
			ka.logger.Debug("keepalive probe failed", "error", err)
			return
		}

		select {
		case <-ka.stop:
			return
		case <-ka.clock.After(ka.grace):
		}

		if !ka.last().After(probedAt) {
			ka.logger.Warn("no response to keepalive probe, closing connection",
				"grace", ka.grace)
			ka.expire()
			return
		}
	}
}
