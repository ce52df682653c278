// Copyright (c) 2018 Mortal
// released under the MIT license

package aioirc

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Outbound is one plugin-submitted request to send a line to the server.
type Outbound struct {
	// Target is the channel for a chat message; unused when Raw is set.
	Target string
	// Text is the message body, or the whole line when Raw is set.
	Text string
	// Raw sends Text verbatim instead of as a PRIVMSG.
	Raw bool
	// Ephemeral commands are connection-scoped: if the connection is down
	// when they reach the head of the queue they are dropped, not held.
	Ephemeral bool
}

// OutboundQueue buffers commands plugins want sent, preserving submission
// order. Delivery is throttled by a sliding-window rate limit and gated on
// the connection being registered; only the rate limiter ever delays
// delivery, never reorders it.
//
// Producers are the plugins (many); the single consumer is the drain
// goroutine, which hands each command to the Client for encode+send.
type OutboundQueue struct {
	logger *slog.Logger
	clock  clockwork.Clock

	items   chan Outbound
	limiter *slidingWindow

	mu      sync.Mutex
	ready   bool
	readyCh chan struct{}

	quit chan struct{}
	done chan struct{}
}

// NewOutboundQueue creates a queue holding at most size commands, sending
// at most limit commands per rolling window.
func NewOutboundQueue(size, limit int, window time.Duration, clock clockwork.Clock, logger *slog.Logger) *OutboundQueue {
	return &OutboundQueue{
		logger:  logger,
		clock:   clock,
		items:   make(chan Outbound, size),
		limiter: &slidingWindow{limit: limit, window: window},
		readyCh: make(chan struct{}),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Enqueue appends a command without blocking. When the queue is at
// capacity it fails with ErrQueueFull so the plugin can decide to retry
// or drop; nothing is ever discarded silently.
func (q *OutboundQueue) Enqueue(cmd Outbound) error {
	select {
	case q.items <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

// Len reports how many commands are waiting.
func (q *OutboundQueue) Len() int {
	return len(q.items)
}

// SetReady opens or closes the delivery gate. The Client flips it on
// registration success and on disconnect.
func (q *OutboundQueue) SetReady(ready bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if ready == q.ready {
		return
	}
	q.ready = ready
	if ready {
		close(q.readyCh)
	} else {
		q.readyCh = make(chan struct{})
	}
}

func (q *OutboundQueue) readyGate() (bool, <-chan struct{}) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ready, q.readyCh
}

// Start launches the drain goroutine. send is the Client's encode+write
// path.
func (q *OutboundQueue) Start(send func(Outbound) error) {
	go q.drain(send)
}

// Close stops draining. Undelivered commands are dropped with a warning;
// delivery is best-effort, not durable.
func (q *OutboundQueue) Close() {
	close(q.quit)
	<-q.done
}

func (q *OutboundQueue) drain(send func(Outbound) error) {
	defer close(q.done)
	defer func() {
		if dropped := len(q.items); dropped > 0 {
			q.logger.Warn("dropping undelivered outbound commands", "count", dropped)
		}
	}()

	for {
		var cmd Outbound
		select {
		case <-q.quit:
			return
		case cmd = <-q.items:
		}

		if !q.awaitReady(&cmd) {
			continue
		}

		if delay := q.limiter.reserve(q.clock.Now()); delay > 0 {
			select {
			case <-q.quit:
				return
			case <-q.clock.After(delay):
			}
		}

		if err := send(cmd); err != nil {
			q.logger.Warn("outbound send failed", "target", cmd.Target, "error", err)
		}
	}
}

// awaitReady blocks until the gate opens. Ephemeral commands are dropped
// instead of held; a false return means the command should be skipped.
// Returns false as well on shutdown (the deferred drop warning counts
// whatever is left in the channel, not the command in hand).
func (q *OutboundQueue) awaitReady(cmd *Outbound) bool {
	for {
		ready, gate := q.readyGate()
		if ready {
			return true
		}
		if cmd.Ephemeral {
			q.logger.Debug("dropping ephemeral command while disconnected", "target", cmd.Target)
			return false
		}
		select {
		case <-q.quit:
			q.logger.Warn("dropping undelivered outbound command", "target", cmd.Target)
			return false
		case <-gate:
		}
	}
}

// slidingWindow admits at most limit events per rolling window. reserve
// returns how long the caller must wait before sending; the reservation
// is recorded immediately so concurrent windows stay honest.
type slidingWindow struct {
	limit  int
	window time.Duration
	sent   []time.Time
}

func (w *slidingWindow) reserve(now time.Time) time.Duration {
	cutoff := now.Add(-w.window)
	keep := 0
	for keep < len(w.sent) && !w.sent[keep].After(cutoff) {
		keep++
	}
	w.sent = w.sent[keep:]

	if len(w.sent) < w.limit {
		w.sent = append(w.sent, now)
		return 0
	}

	delay := w.sent[0].Add(w.window).Sub(now)
	w.sent = append(w.sent[1:], now.Add(delay))
	return delay
}
