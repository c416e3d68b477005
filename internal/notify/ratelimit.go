// Package notify implements C9, the typed notification dispatcher, and the
// coalescing rate limiter it shares with the resilient weather service.
package notify

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// rateLimitWindow is the dispatcher's minimum spacing between coalesced
// emissions in the "state_change" category. The weather service gates its
// state-change family on its own 15-minute constant of the same value.
const rateLimitWindow = 15 * time.Minute

// CoalescingGate wraps a token-bucket rate.Limiter with "remember the
// latest" semantics: rate.Limiter on its own drops an event once the bucket
// is empty, but §4.3/§4.9 require that when the window reopens, the most
// recently observed value is what gets emitted, not the first one that was
// dropped. Every Observe call updates a pending value under a mutex; a
// single timer, armed by the first Observe call that can't fire
// immediately, flushes the pending value once the window reopens.
type CoalescingGate struct {
	mu         sync.Mutex
	limiter    *rate.Limiter
	pending    interface{}
	hasPending bool
	timer      *time.Timer
	emit       func(interface{})
}

// NewCoalescingGate returns a gate that allows at most one emission per
// `window` and coalesces anything observed in between, calling emit with the
// latest observed value when the window opens.
func NewCoalescingGate(window time.Duration, emit func(interface{})) *CoalescingGate {
	return &CoalescingGate{
		limiter: rate.NewLimiter(rate.Every(window), 1),
		emit:    emit,
	}
}

// Observe records a new value. If the limiter currently allows an emission
// and no flush is already scheduled, it fires immediately; otherwise the
// value becomes "pending" for the next scheduled (or newly scheduled) flush.
func (g *CoalescingGate) Observe(v interface{}) {
	g.mu.Lock()

	if g.timer != nil {
		g.pending = v
		g.hasPending = true
		g.mu.Unlock()
		return
	}

	if g.limiter.Allow() {
		g.mu.Unlock()
		g.emit(v)
		return
	}

	g.pending = v
	g.hasPending = true
	delay := g.limiter.Reserve().Delay()
	g.timer = time.AfterFunc(delay, g.flush)
	g.mu.Unlock()
}

func (g *CoalescingGate) flush() {
	g.mu.Lock()
	g.timer = nil
	if !g.hasPending {
		g.mu.Unlock()
		return
	}
	v := g.pending
	g.hasPending = false
	g.mu.Unlock()

	g.emit(v)
}

// Stop cancels any pending flush timer.
func (g *CoalescingGate) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}
