// Package resilience guards calls to the external task registry. A registry
// outage must not take the dispatch loop down with it: calls should fail
// fast while the registry is struggling and resume on a schedule, not hammer
// a degraded API with every cycle.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen rejects a call while the breaker is cooling down after a
// run of registry failures.
var ErrCircuitOpen = errors.New("resilience: circuit open")

// Circuit positions as reported by State.
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half-open"
)

// Breaker is a three-state circuit breaker. Consecutive failures trip it
// from closed to open; after each cooldown window it admits a single probe
// call, closing again only when a probe succeeds. The zero value is not
// usable, construct with NewBreaker.
type Breaker struct {
	maxFailures int
	cooldown    time.Duration

	mu       sync.Mutex
	state    string
	failures int
	openedAt time.Time
	probing  bool

	now func() time.Time // for tests
}

// NewBreaker returns a closed breaker that opens after maxFailures
// consecutive errors and re-probes once per cooldown period.
func NewBreaker(maxFailures int, cooldown time.Duration) *Breaker {
	return &Breaker{
		maxFailures: maxFailures,
		cooldown:    cooldown,
		state:       StateClosed,
		now:         time.Now,
	}
}

// Execute runs fn unless the circuit is open inside its cooldown window.
// While half-open, only one probe runs at a time; concurrent callers are
// rejected until the probe settles.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.acquire(); err != nil {
		return err
	}
	err := fn()
	b.settle(err)
	return err
}

// State reports the circuit position for the health endpoint. An open
// breaker whose cooldown has elapsed reports half-open even before the
// next call arrives.
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		return StateHalfOpen
	}
	return b.state
}

func (b *Breaker) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return ErrCircuitOpen
		}
		b.state = StateHalfOpen
		b.probing = true
		return nil
	case StateHalfOpen:
		if b.probing {
			return ErrCircuitOpen
		}
		b.probing = true
		return nil
	default:
		return nil
	}
}

func (b *Breaker) settle(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	if err == nil {
		b.failures = 0
		b.state = StateClosed
		return
	}
	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.maxFailures {
		b.state = StateOpen
		b.openedAt = b.now()
		b.failures = 0
	}
}
