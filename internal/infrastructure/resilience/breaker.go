package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while a breaker is refusing calls.
var ErrCircuitOpen = errors.New("resilience: circuit open")

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

// Breaker is a per-key counting circuit breaker. After Threshold consecutive
// failures the circuit opens for Cooldown; the first call after the cooldown
// runs as a half-open probe whose outcome closes or re-opens the circuit.
type Breaker struct {
	Threshold int
	Cooldown  time.Duration

	mu    sync.Mutex
	units map[string]*breakerUnit
	now   func() time.Time
}

type breakerUnit struct {
	state    breakerState
	failures int
	openedAt time.Time
}

// NewBreaker creates a breaker with the given consecutive-failure threshold
// and open-state cooldown.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	return &Breaker{
		Threshold: threshold,
		Cooldown:  cooldown,
		units:     make(map[string]*breakerUnit),
		now:       time.Now,
	}
}

// Allow reports whether a call for key may proceed. A true result during the
// open→half-open transition admits exactly one probe.
func (b *Breaker) Allow(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	u := b.unit(key)
	switch u.state {
	case stateClosed:
		return true
	case stateOpen:
		if b.now().Sub(u.openedAt) >= b.Cooldown {
			u.state = stateHalfOpen
			return true
		}
		return false
	case stateHalfOpen:
		// A probe is already in flight.
		return false
	}
	return false
}

// Success records a successful call and closes the circuit.
func (b *Breaker) Success(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	u := b.unit(key)
	u.state = stateClosed
	u.failures = 0
}

// Failure records a failed call, opening the circuit when the threshold is
// reached or a half-open probe fails.
func (b *Breaker) Failure(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	u := b.unit(key)
	u.failures++
	if u.state == stateHalfOpen || u.failures >= b.Threshold {
		u.state = stateOpen
		u.openedAt = b.now()
		u.failures = 0
	}
}

func (b *Breaker) unit(key string) *breakerUnit {
	u, ok := b.units[key]
	if !ok {
		u = &breakerUnit{state: stateClosed}
		b.units[key] = u
	}
	return u
}
