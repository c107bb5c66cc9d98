package utils

import (
	"errors"
	"sync"
	"time"
)

// ErrBreakerOpen is returned when the circuit is open and calls are shed.
var ErrBreakerOpen = errors.New("circuit breaker is open")

type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerHalfOpen
	BreakerOpen
)

// CircuitBreaker sheds calls to a flaky downstream once too many recent
// attempts have failed. Used around notification publishes so a dead
// provider cannot stall a resolution pass.
type CircuitBreaker struct {
	name        string
	maxFailures uint32
	cooldown    time.Duration
	halfOpenMax uint32

	mutex    sync.Mutex
	state    BreakerState
	failures uint32
	probes   uint32
	openedAt time.Time
}

func NewCircuitBreaker(name string, maxFailures uint32, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		name:        name,
		maxFailures: maxFailures,
		cooldown:    cooldown,
		halfOpenMax: 1,
		state:       BreakerClosed,
	}
}

// Execute runs fn unless the breaker is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.allow(); err != nil {
		return err
	}

	err := fn()
	cb.record(err == nil)
	return err
}

// State returns the current breaker state, transitioning open to half-open
// once the cooldown has elapsed.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.currentState(time.Now())
}

func (cb *CircuitBreaker) allow() error {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.currentState(time.Now()) {
	case BreakerOpen:
		return ErrBreakerOpen
	case BreakerHalfOpen:
		if cb.probes >= cb.halfOpenMax {
			return ErrBreakerOpen
		}
		cb.probes++
	}
	return nil
}

func (cb *CircuitBreaker) record(success bool) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	state := cb.currentState(time.Now())

	if success {
		cb.failures = 0
		cb.probes = 0
		cb.state = BreakerClosed
		return
	}

	cb.failures++
	if state == BreakerHalfOpen || cb.failures >= cb.maxFailures {
		cb.state = BreakerOpen
		cb.openedAt = time.Now()
		cb.probes = 0
	}
}

func (cb *CircuitBreaker) currentState(now time.Time) BreakerState {
	if cb.state == BreakerOpen && now.Sub(cb.openedAt) >= cb.cooldown {
		cb.state = BreakerHalfOpen
		cb.probes = 0
	}
	return cb.state
}
