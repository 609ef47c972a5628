package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	}
	return "unknown"
}

var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker guards calls to a remote dependency. The wrapped call runs without
// holding the lock; while half open only a single trial call is let through.
type CircuitBreaker struct {
	name            string
	maxFailures     int
	resetTimeout    time.Duration
	failureCount    int
	lastFailureTime time.Time
	state           State
	probing         bool
	generation      uint64
	onStateChange   func(name string, from, to State)
	now             func() time.Time
	mu              sync.Mutex
}

type Option func(*CircuitBreaker)

// WithStateChange registers a hook invoked after every transition.
func WithStateChange(fn func(name string, from, to State)) Option {
	return func(cb *CircuitBreaker) {
		cb.onStateChange = fn
	}
}

func NewCircuitBreaker(name string, maxFailures int, resetTimeout time.Duration, opts ...Option) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:         name,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        StateClosed,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	generation, err := cb.allow()
	if err != nil {
		return err
	}

	err = fn(ctx)
	cb.record(generation, err)
	return err
}

// allow returns the generation the call was admitted in.
func (cb *CircuitBreaker) allow() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.lastFailureTime) <= cb.resetTimeout {
			return 0, ErrCircuitOpen
		}
		cb.setState(StateHalfOpen)
		cb.probing = true
	case StateHalfOpen:
		if cb.probing {
			return 0, ErrCircuitOpen
		}
		cb.probing = true
	}
	return cb.generation, nil
}

func (cb *CircuitBreaker) record(generation uint64, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	// Results of calls admitted before the last transition do not count.
	if generation != cb.generation {
		return
	}

	if cb.state == StateHalfOpen {
		cb.probing = false
		if err != nil {
			cb.lastFailureTime = cb.now()
			cb.setState(StateOpen)
		} else {
			cb.setState(StateClosed)
		}
		return
	}

	if err != nil {
		cb.failureCount++
		cb.lastFailureTime = cb.now()
		if cb.failureCount >= cb.maxFailures {
			cb.setState(StateOpen)
		}
		return
	}
	cb.failureCount = 0
}

// setState must be called with mu held.
func (cb *CircuitBreaker) setState(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.generation++
	cb.failureCount = 0
	if cb.onStateChange != nil {
		cb.onStateChange(cb.name, from, to)
	}
}

func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
