// Package resilience wraps calls to the catalog's backing services (Redis,
// Postgres, Kafka) with a circuit breaker, bounded retry, and timeouts.
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Execute while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

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
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig controls when a breaker trips and how it recovers.
// OnStateChange, if set, runs after every transition outside the lock.
type BreakerConfig struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	HalfOpenMaxRequests int
	OnStateChange       func(name string, from, to State)
}

func (c *BreakerConfig) applyDefaults() {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = 30 * time.Second
	}
	if c.HalfOpenMaxRequests <= 0 {
		c.HalfOpenMaxRequests = 1
	}
}

// CircuitBreaker counts consecutive failures and opens once the threshold
// is reached. After ResetTimeout it lets a limited number of probes through.
type CircuitBreaker struct {
	name   string
	cfg    BreakerConfig
	logger *slog.Logger
	now    func() time.Time

	mu          sync.Mutex
	state       State
	failures    int
	openedAt    time.Time
	probesInUse int
}

func NewCircuitBreaker(name string, cfg BreakerConfig) *CircuitBreaker {
	cfg.applyDefaults()
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
		now:    time.Now,
		state:  StateClosed,
	}
}

// Name returns the name the breaker was created with.
func (cb *CircuitBreaker) Name() string { return cb.name }

// Execute runs fn when the breaker admits the call and records its outcome.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	var from, to State
	changed := false
	defer func() {
		cb.mu.Unlock()
		if changed {
			cb.notify(from, to)
		}
	}()

	switch cb.state {
	case StateOpen:
		wait := cb.cfg.ResetTimeout - cb.now().Sub(cb.openedAt)
		if wait > 0 {
			return fmt.Errorf("%w: %s (retry after %v)", ErrCircuitOpen, cb.name, wait)
		}
		from, to, changed = cb.state, StateHalfOpen, true
		cb.state = StateHalfOpen
		cb.probesInUse = 1
		return nil
	case StateHalfOpen:
		if cb.probesInUse >= cb.cfg.HalfOpenMaxRequests {
			return fmt.Errorf("%w: %s (probe in flight)", ErrCircuitOpen, cb.name)
		}
		cb.probesInUse++
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	from := cb.state
	if err == nil {
		cb.failures = 0
		if cb.state == StateHalfOpen {
			cb.state = StateClosed
			cb.probesInUse = 0
		}
	} else {
		cb.failures++
		switch {
		case cb.state == StateHalfOpen:
			cb.trip()
		case cb.state == StateClosed && cb.failures >= cb.cfg.FailureThreshold:
			cb.trip()
		}
	}
	to := cb.state
	cb.mu.Unlock()
	if from != to {
		cb.notify(from, to)
	}
}

// trip must be called with mu held.
func (cb *CircuitBreaker) trip() {
	cb.state = StateOpen
	cb.openedAt = cb.now()
	cb.probesInUse = 0
}

func (cb *CircuitBreaker) notify(from, to State) {
	switch to {
	case StateOpen:
		cb.logger.Warn("circuit opened", "from", from.String(), "threshold", cb.cfg.FailureThreshold)
	default:
		cb.logger.Info("circuit state changed", "from", from.String(), "to", to.String())
	}
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.name, from, to)
	}
}

// Reset closes the breaker and clears its failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	from := cb.state
	cb.state = StateClosed
	cb.failures = 0
	cb.probesInUse = 0
	cb.mu.Unlock()
	if from != StateClosed {
		cb.notify(from, StateClosed)
	}
}
