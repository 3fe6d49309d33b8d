package ai

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	// CircuitClosed lets calls through.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects calls until the cooldown elapses.
	CircuitOpen
	// CircuitHalfOpen lets a single probe through.
	CircuitHalfOpen
)

// String returns a string representation of the circuit state
func (cs CircuitState) String() string {
	switch cs {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Default breaker settings.
const (
	DefaultFailureThreshold = 5
	DefaultCooldown         = 30 * time.Second
)

// CircuitBreaker guards calls to one upstream (provider + operation). Only
// transport failures (connection, timeout) count toward opening; a malformed
// response means the upstream answered and keeps the circuit closed.
type CircuitBreaker struct {
	mu        sync.Mutex
	name      string
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	state       CircuitState
	consecutive int
	openedAt    time.Time
	probing     bool
}

// NewCircuitBreaker creates a breaker. Non-positive settings take defaults.
func NewCircuitBreaker(name string, threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &CircuitBreaker{name: name, threshold: threshold, cooldown: cooldown, now: time.Now}
}

// allow reports whether a call may proceed and moves an expired open circuit
// to half-open.
func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if cb.now().Sub(cb.openedAt) < cb.cooldown {
			return false
		}
		cb.state = CircuitHalfOpen
		cb.probing = true
		return true
	case CircuitHalfOpen:
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	}
	return false
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.probing = false

	if err == nil || !countsAsFailure(err) {
		if cb.state != CircuitClosed {
			slog.Info("circuit breaker closed", slog.String("upstream", cb.name))
		}
		cb.state = CircuitClosed
		cb.consecutive = 0
		return
	}

	cb.consecutive++
	if cb.state == CircuitHalfOpen || cb.consecutive >= cb.threshold {
		if cb.state != CircuitOpen {
			slog.Warn("circuit breaker opened",
				slog.String("upstream", cb.name),
				slog.Int("consecutive_failures", cb.consecutive))
		}
		cb.state = CircuitOpen
		cb.openedAt = cb.now()
	}
}

func countsAsFailure(err error) bool {
	return errors.Is(err, domain.ErrGatewayConnection) || errors.Is(err, domain.ErrGatewayTimeout)
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Execute runs fn unless the circuit is open, in which case it fails fast
// with a connection error.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allow() {
		return fmt.Errorf("%w: circuit open for %s", domain.ErrGatewayConnection, cb.name)
	}
	err := fn()
	cb.record(err)
	return err
}

// CircuitBreakers hands out one breaker per upstream name.
type CircuitBreakers struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	breakers  map[string]*CircuitBreaker
}

// NewCircuitBreakers creates a registry sharing the same settings.
func NewCircuitBreakers(threshold int, cooldown time.Duration) *CircuitBreakers {
	return &CircuitBreakers{threshold: threshold, cooldown: cooldown, breakers: map[string]*CircuitBreaker{}}
}

// For returns or creates the breaker for name.
func (r *CircuitBreakers) For(name string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := NewCircuitBreaker(name, r.threshold, r.cooldown)
	r.breakers[name] = b
	return b
}

// Open lists the upstreams whose circuit is currently open.
func (r *CircuitBreakers) Open() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for name, b := range r.breakers {
		if b.State() == CircuitOpen {
			out = append(out, name)
		}
	}
	return out
}
