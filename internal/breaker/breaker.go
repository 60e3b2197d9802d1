// Package breaker isolates a chronically failing resource behind a
// CLOSED/OPEN/HALF_OPEN circuit breaker. One Breaker guards one resource,
// typically an external generator stage.
package breaker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/contentsmith/pipewright/internal/fault"
)

// State is the breaker's position.
type State int

const (
	// Closed passes calls through.
	Closed State = iota
	// Open rejects calls immediately until the recovery timeout elapses.
	Open
	// HalfOpen allows exactly one probe call.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Breaker is a per-resource failure-isolation state machine. It is safe for
// concurrent use; all state transitions happen under an internal lock.
type Breaker struct {
	name             string
	failureThreshold int
	recoveryTimeout  time.Duration
	logger           *slog.Logger

	// now is injectable for tests.
	now func() time.Time

	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	lastFailure         time.Time
	probing             bool
}

// Option customises a Breaker.
type Option func(*Breaker)

// WithClock replaces the breaker's time source.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// WithLogger attaches a logger for state-transition events.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Breaker) { b.logger = logger }
}

// New returns a closed breaker that opens after failureThreshold consecutive
// failures and probes again once recoveryTimeout has elapsed.
func New(name string, failureThreshold int, recoveryTimeout time.Duration, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State returns the breaker's current position, promoting OPEN to HALF_OPEN
// when the recovery timeout has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

func (b *Breaker) stateLocked() State {
	if b.state == Open && b.now().Sub(b.lastFailure) >= b.recoveryTimeout {
		b.state = HalfOpen
		if b.logger != nil {
			b.logger.Info("circuit entering half-open state", "breaker", b.name)
		}
	}
	return b.state
}

// allow decides whether a call may proceed. In HALF_OPEN only one probe may
// be in flight at a time; further callers are rejected until it resolves.
func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.stateLocked() {
	case Open:
		return fault.CircuitOpenf("circuit breaker %s is open", b.name)
	case HalfOpen:
		if b.probing {
			return fault.CircuitOpenf("circuit breaker %s is half-open with a probe in flight", b.name)
		}
		b.probing = true
	}
	return nil
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFailures = 0
	b.probing = false
	if b.state == HalfOpen {
		b.state = Closed
		if b.logger != nil {
			b.logger.Info("circuit recovered to closed state", "breaker", b.name)
		}
	}
}

func (b *Breaker) onFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFailures++
	b.lastFailure = b.now()
	b.probing = false
	if b.state == HalfOpen {
		b.state = Open
		if b.logger != nil {
			b.logger.Warn("probe failed, circuit re-opened", "breaker", b.name)
		}
		return
	}
	if b.consecutiveFailures >= b.failureThreshold && b.state == Closed {
		b.state = Open
		if b.logger != nil {
			b.logger.Warn("circuit opened",
				"breaker", b.name,
				"consecutive_failures", b.consecutiveFailures)
		}
	}
}

// Call runs op through the breaker. While open it fails immediately with a
// circuit-open fault without invoking op; otherwise op's outcome drives the
// breaker's state.
func Call[T any](b *Breaker, ctx context.Context, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.allow(); err != nil {
		return zero, err
	}

	out, err := op(ctx)
	if err != nil {
		b.onFailure()
		return zero, err
	}
	b.onSuccess()
	return out, nil
}
