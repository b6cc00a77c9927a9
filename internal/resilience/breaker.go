package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrOpen is returned when the breaker rejects a call without attempting it
var ErrOpen = errors.New("circuit breaker open")

// State is the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// String returns the wire name for the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Config controls breaker thresholds and timing
type Config struct {
	// FailureThreshold is the failure count within the window that trips the breaker
	FailureThreshold int

	// ResetTimeout is how long the breaker stays open before allowing a trial
	ResetTimeout time.Duration

	// CallTimeout bounds every protected call regardless of state
	CallTimeout time.Duration

	// FailureWindow is the rolling window in which failures accumulate
	FailureWindow time.Duration

	// OnTransition is invoked after every state change, if set.
	// It runs under the breaker lock and must not call back into the breaker.
	OnTransition func(from, to State)
}

// DefaultConfig returns the standard breaker tuning
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		CallTimeout:      10 * time.Second,
		FailureWindow:    time.Minute,
	}
}

// Breaker is a mutex-protected circuit breaker. It is created once at
// startup and shared by every in-flight verification.
type Breaker struct {
	name string
	cfg  Config
	log  *zap.Logger

	mu           sync.Mutex
	state        State
	failures     int
	windowStart  time.Time
	openUntil    time.Time
	halfOpenBusy bool
}

// New creates a breaker in the closed state
func New(name string, cfg Config, log *zap.Logger) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	if cfg.FailureWindow <= 0 {
		cfg.FailureWindow = time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Breaker{
		name:  name,
		cfg:   cfg,
		log:   log,
		state: StateClosed,
	}
}

// Execute runs op under the breaker's protection and call timeout.
// It returns ErrOpen without invoking op when the breaker rejects the call;
// otherwise it returns op's error and records the outcome.
func (b *Breaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.allow(); err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, b.cfg.CallTimeout)
	defer cancel()

	if err := op(callCtx); err != nil {
		b.recordFailure()
		return err
	}

	b.recordSuccess()
	return nil
}

// State returns the current breaker state
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats is a point-in-time view of the breaker internals
type Stats struct {
	State     State     `json:"state"`
	Failures  int       `json:"failures"`
	OpenUntil time.Time `json:"open_until,omitempty"`
}

// Stats returns a snapshot for health reporting
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		State:     b.state,
		Failures:  b.failures,
		OpenUntil: b.openUntil,
	}
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()

	switch b.state {
	case StateClosed:
		return nil

	case StateOpen:
		if now.Before(b.openUntil) {
			return ErrOpen
		}
		// Cooldown elapsed, admit exactly one trial call
		b.setState(StateHalfOpen)
		b.halfOpenBusy = true
		return nil

	case StateHalfOpen:
		if b.halfOpenBusy {
			return ErrOpen
		}
		b.halfOpenBusy = true
		return nil

	default:
		return ErrOpen
	}
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.halfOpenBusy = false
		b.failures = 0
		b.windowStart = time.Time{}
		b.setState(StateClosed)

	case StateClosed:
		b.failures = 0
		b.windowStart = time.Time{}
	}
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()

	switch b.state {
	case StateHalfOpen:
		b.halfOpenBusy = false
		b.trip(now)

	case StateClosed:
		if b.windowStart.IsZero() || now.Sub(b.windowStart) > b.cfg.FailureWindow {
			// Window went stale, count from scratch
			b.failures = 0
			b.windowStart = now
		}
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.trip(now)
		}
	}
}

// trip opens the breaker; callers must hold the mutex
func (b *Breaker) trip(now time.Time) {
	b.failures = 0
	b.windowStart = time.Time{}
	b.openUntil = now.Add(b.cfg.ResetTimeout)
	b.setState(StateOpen)
}

// setState transitions and notifies; callers must hold the mutex
func (b *Breaker) setState(next State) {
	if b.state == next {
		return
	}
	prev := b.state
	b.state = next

	b.log.Info("circuit breaker state change",
		zap.String("breaker", b.name),
		zap.String("from", prev.String()),
		zap.String("to", next.String()),
	)

	if b.cfg.OnTransition != nil {
		b.cfg.OnTransition(prev, next)
	}
}
