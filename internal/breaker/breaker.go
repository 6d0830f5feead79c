package breaker

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"venue-pulse/internal/observability/metrics"
)

// ErrOpen is returned without calling the operation while the breaker is open.
var ErrOpen = errors.New("breaker: open")

// State is the breaker state.
type State int

const (
	Closed State = iota
	HalfOpen
	Open
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case HalfOpen:
		return "half_open"
	case Open:
		return "open"
	default:
		return "unknown"
	}
}

// Config holds the breaker tunables.
type Config struct {
	MaxFailures  int
	ResetTimeout time.Duration
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithLogger sets the breaker logger.
func WithLogger(logger *log.Logger) Option {
	return func(b *Breaker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithNow overrides the clock.
func WithNow(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

// Breaker fails fast after MaxFailures consecutive failures and lets a single
// trial call through once ResetTimeout has passed.
type Breaker struct {
	name   string
	cfg    Config
	logger *log.Logger
	now    func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// New constructs a closed breaker.
func New(name string, cfg Config, opts ...Option) *Breaker {
	if cfg.MaxFailures < 1 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	b := &Breaker{
		name:   name,
		cfg:    cfg,
		logger: log.New(io.Discard, "", 0),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	metrics.SetBreakerState(name, int(Closed))
	return b
}

// Execute runs op unless the breaker is open. Context cancellation is not
// counted as an upstream failure.
func (b *Breaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := op(ctx)
	if err != nil && ctx.Err() != nil {
		b.release()
		return err
	}
	b.record(err)
	return err
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Open:
		if b.now().Sub(b.openedAt) < b.cfg.ResetTimeout {
			return ErrOpen
		}
		b.setState(HalfOpen)
		b.probing = true
		return nil
	case HalfOpen:
		if b.probing {
			return ErrOpen
		}
		b.probing = true
		return nil
	default:
		return nil
	}
}

func (b *Breaker) release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
	if err == nil {
		b.failures = 0
		if b.state != Closed {
			b.setState(Closed)
		}
		return
	}
	b.failures++
	if b.state == HalfOpen || b.failures >= b.cfg.MaxFailures {
		b.openedAt = b.now()
		if b.state != Open {
			b.setState(Open)
		}
	}
}

func (b *Breaker) setState(state State) {
	b.logger.Printf("breaker state change: name=%s from=%s to=%s failures=%d", b.name, b.state, state, b.failures)
	b.state = state
	metrics.SetBreakerState(b.name, int(state))
}
