package usecases

import (
	"log/slog"
	"math/rand/v2"
	"time"
)

type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half_open"
)

const (
	DefaultGuardBase       = 200 * time.Millisecond
	DefaultGuardMaxBackoff = 6000 * time.Millisecond
)

type TransportGuardState struct {
	NextAllowedAt       time.Time
	Backoff             time.Duration
	ConsecutiveFailures int
	LastSuccessAt       time.Time
}

type GuardConfig struct {
	Base       time.Duration
	MaxBackoff time.Duration
}

type GuardOption func(*TransportGuard)

// WithJitterSource replaces the random source; n returns a value in
// [0, limit).
func WithJitterSource(n func(limit int64) int64) GuardOption {
	return func(g *TransportGuard) {
		g.jitter = n
	}
}

// TransportGuard is the circuit breaker in front of every network
// attempt. Backoff doubles from Base on each consecutive failure up to
// MaxBackoff and only drops back to zero through Reset.
type TransportGuard struct {
	state      TransportGuardState
	base       time.Duration
	maxBackoff time.Duration
	jitter     func(limit int64) int64
}

func NewTransportGuard(cfg GuardConfig, opts ...GuardOption) *TransportGuard {
	if cfg.Base <= 0 {
		cfg.Base = DefaultGuardBase
	}
	if cfg.MaxBackoff < cfg.Base {
		cfg.MaxBackoff = DefaultGuardMaxBackoff
	}
	g := &TransportGuard{
		base:       cfg.Base,
		maxBackoff: cfg.MaxBackoff,
		jitter:     rand.Int64N,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *TransportGuard) Permits(now time.Time) bool {
	return !now.Before(g.state.NextAllowedAt)
}

// RecordFailure opens the circuit and returns the full window,
// jitter included.
func (g *TransportGuard) RecordFailure(now time.Time) time.Duration {
	g.state.ConsecutiveFailures++
	if g.state.Backoff == 0 {
		g.state.Backoff = g.base
	} else {
		g.state.Backoff = min(g.state.Backoff*2, g.maxBackoff)
	}

	window := g.state.Backoff
	if limit := int64(g.state.Backoff / 4); limit > 0 {
		window += time.Duration(g.jitter(limit))
	}
	g.state.NextAllowedAt = now.Add(window)

	slog.Debug("transport guard opened",
		slog.Int("consecutive_failures", g.state.ConsecutiveFailures),
		slog.Duration("backoff", g.state.Backoff),
		slog.Duration("window", window))
	return window
}

func (g *TransportGuard) Reset(now time.Time) {
	if g.state.ConsecutiveFailures > 0 {
		slog.Debug("transport guard closed", slog.Int("after_failures", g.state.ConsecutiveFailures))
	}
	g.state.Backoff = 0
	g.state.ConsecutiveFailures = 0
	g.state.LastSuccessAt = now
}

func (g *TransportGuard) Circuit(now time.Time) CircuitState {
	switch {
	case !g.Permits(now):
		return CircuitOpen
	case g.state.ConsecutiveFailures > 0:
		return CircuitHalfOpen
	default:
		return CircuitClosed
	}
}

func (g *TransportGuard) State() TransportGuardState {
	return g.state
}

func (g *TransportGuard) Base() time.Duration {
	return g.base
}

// SetBase tunes the first backoff step. An already-running backoff
// keeps growing from where it is.
func (g *TransportGuard) SetBase(base time.Duration) {
	if base <= 0 || base > g.maxBackoff {
		return
	}
	g.base = base
}
