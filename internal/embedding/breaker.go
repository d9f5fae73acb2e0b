package embedding

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig tunes the circuit breaker wrapping oracle calls.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures required to trip
	// the circuit open. Zero selects the default of 3.
	MaxFailures uint32
	// OpenTimeout is how long the circuit stays open before allowing a
	// half-open probe. Zero selects the default of 30s.
	OpenTimeout time.Duration
	// HalfOpenProbes is the number of consecutive successes in half-open
	// state required to close the circuit. Zero selects the default of 2.
	HalfOpenProbes uint32
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.MaxFailures == 0 {
		c.MaxFailures = 3
	}
	if c.OpenTimeout == 0 {
		c.OpenTimeout = 30 * time.Second
	}
	if c.HalfOpenProbes == 0 {
		c.HalfOpenProbes = 2
	}
	return c
}

// Breaker wraps gobreaker around oracle calls so a string of consecutive
// failures trips the circuit instead of letting every caller pay the
// backend's timeout one at a time.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreaker builds a breaker from cfg, filling unset fields with defaults.
func NewBreaker(cfg BreakerConfig) *Breaker {
	cfg = cfg.withDefaults()
	settings := gobreaker.Settings{
		Name:        "embedding-oracle",
		MaxRequests: cfg.HalfOpenProbes,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Execute runs fn through the breaker. Generic over the embedding result
// shape (single vector vs. batch) so both Oracle methods share one
// breaker-wrapping path instead of duplicating the interface{} cast.
func Execute[T any](b *Breaker, ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	default:
	}
	result, err := b.cb.Execute(func() (any, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		return fn()
	})
	if err != nil {
		return zero, err
	}
	return result.(T), nil
}

// State returns "closed", "open", or "half-open".
func (b *Breaker) State() string {
	switch b.cb.State() {
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}
