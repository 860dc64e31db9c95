// Package resilience wraps calls to upstream catalog and value endpoints
// with a circuit breaker, per-call timeouts and bounded retries.
package resilience

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// BreakerConfig configures the circuit breaker guarding one upstream.
type BreakerConfig struct {
	// Name labels the breaker in logs and health reports.
	Name string

	// HalfOpenRequests is the number of probe calls let through while half-open.
	// Default: 1
	HalfOpenRequests uint32

	// ResetInterval clears the closed-state counters periodically.
	// Default: 0 (never)
	ResetInterval time.Duration

	// OpenTimeout is how long the breaker stays open before probing again.
	// Default: 30 seconds
	OpenTimeout time.Duration

	// ShouldTrip decides when to open. Nil means DefaultShouldTrip.
	ShouldTrip func(counts gobreaker.Counts) bool

	// OnStateChange observes transitions.
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultBreakerConfig returns the breaker settings used for catalog upstreams.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		HalfOpenRequests: 1,
		OpenTimeout:      30 * time.Second,
		ShouldTrip:       DefaultShouldTrip,
	}
}

// DefaultShouldTrip opens the breaker once five or more calls were made and
// at least half of them failed.
func DefaultShouldTrip(counts gobreaker.Counts) bool {
	if counts.Requests < 5 {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
}

// NewBreaker builds a typed gobreaker from cfg. State changes are logged at
// Warn in addition to any OnStateChange hook.
func NewBreaker[T any](cfg BreakerConfig, logger zerolog.Logger) *gobreaker.CircuitBreaker[T] {
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = 1
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.ShouldTrip == nil {
		cfg.ShouldTrip = DefaultShouldTrip
	}

	hook := cfg.OnStateChange
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Interval:    cfg.ResetInterval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: cfg.ShouldTrip,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("upstream", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
			if hook != nil {
				hook(name, from, to)
			}
		},
	})
}
