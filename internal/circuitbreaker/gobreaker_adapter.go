// Package circuitbreaker guards calls to optional shared services using
// Sony's gobreaker, so a failing dependency degrades instead of stalling
// every request.
package circuitbreaker

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"spectral-workbench/internal/common/errors"
	"spectral-workbench/internal/common/logging"

	"github.com/sony/gobreaker"
)

// ErrOpen is wrapped by errors returned while the breaker rejects calls
var ErrOpen = stderrors.New("circuit breaker is open")

// Config holds the configuration for a circuit breaker
type Config struct {
	// MaxFailures is the number of consecutive failures that opens the breaker
	MaxFailures int
	// Timeout is how long the breaker stays open before allowing a probe
	Timeout time.Duration
	// MaxConcurrentRequests is the number of probes allowed while half-open
	MaxConcurrentRequests int
	// Interval clears the closed-state counts; zero never clears them
	Interval time.Duration
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		MaxFailures:           5,
		Timeout:               60 * time.Second,
		MaxConcurrentRequests: 1,
		Interval:              time.Minute,
	}
}

// SharedCacheConfig is for the Redis result tier, which is optional and
// should be abandoned quickly when unreachable.
var SharedCacheConfig = Config{
	MaxFailures:           3,
	Timeout:               30 * time.Second,
	MaxConcurrentRequests: 1,
	Interval:              time.Minute,
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	if c.MaxFailures <= 0 {
		return fmt.Errorf("MaxFailures must be positive, got %d", c.MaxFailures)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("Timeout must be positive, got %v", c.Timeout)
	}
	if c.MaxConcurrentRequests <= 0 {
		return fmt.Errorf("MaxConcurrentRequests must be positive, got %d", c.MaxConcurrentRequests)
	}
	if c.Interval < 0 {
		return fmt.Errorf("Interval must not be negative, got %v", c.Interval)
	}
	return nil
}

// State represents the current state of the circuit breaker
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

// Stats summarizes a breaker for status endpoints
type Stats struct {
	Name                string `json:"name"`
	State               string `json:"state"`
	Failures            int    `json:"failures"`
	Successes           int    `json:"successes"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
}

// GoBreakerAdapter wraps Sony's gobreaker
type GoBreakerAdapter struct {
	name    string
	breaker *gobreaker.CircuitBreaker
	logger  logging.Logger
}

// NewGoBreaker creates a new circuit breaker using Sony's gobreaker implementation
func NewGoBreaker(name string, config Config, logger logging.Logger) *GoBreakerAdapter {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	if err := config.Validate(); err != nil {
		logger.Warn("Invalid circuit breaker config, using defaults",
			logging.Err(err),
			logging.String("name", name),
		)
		config = DefaultConfig()
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(config.MaxConcurrentRequests),
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(config.MaxFailures)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				logging.String("breaker", name),
				logging.String("from", from.String()),
				logging.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// Bad input or a missing key says nothing about the service's health
			switch errors.GetType(err) {
			case errors.ErrTypeValidation, errors.ErrTypeNotFound:
				return true
			}
			return stderrors.Is(err, context.Canceled)
		},
	}

	return &GoBreakerAdapter{
		name:    name,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// Execute runs fn within the circuit breaker. While the breaker rejects
// calls the returned connection error wraps ErrOpen.
func (g *GoBreakerAdapter) Execute(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := g.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})

	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return errors.ConnectionError(fmt.Sprintf("circuit breaker '%s' rejected the call", g.name),
			fmt.Errorf("%w: %v", ErrOpen, err))
	}

	return err
}

// IsOpenError reports whether err came from a rejecting breaker
func IsOpenError(err error) bool {
	return stderrors.Is(err, ErrOpen)
}

// State returns the current state of the circuit breaker
func (g *GoBreakerAdapter) State() State {
	switch g.breaker.State() {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// Stats returns current statistics
func (g *GoBreakerAdapter) Stats() Stats {
	counts := g.breaker.Counts()

	return Stats{
		Name:                g.name,
		State:               g.State().String(),
		Failures:            int(counts.TotalFailures),
		Successes:           int(counts.TotalSuccesses),
		ConsecutiveFailures: int(counts.ConsecutiveFailures),
	}
}
