package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/attune/internal/domain"
	"github.com/felixgeelhaar/attune/internal/engine"
)

// ResilientDispatcher wraps a dispatcher with retry and a circuit breaker.
// Broker hiccups are retried with backoff; a broker that stays down trips
// the breaker so publishes fail fast and the redelivery loop picks the
// alerts up once the broker returns.
type ResilientDispatcher struct {
	next    engine.Dispatcher
	breaker circuitbreaker.CircuitBreaker[struct{}]
	retrier retry.Retry[struct{}]
	logger  *slog.Logger
}

// ResilientConfig holds configuration for the resilient dispatcher wrapper
type ResilientConfig struct {
	// MaxAttempts per publish (default: 3)
	MaxAttempts int

	// Logger for resilience events
	Logger *slog.Logger
}

// NewResilientDispatcher wraps a dispatcher with resilience patterns using fortify
func NewResilientDispatcher(next engine.Dispatcher, cfg ResilientConfig) *ResilientDispatcher {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rd := &ResilientDispatcher{
		next:   next,
		logger: logger,
	}

	rd.breaker = circuitbreaker.New[struct{}](circuitbreaker.Config{
		MaxRequests: 2,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			rd.logger.Warn("dispatch circuit breaker state change",
				"from", from.String(),
				"to", to.String())
		},
	})

	rd.retrier = retry.New[struct{}](retry.Config{
		MaxAttempts:   attempts,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		Multiplier:    2.0,
		BackoffPolicy: retry.BackoffExponential,
		Jitter:        true,
	})

	return rd
}

// DispatchAlert publishes an alert through the resilience chain.
func (d *ResilientDispatcher) DispatchAlert(ctx context.Context, a *domain.Alert) error {
	return d.execute(ctx, func(ctx context.Context) error {
		return d.next.DispatchAlert(ctx, a)
	})
}

// DispatchPlan publishes a plan through the resilience chain.
func (d *ResilientDispatcher) DispatchPlan(ctx context.Context, p *domain.InterventionPlan) error {
	return d.execute(ctx, func(ctx context.Context) error {
		return d.next.DispatchPlan(ctx, p)
	})
}

func (d *ResilientDispatcher) execute(ctx context.Context, op func(context.Context) error) error {
	_, err := d.breaker.Execute(ctx, func(ctx context.Context) (struct{}, error) {
		return d.retrier.Do(ctx, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, op(ctx)
		})
	})
	return err
}
