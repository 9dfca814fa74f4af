// Package resilience decorates a store.Store with a circuit breaker,
// metrics and tracing. Decorators keep the Store contract intact: conflicts
// pass through untouched and never count as failures.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	apperrors "github.com/vertixec/THEARCHIVE/internal/errors"
	"github.com/vertixec/THEARCHIVE/internal/observability"
	"github.com/vertixec/THEARCHIVE/internal/store"
)

// BreakerConfig holds configuration for the store circuit breaker.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns the breaker settings used against the remote store.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// BreakerStore guards a store with a gobreaker circuit breaker.
type BreakerStore struct {
	inner   store.Store
	cb      *gobreaker.CircuitBreaker
	logger  *zap.Logger
	metrics *observability.Collector
}

// NewBreakerStore wraps inner.
func NewBreakerStore(inner store.Store, config BreakerConfig, logger *zap.Logger, metrics *observability.Collector) *BreakerStore {
	logger = observability.OrNop(logger)
	b := &BreakerStore{inner: inner, logger: logger, metrics: metrics}

	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			metrics.SetBreakerState(name, stateValue(to))
		},
		IsSuccessful: isSuccessful,
	})
	metrics.SetBreakerState(config.Name, stateValue(gobreaker.StateClosed))

	return b
}

// Open reports whether the breaker is currently rejecting calls.
func (b *BreakerStore) Open() bool {
	return b.cb.State() == gobreaker.StateOpen
}

// Read implements store.Reader.
func (b *BreakerStore) Read(ctx context.Context, q store.Query) ([]store.Row, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Read(ctx, q)
	})
	if err != nil {
		return nil, b.translate(err, q.Collection)
	}
	rows, _ := res.([]store.Row)
	return rows, nil
}

// Insert implements store.Writer.
func (b *BreakerStore) Insert(ctx context.Context, collection string, record store.Row) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.inner.Insert(ctx, collection, record)
	})
	return b.translate(err, collection)
}

// Delete implements store.Writer.
func (b *BreakerStore) Delete(ctx context.Context, collection string, filters []store.Filter) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.inner.Delete(ctx, collection, filters)
	})
	return b.translate(err, collection)
}

func (b *BreakerStore) translate(err error, collection string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		b.logger.Debug("Circuit breaker rejected store call",
			zap.String("collection", collection),
			zap.Error(err))
		return apperrors.Transport(apperrors.CodeCircuitOpen.String(), "remote store temporarily unavailable").
			WithResource(collection).
			WithCause(err).
			Build()
	}
	return err
}

// isSuccessful treats conflicts and caller cancellation as healthy
// responses from the store's point of view.
func isSuccessful(err error) bool {
	if err == nil || apperrors.IsConflict(err) {
		return true
	}
	if apperrors.HasCode(err, apperrors.CodeCanceled) || errors.Is(err, context.Canceled) {
		return true
	}
	return false
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

var _ store.Store = (*BreakerStore)(nil)
