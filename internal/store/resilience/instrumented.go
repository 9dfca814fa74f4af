package resilience

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	apperrors "github.com/vertixec/THEARCHIVE/internal/errors"
	"github.com/vertixec/THEARCHIVE/internal/observability"
	"github.com/vertixec/THEARCHIVE/internal/store"
)

// InstrumentedStore records metrics, spans and debug logs for every call.
type InstrumentedStore struct {
	inner   store.Store
	metrics *observability.Collector
	tracer  trace.Tracer
	logger  *zap.Logger
}

// NewInstrumentedStore wraps inner. A nil tracer uses the global one.
func NewInstrumentedStore(inner store.Store, metrics *observability.Collector, tracer trace.Tracer, logger *zap.Logger) *InstrumentedStore {
	if tracer == nil {
		tracer = observability.Tracer("archive/store")
	}
	return &InstrumentedStore{
		inner:   inner,
		metrics: metrics,
		tracer:  tracer,
		logger:  observability.OrNop(logger),
	}
}

// Read implements store.Reader.
func (s *InstrumentedStore) Read(ctx context.Context, q store.Query) ([]store.Row, error) {
	ctx, span := s.tracer.Start(ctx, "store.Read",
		trace.WithAttributes(
			attribute.String("store.collection", q.Collection),
			attribute.Int("store.filters", len(q.Filters)),
		),
	)
	defer span.End()

	start := time.Now()
	rows, err := s.inner.Read(ctx, q)
	s.finish(span, "read", q.Collection, err, time.Since(start))
	if err == nil {
		span.SetAttributes(attribute.Int("store.rows", len(rows)))
	}
	return rows, err
}

// Insert implements store.Writer.
func (s *InstrumentedStore) Insert(ctx context.Context, collection string, record store.Row) error {
	ctx, span := s.tracer.Start(ctx, "store.Insert",
		trace.WithAttributes(attribute.String("store.collection", collection)),
	)
	defer span.End()

	start := time.Now()
	err := s.inner.Insert(ctx, collection, record)
	s.finish(span, "insert", collection, err, time.Since(start))
	return err
}

// Delete implements store.Writer.
func (s *InstrumentedStore) Delete(ctx context.Context, collection string, filters []store.Filter) error {
	ctx, span := s.tracer.Start(ctx, "store.Delete",
		trace.WithAttributes(
			attribute.String("store.collection", collection),
			attribute.Int("store.filters", len(filters)),
		),
	)
	defer span.End()

	start := time.Now()
	err := s.inner.Delete(ctx, collection, filters)
	s.finish(span, "delete", collection, err, time.Since(start))
	return err
}

func (s *InstrumentedStore) finish(span trace.Span, op, collection string, err error, elapsed time.Duration) {
	// Conflicts are expected outcomes of idempotent writes.
	failure := err
	if apperrors.IsConflict(err) {
		failure = nil
	}
	if failure != nil {
		span.RecordError(failure)
		span.SetStatus(codes.Error, failure.Error())
	}
	s.metrics.ObserveStore(op, collection, failure, elapsed)
	s.logger.Debug("Store call",
		zap.String("operation", op),
		zap.String("collection", collection),
		zap.Duration("elapsed", elapsed),
		zap.Error(err))
}

var _ store.Store = (*InstrumentedStore)(nil)
