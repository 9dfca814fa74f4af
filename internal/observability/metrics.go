package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds all Prometheus metrics for the archive.
type Collector struct {
	registry *prometheus.Registry

	// Remote store metrics
	StoreOperations *prometheus.CounterVec
	StoreDuration   *prometheus.HistogramVec
	BreakerState    *prometheus.GaugeVec

	// Core metrics
	CollectionLoads    *prometheus.CounterVec
	DanglingReferences *prometheus.CounterVec
	LikeToggles        *prometheus.CounterVec
	LikeIndexLoads     *prometheus.CounterVec
	SessionChanges     *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewCollector creates a collector with its own registry.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		StoreOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Total number of remote store operations",
			},
			[]string{"operation", "collection", "status"},
		),
		StoreDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Remote store operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "collection"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
			[]string{"name"},
		),
		CollectionLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "collection_loads_total",
				Help:      "Collection loads by view and sync status",
			},
			[]string{"view", "status"},
		),
		DanglingReferences: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dangling_likes_total",
				Help:      "Likes dropped from favorites because their item no longer resolves",
			},
			[]string{"item_type"},
		),
		LikeToggles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "like_toggles_total",
				Help:      "Like toggles by direction and final state",
			},
			[]string{"direction", "outcome"},
		),
		LikeIndexLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "like_index_loads_total",
				Help:      "Like index loads by item type and result",
			},
			[]string{"item_type", "result"},
		),
		SessionChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_changes_total",
				Help:      "Session identity transitions",
			},
			[]string{"state"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		c.StoreOperations,
		c.StoreDuration,
		c.BreakerState,
		c.CollectionLoads,
		c.DanglingReferences,
		c.LikeToggles,
		c.LikeIndexLoads,
		c.SessionChanges,
		c.HTTPRequests,
		c.HTTPDuration,
	)

	return c
}

// ObserveStore records one store call.
func (c *Collector) ObserveStore(operation, collection string, err error, elapsed time.Duration) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.StoreOperations.WithLabelValues(operation, collection, status).Inc()
	c.StoreDuration.WithLabelValues(operation, collection).Observe(elapsed.Seconds())
}

// CollectionLoaded records the sync status a view load ended in.
func (c *Collector) CollectionLoaded(view, status string) {
	if c == nil {
		return
	}
	c.CollectionLoads.WithLabelValues(view, status).Inc()
}

// DanglingDropped counts a like dropped from the favorites join.
func (c *Collector) DanglingDropped(itemType string) {
	if c == nil {
		return
	}
	c.DanglingReferences.WithLabelValues(itemType).Inc()
}

// ToggleSettled records a settled toggle.
func (c *Collector) ToggleSettled(direction, outcome string) {
	if c == nil {
		return
	}
	c.LikeToggles.WithLabelValues(direction, outcome).Inc()
}

// IndexLoaded records a like index load.
func (c *Collector) IndexLoaded(itemType, result string) {
	if c == nil {
		return
	}
	c.LikeIndexLoads.WithLabelValues(itemType, result).Inc()
}

// SessionChanged records an identity transition.
func (c *Collector) SessionChanged(authenticated bool) {
	if c == nil {
		return
	}
	state := "unauthenticated"
	if authenticated {
		state = "authenticated"
	}
	c.SessionChanges.WithLabelValues(state).Inc()
}

// SetBreakerState publishes a circuit breaker state.
func (c *Collector) SetBreakerState(name string, state float64) {
	if c == nil {
		return
	}
	c.BreakerState.WithLabelValues(name).Set(state)
}

// ObserveHTTP records one served request. route is the matched pattern,
// not the raw path, to keep label cardinality bounded.
func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}
