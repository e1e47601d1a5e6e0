package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all service metrics
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Kafka metrics
	KafkaEventsPublished *prometheus.CounterVec
	KafkaEventsConsumed  *prometheus.CounterVec
	KafkaPublishDuration *prometheus.HistogramVec
	KafkaConsumeLag      *prometheus.GaugeVec

	// MongoDB metrics
	MongoDBOperations        *prometheus.CounterVec
	MongoDBOperationDuration *prometheus.HistogramVec
	MongoDBConnectionsOpen   prometheus.Gauge

	// Outbox metrics
	OutboxPending   *prometheus.GaugeVec
	OutboxPublished *prometheus.CounterVec
	OutboxRetries   *prometheus.CounterVec

	// Business metrics
	TasksCreated     *prometheus.CounterVec
	TasksCompleted   *prometheus.CounterVec
	TasksCancelled   *prometheus.CounterVec
	ShortShipments   *prometheus.CounterVec
	BinSuggestions   *prometheus.CounterVec
	TransitionRaces  *prometheus.CounterVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
	Subsystem   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "oms",
		Subsystem:   serviceName,
	}
}

// New creates a new Metrics instance
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()

	// Register standard Go metrics
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,
	}

	// HTTP metrics
	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"service", "method", "path"},
	)

	m.HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "http_requests_in_flight",
			Help:        "Number of HTTP requests currently being processed",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	// Kafka metrics
	m.KafkaEventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "kafka_events_published_total",
			Help:      "Total number of Kafka events published",
		},
		[]string{"service", "topic", "event_type", "status"},
	)

	m.KafkaEventsConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "kafka_events_consumed_total",
			Help:      "Total number of Kafka events consumed",
		},
		[]string{"service", "topic", "event_type", "status"},
	)

	m.KafkaPublishDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "kafka_publish_duration_seconds",
			Help:      "Kafka publish duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"service", "topic"},
	)

	m.KafkaConsumeLag = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "kafka_consumer_lag",
			Help:      "Kafka consumer lag (messages behind)",
		},
		[]string{"service", "topic", "partition"},
	)

	// MongoDB metrics
	m.MongoDBOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "mongodb_operations_total",
			Help:      "Total number of MongoDB operations",
		},
		[]string{"service", "collection", "operation", "status"},
	)

	m.MongoDBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "mongodb_operation_duration_seconds",
			Help:      "MongoDB operation duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"service", "collection", "operation"},
	)

	m.MongoDBConnectionsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "mongodb_connections_open",
			Help:        "Number of open MongoDB connections",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	// Outbox metrics
	m.OutboxPending = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "outbox_pending_events",
			Help:      "Number of outbox events waiting to be published",
		},
		[]string{"service"},
	)

	m.OutboxPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "outbox_published_total",
			Help:      "Total number of outbox events published",
		},
		[]string{"service", "event_type", "status"},
	)

	m.OutboxRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "outbox_retries_total",
			Help:      "Total number of outbox publish retries",
		},
		[]string{"service", "event_type"},
	)

	// Business metrics
	m.TasksCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "putaway_tasks_created_total",
			Help:      "Total number of putaway tasks created",
		},
		[]string{"service", "priority"},
	)

	m.TasksCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "putaway_tasks_completed_total",
			Help:      "Total number of putaway tasks completed",
		},
		[]string{"service", "short_shipped"},
	)

	m.TasksCancelled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "putaway_tasks_cancelled_total",
			Help:      "Total number of putaway tasks cancelled",
		},
		[]string{"service"},
	)

	m.ShortShipments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "putaway_short_shipments_total",
			Help:      "Total number of completions placing fewer units than expected",
		},
		[]string{"service"},
	)

	m.BinSuggestions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "bin_suggestions_total",
			Help:      "Total number of bin suggestion requests",
		},
		[]string{"service", "outcome"},
	)

	m.TransitionRaces = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "task_transition_conflicts_total",
			Help:      "Total number of task transitions lost to a concurrent update",
		},
		[]string{"service", "action"},
	)

	// Circuit breaker metrics
	m.CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"service", "name"},
	)

	m.CircuitBreakerTrips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "circuit_breaker_trips_total",
			Help:      "Total number of circuit breaker trips",
		},
		[]string{"service", "name"},
	)

	// Register all metrics
	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.KafkaEventsPublished,
		m.KafkaEventsConsumed,
		m.KafkaPublishDuration,
		m.KafkaConsumeLag,
		m.MongoDBOperations,
		m.MongoDBOperationDuration,
		m.MongoDBConnectionsOpen,
		m.OutboxPending,
		m.OutboxPublished,
		m.OutboxRetries,
		m.TasksCreated,
		m.TasksCompleted,
		m.TasksCancelled,
		m.ShortShipments,
		m.BinSuggestions,
		m.TransitionRaces,
		m.CircuitBreakerState,
		m.CircuitBreakerTrips,
	)

	return m
}

// Handler returns an HTTP handler for metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	statusStr := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// RecordKafkaPublish records a Kafka publish event
func (m *Metrics) RecordKafkaPublish(topic, eventType string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	m.KafkaEventsPublished.WithLabelValues(m.serviceName, topic, eventType, status).Inc()
	m.KafkaPublishDuration.WithLabelValues(m.serviceName, topic).Observe(duration.Seconds())
}

// RecordKafkaConsume records a Kafka consume event
func (m *Metrics) RecordKafkaConsume(topic, eventType string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.KafkaEventsConsumed.WithLabelValues(m.serviceName, topic, eventType, status).Inc()
}

// SetKafkaConsumerLag sets the Kafka consumer lag
func (m *Metrics) SetKafkaConsumerLag(topic string, partition int, lag int64) {
	m.KafkaConsumeLag.WithLabelValues(m.serviceName, topic, strconv.Itoa(partition)).Set(float64(lag))
}

// RecordMongoDBOperation records a MongoDB operation
func (m *Metrics) RecordMongoDBOperation(collection, operation string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	m.MongoDBOperations.WithLabelValues(m.serviceName, collection, operation, status).Inc()
	m.MongoDBOperationDuration.WithLabelValues(m.serviceName, collection, operation).Observe(duration.Seconds())
}

// SetMongoDBConnections sets the number of open MongoDB connections
func (m *Metrics) SetMongoDBConnections(count int) {
	m.MongoDBConnectionsOpen.Set(float64(count))
}

// SetOutboxPending sets the pending outbox event gauge
func (m *Metrics) SetOutboxPending(count int) {
	m.OutboxPending.WithLabelValues(m.serviceName).Set(float64(count))
}

// RecordOutboxPublish records an outbox publish attempt
func (m *Metrics) RecordOutboxPublish(eventType string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.OutboxPublished.WithLabelValues(m.serviceName, eventType, status).Inc()
}

// RecordOutboxRetry records an outbox publish retry
func (m *Metrics) RecordOutboxRetry(eventType string) {
	m.OutboxRetries.WithLabelValues(m.serviceName, eventType).Inc()
}

// RecordTaskCreated records a putaway task creation
func (m *Metrics) RecordTaskCreated(priority int) {
	m.TasksCreated.WithLabelValues(m.serviceName, strconv.Itoa(priority)).Inc()
}

// RecordTaskCompleted records a putaway task completion
func (m *Metrics) RecordTaskCompleted(shortShipped bool) {
	m.TasksCompleted.WithLabelValues(m.serviceName, strconv.FormatBool(shortShipped)).Inc()
	if shortShipped {
		m.ShortShipments.WithLabelValues(m.serviceName).Inc()
	}
}

// RecordTaskCancelled records a putaway task cancellation
func (m *Metrics) RecordTaskCancelled() {
	m.TasksCancelled.WithLabelValues(m.serviceName).Inc()
}

// RecordBinSuggestion records a bin suggestion request outcome
func (m *Metrics) RecordBinSuggestion(outcome string) {
	m.BinSuggestions.WithLabelValues(m.serviceName, outcome).Inc()
}

// RecordTransitionConflict records a transition lost to a concurrent update
func (m *Metrics) RecordTransitionConflict(action string) {
	m.TransitionRaces.WithLabelValues(m.serviceName, action).Inc()
}

// SetCircuitBreakerState sets the circuit breaker state
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(name string) {
	m.CircuitBreakerTrips.WithLabelValues(m.serviceName, name).Inc()
}

// IncrementHTTPRequestsInFlight increments in-flight requests
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements in-flight requests
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}
