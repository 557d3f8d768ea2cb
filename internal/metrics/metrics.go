// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for production observability:
// - Webhook ingestion pipeline (received, processed, failed, duration)
// - Cargoes Flow forwarding (posts, updates, skips, circuit breaker)
// - Risk assessment batches
// - Database query performance (DuckDB)
// - API endpoint latency and throughput

var (
	// Webhook Pipeline Metrics
	WebhooksReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tms_webhooks_received_total",
			Help: "Total number of inbound TMS webhooks by shipment type and operation",
		},
		[]string{"event_type", "operation"},
	)

	WebhooksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tms_webhooks_processed_total",
			Help: "Total number of TMS webhooks by processing outcome",
		},
		[]string{"outcome"}, // "processed", "failed", "rejected"
	)

	WebhookProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tms_webhook_processing_duration_seconds",
			Help:    "End-to-end TMS webhook processing duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	WebhookRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tms_webhook_retries_total",
			Help: "Total number of operator-triggered webhook replays",
		},
	)

	// Cargoes Flow Forwarder Metrics
	CargoesFlowRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cargoes_flow_requests_total",
			Help: "Total number of outbound Cargoes Flow API calls",
		},
		[]string{"operation", "outcome"}, // operation: "create", "update", "list", "upload"
	)

	CargoesFlowRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cargoes_flow_request_duration_seconds",
			Help:    "Outbound Cargoes Flow API call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	ForwarderSkips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cargoes_flow_forwarder_skips_total",
			Help: "Total number of webhooks not forwarded to Cargoes Flow",
		},
		[]string{"reason"}, // "non_drayage", "missing_mbl", "already_posted", "no_mapping"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through the circuit breaker",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	// Risk Assessment Metrics
	RiskAssessments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_assessments_total",
			Help: "Total number of shipment risk assessments by resulting level",
		},
		[]string{"level"},
	)

	RiskBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "risk_batch_duration_seconds",
			Help:    "Duration of a full risk assessment batch run in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
	)

	// Mirror Sync Metrics
	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cargoes_flow_sync_runs_total",
			Help: "Total number of Cargoes Flow mirror sync runs",
		},
		[]string{"outcome"},
	)

	SyncShipmentsUpserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cargoes_flow_sync_shipments_upserted_total",
			Help: "Total number of mirror shipment rows upserted by sync runs",
		},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)

	// WebSocket Metrics
	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connected_clients",
			Help: "Current number of connected websocket monitor clients",
		},
	)
)

// RecordDBQuery records database query duration and errors.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records API request metrics.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordCargoesFlowRequest records an outbound Cargoes Flow API call.
func RecordCargoesFlowRequest(operation string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	CargoesFlowRequests.WithLabelValues(operation, outcome).Inc()
	CargoesFlowRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
