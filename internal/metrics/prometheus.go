package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the rankings ingestion service

var (
	// API Call metrics
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ffrank_api_calls_total",
			Help: "Total number of Sleeper API calls",
		},
		[]string{"endpoint", "status"},
	)

	APICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ffrank_api_call_duration_seconds",
			Help:    "Duration of API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Database metrics
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ffrank_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "table", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ffrank_db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ffrank_db_connections_active",
			Help: "Number of active database connections",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ffrank_db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ffrank_cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ffrank_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// Snapshot run metrics
	SnapshotRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ffrank_snapshot_runs_total",
			Help: "Total number of snapshot pipeline runs",
		},
		[]string{"source", "status"},
	)

	SnapshotRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ffrank_snapshot_run_duration_seconds",
			Help:    "Duration of snapshot pipeline runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"source"},
	)

	PlayersUpserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ffrank_players_upserted_total",
			Help: "Total number of player rows upserted",
		},
	)

	SnapshotsInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ffrank_snapshots_inserted_total",
			Help: "Total number of snapshot rows inserted",
		},
	)

	// HTTP API metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ffrank_http_requests_total",
			Help: "Total number of HTTP API requests",
		},
		[]string{"endpoint", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ffrank_http_request_duration_seconds",
			Help:    "HTTP API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ffrank_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ffrank_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)

	LastSuccessfulRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ffrank_last_successful_run_timestamp",
			Help: "Timestamp of last successful snapshot run",
		},
	)
)

// RecordAPICall records an API call metric
func RecordAPICall(endpoint, status string, duration float64) {
	APICallsTotal.WithLabelValues(endpoint, status).Inc()
	APICallDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table, status string, duration float64) {
	DBQueriesTotal.WithLabelValues(operation, table, status).Inc()
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration)
}

// RecordCacheHit records a cache hit
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordSnapshotRun records a pipeline run and its write counts
func RecordSnapshotRun(source, status string, duration float64, players, snapshots int) {
	SnapshotRunsTotal.WithLabelValues(source, status).Inc()
	SnapshotRunDuration.WithLabelValues(source).Observe(duration)
	PlayersUpserted.Add(float64(players))
	SnapshotsInserted.Add(float64(snapshots))

	if status == "success" {
		LastSuccessfulRun.SetToCurrentTime()
	}
}

// RecordHTTPRequest records a served API request
func RecordHTTPRequest(endpoint, method, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
	HTTPRequestDuration.WithLabelValues(endpoint, method).Observe(duration)
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// UpdateDBConnectionStats updates database connection pool statistics
func UpdateDBConnectionStats(active, idle int32) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
