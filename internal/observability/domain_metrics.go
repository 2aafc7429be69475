package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "facturabot_turns_total",
			Help: "Total number of processed conversation turns by intent.",
		},
		[]string{"intent"},
	)
	queryTypeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "facturabot_query_type_total",
			Help: "Total number of query-type routing decisions.",
		},
		[]string{"query_type"},
	)
	sqlRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "facturabot_sql_retries_total",
			Help: "Total number of SQL regeneration attempts after an execution error.",
		},
	)
	classifierFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "facturabot_classifier_fallbacks_total",
			Help: "Total number of classifier calls resolved by the documented safe default.",
		},
		[]string{"stage"},
	)
	sqlExecutionSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "facturabot_sql_execution_seconds",
			Help:    "Latency of agent SQL executions.",
			Buckets: prometheus.DefBuckets,
		},
	)
	turnLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "facturabot_turn_latency_ms",
			Help:    "End-to-end turn latency in milliseconds.",
			Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		},
	)
)

func init() {
	prometheus.MustRegister(
		turnsTotal,
		queryTypeTotal,
		sqlRetriesTotal,
		classifierFallbacksTotal,
		sqlExecutionSeconds,
		turnLatencyMs,
	)
}

func ObserveTurn(intent string, elapsed time.Duration) {
	turnsTotal.WithLabelValues(intent).Inc()
	turnLatencyMs.Observe(float64(elapsed.Milliseconds()))
}

func ObserveQueryType(queryType string) {
	queryTypeTotal.WithLabelValues(queryType).Inc()
}

func IncrementSQLRetry() {
	sqlRetriesTotal.Inc()
}

func IncrementClassifierFallback(stage string) {
	classifierFallbacksTotal.WithLabelValues(stage).Inc()
}

func ObserveSQLExecution(elapsed time.Duration) {
	sqlExecutionSeconds.Observe(elapsed.Seconds())
}
