// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// TurnsTotal tracks conversation turns by route label and outcome.
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_turns_total",
			Help: "Total conversation turns processed",
		},
		[]string{"route", "status"},
	)

	// TurnDuration tracks end-to-end turn duration.
	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "conversation_turn_duration_seconds",
			Help:    "Turn processing duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"route"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// CategorizationBatchesTotal tracks categorization batches by outcome.
	CategorizationBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "categorization_batches_total",
			Help: "Total categorization batches invoked",
		},
		[]string{"status"},
	)

	// CategorizedTransactionsTotal counts successfully categorized
	// transactions.
	CategorizedTransactionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "categorized_transactions_total",
			Help: "Total transactions successfully categorized",
		},
	)

	// IntentParsesTotal tracks parsed query intents.
	IntentParsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intent_parses_total",
			Help: "Total query intent parses",
		},
		[]string{"intent"},
	)

	// IntentConfidence tracks intent parse confidence scores.
	IntentConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "intent_parse_confidence",
			Help:    "Confidence of query intent parses",
			Buckets: []float64{0, .1, .2, .3, .4, .5, .6, .7, .8, .9, 1},
		},
	)

	// StreamConnectionsActive tracks active streaming connections.
	StreamConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stream_connections_active",
			Help: "Number of active streaming connections",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordTurn records metrics for one conversation turn.
func RecordTurn(route string, ok bool, duration float64) {
	status := "success"
	if !ok {
		status = "handler_error"
	}
	TurnsTotal.WithLabelValues(route, status).Inc()
	TurnDuration.WithLabelValues(route).Observe(duration)
}

// RecordLLMTokens records token usage for an LLM call.
func RecordLLMTokens(model string, tokensIn, tokensOut int) {
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}

// RecordIntentParse records one query intent parse.
func RecordIntentParse(intent string, confidence float64) {
	IntentParsesTotal.WithLabelValues(intent).Inc()
	IntentConfidence.Observe(confidence)
}

// IncrementStreamConnections increments the active stream connection count.
func IncrementStreamConnections() {
	StreamConnectionsActive.Inc()
}

// DecrementStreamConnections decrements the active stream connection count.
func DecrementStreamConnections() {
	StreamConnectionsActive.Dec()
}
