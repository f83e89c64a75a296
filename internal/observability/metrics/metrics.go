package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omniaudit_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "omniaudit_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	auditsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omniaudit_audits_submitted_total",
		Help: "Audits stored, by whether the AI paragraph came from a provider or the fallback",
	}, []string{"ai_source"})

	llmCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omniaudit_llm_calls_total",
		Help: "Outbound LLM calls by provider, model and result",
	}, []string{"provider", "model", "result"})

	llmDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "omniaudit_llm_call_duration_seconds",
		Help:    "Latency of outbound LLM calls",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"provider"})

	llmCostUSD = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omniaudit_llm_estimated_cost_usd_total",
		Help: "Estimated LLM spend from static per-token rates",
	}, []string{"provider"})

	circuitState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "omniaudit_circuit_breaker_state",
		Help: "Circuit breaker state per provider (0 closed, 1 open, 2 half-open)",
	}, []string{"provider"})

	usageDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omniaudit_usage_denied_total",
		Help: "Requests rejected because the tier allowance was exhausted",
	}, []string{"feature", "tier"})

	taskRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omniaudit_task_runs_total",
		Help: "Scheduled task executions by result",
	}, []string{"result"})

	scheduledTasks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "omniaudit_scheduled_tasks",
		Help: "Number of tasks registered with the scheduler",
	})

	websocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "omniaudit_websocket_clients",
		Help: "Connected live log stream clients",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveAudit counts a stored audit
func ObserveAudit(aiSource string) {
	auditsSubmitted.WithLabelValues(aiSource).Inc()
}

// ObserveLLMCall records one provider call
func ObserveLLMCall(provider, model, result string, duration time.Duration, costUSD float64) {
	llmCalls.WithLabelValues(provider, model, result).Inc()
	llmDuration.WithLabelValues(provider).Observe(duration.Seconds())
	if costUSD > 0 {
		llmCostUSD.WithLabelValues(provider).Add(costUSD)
	}
}

// SetCircuitState exports a breaker state as a gauge value
func SetCircuitState(provider string, state int) {
	circuitState.WithLabelValues(provider).Set(float64(state))
}

// ObserveUsageDenied counts a request rejected by the tier limit
func ObserveUsageDenied(feature, tier string) {
	usageDenied.WithLabelValues(feature, tier).Inc()
}

// ObserveTaskRun counts a scheduled task execution
func ObserveTaskRun(result string) {
	taskRuns.WithLabelValues(result).Inc()
}

// SetScheduledTasks sets the number of registered cron entries
func SetScheduledTasks(count int) {
	if count < 0 {
		count = 0
	}
	scheduledTasks.Set(float64(count))
}

// IncrementWebsocketClients is called when a log stream client connects
func IncrementWebsocketClients() {
	websocketClients.Inc()
}

// DecrementWebsocketClients is called when a log stream client disconnects
func DecrementWebsocketClients() {
	websocketClients.Dec()
}
