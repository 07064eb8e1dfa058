package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metric collectors for the platform.
type Metrics struct {
	registry *prometheus.Registry

	// Job lifecycle metrics.
	JobsSubmittedTotal *prometheus.CounterVec
	JobsProcessedTotal *prometheus.CounterVec
	JobsCancelledTotal prometheus.Counter

	// Provider execution metrics.
	ProviderExecutionsTotal   *prometheus.CounterVec
	ProviderFallbacksTotal    *prometheus.CounterVec
	ProviderExecutionDuration *prometheus.HistogramVec

	// Cost enforcement metrics.
	SpendingLimitRejectionsTotal *prometheus.CounterVec
	CostTrackedTotal             prometheus.Counter

	// Server lifecycle.
	ServerStartTime prometheus.Gauge
}

// New creates and registers all Prometheus metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		JobsSubmittedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "consulting_jobs_submitted_total",
			Help: "Total number of jobs accepted for execution.",
		}, []string{"agent_id"}),

		JobsProcessedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "consulting_jobs_processed_total",
			Help: "Total number of jobs processed by the execution worker.",
		}, []string{"agent_id", "status"}),

		JobsCancelledTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "consulting_jobs_cancelled_total",
			Help: "Total number of jobs cancelled by their owner.",
		}),

		ProviderExecutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "consulting_provider_executions_total",
			Help: "Total number of provider execution attempts.",
		}, []string{"provider", "status"}),

		ProviderFallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "consulting_provider_fallbacks_total",
			Help: "Total number of executions served by a fallback provider.",
		}, []string{"original_provider", "fallback_provider"}),

		ProviderExecutionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "consulting_provider_execution_duration_seconds",
			Help:    "Provider execution duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"provider"}),

		SpendingLimitRejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "consulting_spending_limit_rejections_total",
			Help: "Total number of submissions rejected by the monthly spending ceiling.",
		}, []string{"role"}),

		CostTrackedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "consulting_cost_tracked_total",
			Help: "Total number of successful cost tracking writes.",
		}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "consulting_server_start_time_seconds",
			Help: "Unix timestamp when the server started.",
		}),
	}

	reg.MustRegister(
		m.JobsSubmittedTotal,
		m.JobsProcessedTotal,
		m.JobsCancelledTotal,
		m.ProviderExecutionsTotal,
		m.ProviderFallbacksTotal,
		m.ProviderExecutionDuration,
		m.SpendingLimitRejectionsTotal,
		m.CostTrackedTotal,
		m.ServerStartTime,
	)

	m.ServerStartTime.Set(float64(time.Now().Unix()))

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncJobSubmitted increments the submitted jobs counter.
func (m *Metrics) IncJobSubmitted(agentID string) {
	m.JobsSubmittedTotal.WithLabelValues(agentID).Inc()
}

// IncJobProcessed increments the processed jobs counter for a terminal status.
func (m *Metrics) IncJobProcessed(agentID, status string) {
	m.JobsProcessedTotal.WithLabelValues(agentID, status).Inc()
}

// IncProviderExecution increments the provider attempt counter.
func (m *Metrics) IncProviderExecution(provider, status string) {
	m.ProviderExecutionsTotal.WithLabelValues(provider, status).Inc()
}

// IncProviderFallback increments the fallback counter.
func (m *Metrics) IncProviderFallback(originalProvider, fallbackProvider string) {
	m.ProviderFallbacksTotal.WithLabelValues(originalProvider, fallbackProvider).Inc()
}

// ObserveExecutionDuration records a provider execution duration.
func (m *Metrics) ObserveExecutionDuration(provider string, seconds float64) {
	m.ProviderExecutionDuration.WithLabelValues(provider).Observe(seconds)
}

// IncSpendingLimitRejection increments the ceiling rejection counter.
func (m *Metrics) IncSpendingLimitRejection(role string) {
	m.SpendingLimitRejectionsTotal.WithLabelValues(role).Inc()
}
