// Package metrics provides Prometheus instrumentation for the CodeFund services.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	enabled     bool
	serviceName string

	// HTTP metrics
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec

	// Chain metrics
	chainReadsTotal       *prometheus.CounterVec
	chainSubmissionsTotal *prometheus.CounterVec

	// Oracle metrics
	oracleRequestsTotal *prometheus.CounterVec

	// Agent metrics
	agentCyclesTotal    *prometheus.CounterVec
	agentCycleDuration  prometheus.Histogram
	agentMilestones     *prometheus.CounterVec
	agentApprovalsTotal *prometheus.CounterVec
)

// Init initializes the metrics system. It must be called at most once per process.
func Init(enabledFlag bool, svcName string) {
	enabled = enabledFlag
	serviceName = svcName

	if !enabled {
		return
	}

	constLabels := prometheus.Labels{"service": svcName}

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: constLabels,
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request latency in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
		[]string{"method", "path"},
	)

	chainReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "chain_reads_total",
			Help:        "Total number of contract read calls",
			ConstLabels: constLabels,
		},
		[]string{"method", "status"},
	)

	chainSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "chain_submissions_total",
			Help:        "Total number of approval transactions by outcome",
			ConstLabels: constLabels,
		},
		[]string{"status"},
	)

	oracleRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "oracle_requests_total",
			Help:        "Total number of pull request merge checks",
			ConstLabels: constLabels,
		},
		[]string{"result"},
	)

	agentCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "agent_cycles_total",
			Help:        "Total number of verification cycles",
			ConstLabels: constLabels,
		},
		[]string{"status"},
	)

	agentCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:        "agent_cycle_duration_seconds",
			Help:        "Duration of verification cycles in seconds",
			Buckets:     []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			ConstLabels: constLabels,
		},
	)

	agentMilestones = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "agent_milestones_total",
			Help:        "Total number of milestones evaluated by result",
			ConstLabels: constLabels,
		},
		[]string{"result"},
	)

	agentApprovalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "agent_approvals_total",
			Help:        "Total number of approval submissions by ledger status",
			ConstLabels: constLabels,
		},
		[]string{"status"},
	)

	// Note: Go runtime metrics (goroutines, memory, GC) are automatically
	// collected by prometheus/client_golang - no custom collector needed
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	if !enabled {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
	}
	return promhttp.Handler()
}

// Enabled returns whether metrics are enabled.
func Enabled() bool {
	return enabled
}

// ServiceName returns the configured service name.
func ServiceName() string {
	return serviceName
}
