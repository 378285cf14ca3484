// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector of the service.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	OrdersCreated     prometheus.Counter
	OrderTransitions  *prometheus.CounterVec
	OrderLineChanges  *prometheus.CounterVec
	SimulationsTotal  prometheus.Counter
	SimulationMisses  prometheus.Counter
	JobsLaunched      *prometheus.CounterVec
	JobsFinished      *prometheus.CounterVec
	JobsRunning       prometheus.Gauge
	JobStepDuration   *prometheus.HistogramVec
	JobLaunchRejected *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers all collectors on reg using prefix for metric names.
// Tests pass a fresh prometheus.NewRegistry() so repeated construction is safe.
func New(reg *prometheus.Registry, prefix string) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		OrdersCreated: f.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_orders_created_total",
			Help: "Total number of orders created",
		}),
		OrderTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_order_transitions_total",
			Help: "Order workflow transitions by action and outcome",
		}, []string{"action", "outcome"}),
		OrderLineChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_order_line_changes_total",
			Help: "Order line writes that triggered a total recompute",
		}, []string{"operation"}),
		SimulationsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_simulations_total",
			Help: "Total number of pricing simulations",
		}),
		SimulationMisses: f.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_simulation_item_errors_total",
			Help: "Simulation items that could not be priced",
		}),
		JobsLaunched: f.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_jobs_launched_total",
			Help: "Jobs launched by type",
		}, []string{"type"}),
		JobsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_jobs_finished_total",
			Help: "Jobs finished by type and terminal status",
		}, []string{"type", "status"}),
		JobsRunning: f.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "_jobs_running",
			Help: "Jobs currently executing",
		}),
		JobStepDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    prefix + "_job_step_duration_seconds",
			Help:    "Duration of individual job steps",
			Buckets: prometheus.DefBuckets,
		}, []string{"type"}),
		JobLaunchRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_job_launch_rejected_total",
			Help: "Job launches rejected by reason",
		}, []string{"reason"}),
		gatherer: reg,
	}
}

// NewNop returns collectors bound to a private registry.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry(), "test")
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
