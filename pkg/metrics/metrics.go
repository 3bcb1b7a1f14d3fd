// Package metrics exposes Prometheus collectors for tool invocations and the
// remote calls they make.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mcp_servicenow"

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the service collectors on a private registry so that several
// servers can coexist in one process (tests) without duplicate registration.
type Metrics struct {
	registry *prometheus.Registry

	toolInvocations    *prometheus.CounterVec
	toolDuration       *prometheus.HistogramVec
	remoteRequests     *prometheus.CounterVec
	remoteDuration     *prometheus.HistogramVec
	generativeRequests *prometheus.CounterVec
	inFlight           prometheus.Gauge
	configReloads      *prometheus.CounterVec
}

// New creates and registers all collectors
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		toolInvocations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_invocations_total",
			Help:      "Total number of tool invocations by tool and outcome",
		}, []string{"tool", "outcome"}),
		toolDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_duration_seconds",
			Help:      "Tool invocation latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		remoteRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_requests_total",
			Help:      "Total number of ServiceNow Table API requests",
		}, []string{"method", "collection", "status"}),
		remoteDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_request_duration_seconds",
			Help:      "ServiceNow Table API request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "collection"}),
		generativeRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generative_requests_total",
			Help:      "Total number of generative completion requests",
		}, []string{"outcome"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tool_invocations_in_flight",
			Help:      "Tool invocations currently executing",
		}),
		configReloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_reloads_total",
			Help:      "Environment file reloads by outcome",
		}, []string{"outcome"}),
	}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ToolStarted marks an invocation as in flight and returns a completion callback
func (m *Metrics) ToolStarted(tool string) func(err error) {
	m.inFlight.Inc()
	timer := prometheus.NewTimer(m.toolDuration.WithLabelValues(tool))

	return func(err error) {
		timer.ObserveDuration()
		m.inFlight.Dec()
		m.toolInvocations.WithLabelValues(tool, outcome(err)).Inc()
	}
}

// ObserveRemote records a ServiceNow request. status is 0 when no response arrived.
func (m *Metrics) ObserveRemote(method, collection string, status int, duration time.Duration) {
	m.remoteRequests.WithLabelValues(method, collection, statusLabel(status)).Inc()
	m.remoteDuration.WithLabelValues(method, collection).Observe(duration.Seconds())
}

// ObserveGeneration records a generative completion request
func (m *Metrics) ObserveGeneration(err error) {
	m.generativeRequests.WithLabelValues(outcome(err)).Inc()
}

// ObserveReload records an environment file reload
func (m *Metrics) ObserveReload(err error) {
	m.configReloads.WithLabelValues(outcome(err)).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on addr until ctx is cancelled
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

func statusLabel(status int) string {
	if status == 0 {
		return "error"
	}
	return strconv.Itoa(status)
}
