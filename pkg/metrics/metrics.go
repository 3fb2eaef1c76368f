// Package metrics registers the Prometheus collectors of the engine and serves them.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sweep outcomes
const (
	OutcomeMaterialized = "materialized"
	OutcomeDuplicate    = "duplicate"
	OutcomeFailed       = "failed"
)

// Metrics groups the collectors shared by the sweep, the projector service and the HTTP layer
type Metrics struct {
	registry *prometheus.Registry

	SweepRules        *prometheus.CounterVec
	SweepDuration     prometheus.Histogram
	ProjectionLatency prometheus.Histogram
	ProjectionAlerts  *prometheus.CounterVec
	CacheLookups      *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
}

// New creates the collectors and registers them on a dedicated registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SweepRules: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "couple_finance",
			Subsystem: "recurring",
			Name:      "sweep_rules_total",
			Help:      "Due rules processed by the sweep, by outcome.",
		}, []string{"outcome"}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "couple_finance",
			Subsystem: "recurring",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of a single group sweep.",
			Buckets:   prometheus.DefBuckets,
		}),
		ProjectionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "couple_finance",
			Subsystem: "forecast",
			Name:      "projection_duration_seconds",
			Help:      "Time spent loading sources and projecting the horizon.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		ProjectionAlerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "couple_finance",
			Subsystem: "forecast",
			Name:      "alerts_total",
			Help:      "Alerts raised by computed projections, by kind.",
		}, []string{"kind"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "couple_finance",
			Subsystem: "forecast",
			Name:      "cache_lookups_total",
			Help:      "Projection cache lookups, by result.",
		}, []string{"result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "couple_finance",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests, by route and status code.",
		}, []string{"route", "code"}),
	}

	m.registry.MustRegister(
		m.SweepRules,
		m.SweepDuration,
		m.ProjectionLatency,
		m.ProjectionAlerts,
		m.CacheLookups,
		m.HTTPRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the scrape handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve runs the metrics server until ctx is cancelled
func (m *Metrics) Serve(ctx context.Context, port int, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics server listening", slog.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server failed: %w", err)
	}
	return nil
}
