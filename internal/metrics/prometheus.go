// Package metrics exposes classification activity to Prometheus.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Veraticus/tally/internal/model"
)

const namespace = "tally"

// Collector records engine observations on its own registry.
type Collector struct {
	registry        *prometheus.Registry
	classifications *prometheus.CounterVec
	batchDuration   prometheus.Histogram
	batchSize       prometheus.Histogram
	cacheLookups    *prometheus.CounterVec
	logger          *slog.Logger
}

// NewCollector creates a collector with a fresh registry.
func NewCollector(logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Transactions classified, by outcome and reason",
		}, []string{"result", "reason"}),
		batchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Time taken to classify a batch",
			Buckets:   prometheus.DefBuckets,
		}),
		batchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of transactions per classified batch",
			Buckets:   []float64{1, 10, 50, 100, 500, 1000, 5000},
		}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_cache_lookups_total",
			Help:      "Rule cache lookups by outcome",
		}, []string{"outcome"}),
		logger: logger,
	}
}

// ObserveClassification implements engine.MetricsRecorder.
func (c *Collector) ObserveClassification(result model.Result) {
	outcome := "unclassified"
	reason := result.Reason
	if result.IsClassified {
		outcome = "classified"
		reason = ""
	}
	c.classifications.WithLabelValues(outcome, reason).Inc()
}

// ObserveBatch implements engine.MetricsRecorder.
func (c *Collector) ObserveBatch(duration time.Duration, total int) {
	c.batchDuration.Observe(duration.Seconds())
	c.batchSize.Observe(float64(total))
}

// ObserveCacheLookup implements engine.MetricsRecorder.
func (c *Collector) ObserveCacheLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	c.cacheLookups.WithLabelValues(outcome).Inc()
}

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// StartServer serves /metrics on addr in the background.
func (c *Collector) StartServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		c.logger.Info("Starting metrics server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("Metrics server failed", "error", err)
		}
	}()

	return server
}

// Shutdown stops a server started by StartServer.
func (c *Collector) Shutdown(ctx context.Context, server *http.Server) error {
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}
