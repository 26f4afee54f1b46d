package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"steadydb/internal/runner"
)

const namespace = "steadydb"

// Recorder exports query outcomes as Prometheus metrics. It is a
// runner.Observer.
type Recorder struct {
	registry *prometheus.Registry

	queries *prometheus.CounterVec
	latency prometheus.Histogram
	workers prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Number of query attempts by result.",
			},
			[]string{"result"},
		),
		latency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_latency_seconds",
				Help:      "Latency of successful queries.",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 16),
			},
		),
		workers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "workers",
				Help:      "Number of workers of the active run.",
			},
		),
	}
	r.registry.MustRegister(r.queries, r.latency, r.workers)
	return r
}

func (r *Recorder) Observe(o runner.QueryOutcome) {
	if !o.Success {
		r.queries.WithLabelValues("failure").Inc()
		return
	}
	r.queries.WithLabelValues("success").Inc()
	r.latency.Observe(o.Latency.Seconds())
}

func (r *Recorder) SetWorkers(n int) {
	r.workers.Set(float64(n))
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, addr string, log logrus.FieldLogger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server failed")
		}
	}()
	log.WithField("addr", addr).Info("serving metrics")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("metrics server shutdown")
		}
	}()
}
