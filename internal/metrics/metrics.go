// Package metrics exposes pipeline counters and stage timings to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "factsift_stage_duration_seconds",
			Help:    "Per-claim pipeline stage duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	ClaimOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "factsift_claims_total",
			Help: "Processed claims by outcome",
		},
		[]string{"outcome"},
	)

	FetchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "factsift_fetch_failures_total",
			Help: "Failed page fetches by kind and failure class",
		},
		[]string{"kind", "class"},
	)

	FilterRelaxations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "factsift_filter_relaxations_total",
			Help: "Claims whose strict filter returned nothing and were retried relaxed",
		},
	)

	CorpusBytesEstimated = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "factsift_corpus_bytes_estimated",
			Help:    "Dry-run scan estimate per corpus query",
			Buckets: prometheus.ExponentialBuckets(1<<20, 4, 12),
		},
	)

	ChunksIndexed = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "factsift_chunks_indexed",
			Help:    "Unique chunks indexed per claim",
			Buckets: []float64{0, 10, 50, 100, 250, 500, 1000, 2500},
		},
	)
)

var registerOnce sync.Once

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(StageDuration)
		prometheus.MustRegister(ClaimOutcomes)
		prometheus.MustRegister(FetchFailures)
		prometheus.MustRegister(FilterRelaxations)
		prometheus.MustRegister(CorpusBytesEstimated)
		prometheus.MustRegister(ChunksIndexed)
	})
}

// ObserveStage records how long a stage took, measured from start
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Serve exposes /metrics on addr until ctx is cancelled
func Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if logger != nil {
		logger.Info("metrics listener started", zap.String("addr", addr))
	}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
