// Package metrics records query pipeline observations in a private Prometheus registry.
// A one-shot CLI has nothing to scrape, so the registry is dumped in textfile-collector
// format on request.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/doeshing/rag-go/internal/domain"
	"github.com/doeshing/rag-go/internal/ports"
)

// Recorder implements ports.Metrics.
type Recorder struct {
	registry *prometheus.Registry

	invocations   *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec
	chunks        prometheus.Counter
}

// NewRecorder builds a recorder with its own registry.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		invocations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rag_invocations_total",
			Help: "Query invocations by outcome (success, empty, or error kind)",
		}, []string{"outcome"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rag_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		stageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rag_stage_errors_total",
			Help: "Pipeline stage failures by stage and error kind",
		}, []string{"stage", "kind"}),
		chunks: factory.NewCounter(prometheus.CounterOpts{
			Name: "rag_stream_chunks_total",
			Help: "Transport chunks read from completion streams",
		}),
	}
}

func (r *Recorder) ObserveStage(stage domain.Stage, elapsed time.Duration, err error) {
	r.stageDuration.WithLabelValues(string(stage)).Observe(elapsed.Seconds())
	if err != nil {
		r.stageErrors.WithLabelValues(string(stage), string(domain.KindOf(err))).Inc()
	}
}

func (r *Recorder) AddChunks(n int) {
	if n > 0 {
		r.chunks.Add(float64(n))
	}
}

func (r *Recorder) ObserveInvocation(outcome string) {
	r.invocations.WithLabelValues(outcome).Inc()
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile atomically writes all metrics to path.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

var _ ports.Metrics = (*Recorder)(nil)
