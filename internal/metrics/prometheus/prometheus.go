package prometheus

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hte-labs/hte-planner/internal/metrics"
)

const prefix = "hte_planner"

// Recorder is the Prometheus implementation of metrics.Recorder.
type Recorder struct {
	jobDuration        *prometheus.HistogramVec
	completionDuration *prometheus.HistogramVec
	registryJobs       *prometheus.GaugeVec
	streamSubscribers  prometheus.Gauge
}

var _ metrics.Recorder = &Recorder{}

// NewRecorder returns a new Prometheus recorder registered on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: prefix,
			Subsystem: "job",
			Name:      "run_duration_seconds",
			Help:      "The duration of plan generation jobs.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}, []string{"outcome"}),

		completionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: prefix,
			Subsystem: "llm",
			Name:      "completion_duration_seconds",
			Help:      "The duration of completion service calls.",
			Buckets:   []float64{.5, 1, 5, 10, 30, 60, 120},
		}, []string{"provider", "success"}),

		registryJobs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: prefix,
			Subsystem: "registry",
			Name:      "jobs",
			Help:      "The number of jobs tracked by the registry.",
		}, []string{"state"}),

		streamSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: prefix,
			Subsystem: "stream",
			Name:      "subscribers",
			Help:      "The number of progress stream subscribers connected.",
		}),
	}

	reg.MustRegister(
		r.jobDuration,
		r.completionDuration,
		r.registryJobs,
		r.streamSubscribers,
	)

	return r
}

func (r Recorder) ObserveJobRun(_ context.Context, outcome string, duration time.Duration) {
	r.jobDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (r Recorder) ObserveCompletion(_ context.Context, provider string, success bool, duration time.Duration) {
	r.completionDuration.WithLabelValues(provider, strconv.FormatBool(success)).Observe(duration.Seconds())
}

func (r Recorder) SetRegistryJobs(_ context.Context, active, retained int) {
	r.registryJobs.WithLabelValues("active").Set(float64(active))
	r.registryJobs.WithLabelValues("retained").Set(float64(retained))
}

func (r Recorder) AddStreamSubscribers(_ context.Context, quantity int) {
	r.streamSubscribers.Add(float64(quantity))
}
