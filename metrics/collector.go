package metrics

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/poiesic/recall/pipeline"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "recall"

// ErrRegistererRequired is returned when no registerer is given.
var ErrRegistererRequired = errors.New("prometheus registerer required")

// Collector records pipeline runs.
// It is safe for concurrent use.
type Collector struct {
	runsTotal     prometheus.Counter
	runDuration   prometheus.Histogram
	stagesTotal   *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	stageRemoved  *prometheus.CounterVec
	sourcesPerRun prometheus.Histogram
	noInformation prometheus.Counter
	memoryUsed    prometheus.Counter
	costTotal     prometheus.Counter
	inFlight      prometheus.Gauge
	namespace     string
	logger        *slog.Logger
}

var _ pipeline.Monitor = (*Collector)(nil)

// Option configures a Collector.
type Option func(*Collector) error

// WithNamespace sets the metric namespace.
// Default is DefaultNamespace.
func WithNamespace(namespace string) Option {
	return func(c *Collector) error {
		c.namespace = namespace
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Collector) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger.With("component", "metrics")
		return nil
	}
}

// NewCollector creates a collector and registers its metrics on reg.
// Registering a second collector with the same namespace on one registerer
// fails with a prometheus.AlreadyRegisteredError.
func NewCollector(reg prometheus.Registerer, opts ...Option) (*Collector, error) {
	if reg == nil {
		return nil, ErrRegistererRequired
	}

	c := &Collector{
		namespace: DefaultNamespace,
		logger:    slog.Default().With("component", "metrics"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	ns := c.namespace

	c.runsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "runs_total",
		Help:      "Total number of pipeline runs",
	})
	c.runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "run_duration_seconds",
		Help:      "Pipeline run duration in seconds",
		Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})
	c.stagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "stages_total",
		Help:      "Total number of stage executions by outcome",
	}, []string{"stage", "outcome"}) // outcome: ok, skipped, degraded
	c.stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "stage_duration_seconds",
		Help:      "Stage duration in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
	}, []string{"stage"})
	c.stageRemoved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "stage_candidates_removed_total",
		Help:      "Total number of candidates removed by each stage",
	}, []string{"stage"})
	c.sourcesPerRun = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "sources_per_run",
		Help:      "Number of sources returned per run",
		Buckets:   prometheus.LinearBuckets(0, 1, 11),
	})
	c.noInformation = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "no_information_total",
		Help:      "Total number of runs answered with no information",
	})
	c.memoryUsed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "memory_used_total",
		Help:      "Total number of runs that used conversation memory",
	})
	c.costTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "generation_cost_total",
		Help:      "Total generation cost",
	})
	c.inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ns,
		Name:      "runs_in_flight",
		Help:      "Number of pipeline runs in progress",
	})

	if err := c.register(reg); err != nil {
		return nil, err
	}
	return c, nil
}

// register adds every metric to reg. On failure the metrics registered so
// far are removed again.
func (c *Collector) register(reg prometheus.Registerer) error {
	metrics := []prometheus.Collector{
		c.runsTotal, c.runDuration, c.stagesTotal, c.stageDuration, c.stageRemoved,
		c.sourcesPerRun, c.noInformation, c.memoryUsed, c.costTotal, c.inFlight,
	}
	for i, m := range metrics {
		if err := reg.Register(m); err != nil {
			for _, done := range metrics[:i] {
				reg.Unregister(done)
			}
			return fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return nil
}

// Start counts a run as in flight.
func (c *Collector) Start(_, _ string) {
	c.inFlight.Inc()
}

// StageFinished records one stage outcome.
func (c *Collector) StageFinished(runID string, st pipeline.StageStats) {
	outcome := "ok"
	switch {
	case st.Degraded:
		outcome = "degraded"
	case st.Skipped:
		outcome = "skipped"
	}
	c.stagesTotal.WithLabelValues(st.Name, outcome).Inc()

	if st.Skipped {
		return
	}
	c.stageDuration.WithLabelValues(st.Name).Observe(st.Duration.Seconds())
	if removed := st.Reduction(); removed > 0 {
		c.stageRemoved.WithLabelValues(st.Name).Add(float64(removed))
	}
	if st.Degraded {
		c.logger.Debug("recorded degraded stage", "run_id", runID, "stage", st.Name)
	}
}

// Finish records the run result.
func (c *Collector) Finish(_ string, res *pipeline.Result) {
	c.inFlight.Dec()
	c.runsTotal.Inc()
	if res == nil {
		return
	}
	c.runDuration.Observe(res.ProcessingTime.Seconds())
	c.sourcesPerRun.Observe(float64(len(res.Sources)))
	if res.NoInformation {
		c.noInformation.Inc()
	}
	if res.MemoryUsed {
		c.memoryUsed.Inc()
	}
	if res.Cost > 0 {
		c.costTotal.Add(res.Cost)
	}
}
