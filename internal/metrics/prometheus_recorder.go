package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once             sync.Once
	phaseDuration    *prom.HistogramVec
	runDuration      prom.Histogram
	assetResults     *prom.CounterVec
	runOutcome       *prom.CounterVec
	phaseConcurrency prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.phaseDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "assetrev",
			Name:      "phase_duration_seconds",
			Help:      "Duration of individual rewrite phases",
			Buckets:   prom.DefBuckets,
		}, []string{"phase"})
		pr.runDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "assetrev",
			Name:      "run_duration_seconds",
			Help:      "Total pipeline run duration",
			Buckets:   prom.DefBuckets,
		})
		pr.assetResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "assetrev",
			Name:      "asset_results_total",
			Help:      "Per-asset outcomes by phase and result",
		}, []string{"phase", "result"})
		pr.runOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "assetrev",
			Name:      "run_outcomes_total",
			Help:      "Run outcomes by final status",
		}, []string{"outcome"})
		pr.phaseConcurrency = prom.NewGauge(prom.GaugeOpts{
			Namespace: "assetrev",
			Name:      "phase_concurrency",
			Help:      "Configured per-phase task concurrency for the last run",
		})
		reg.MustRegister(pr.phaseDuration, pr.runDuration, pr.assetResults, pr.runOutcome, pr.phaseConcurrency)
	})
	return pr
}

func (p *PrometheusRecorder) ObservePhaseDuration(phase string, d time.Duration) {
	if p == nil || p.phaseDuration == nil {
		return
	}
	p.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil || p.runDuration == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncAssetResult(phase string, result ResultLabel) {
	if p == nil || p.assetResults == nil {
		return
	}
	p.assetResults.WithLabelValues(phase, string(result)).Inc()
}

func (p *PrometheusRecorder) IncRunOutcome(outcome string) {
	if p == nil || p.runOutcome == nil {
		return
	}
	p.runOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) SetPhaseConcurrency(n int) {
	if p == nil || p.phaseConcurrency == nil {
		return
	}
	p.phaseConcurrency.Set(float64(n))
}
