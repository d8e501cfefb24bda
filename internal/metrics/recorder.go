// Package metrics defines the observability hooks for pipeline runs.
//
// Components receive a Recorder by injection and default to NoopRecorder,
// so metrics can be enabled by swapping in the Prometheus implementation
// without touching call sites.
package metrics

import "time"

// ResultLabel enumerates per-asset outcome categories for counters.
type ResultLabel string

const (
	ResultRewritten ResultLabel = "rewritten"
	ResultCopied    ResultLabel = "copied"
	ResultFailed    ResultLabel = "failed"
)

// Recorder defines observability hooks for run and phase metrics.
// Implementations may forward to Prometheus, OpenTelemetry, etc.
type Recorder interface {
	ObservePhaseDuration(phase string, d time.Duration)
	ObserveRunDuration(d time.Duration)
	IncAssetResult(phase string, result ResultLabel)
	IncRunOutcome(outcome string) // outcome: success|failed
	SetPhaseConcurrency(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not
// configured).
type NoopRecorder struct{}

func (NoopRecorder) ObservePhaseDuration(string, time.Duration) {}
func (NoopRecorder) ObserveRunDuration(time.Duration)           {}
func (NoopRecorder) IncAssetResult(string, ResultLabel)         {}
func (NoopRecorder) IncRunOutcome(string)                       {}
func (NoopRecorder) SetPhaseConcurrency(int)                    {}
