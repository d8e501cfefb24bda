package pipeline

import (
	"time"
)

// AssetResult records the outcome for one asset in one phase. Err is nil on
// success.
type AssetResult struct {
	Path  string
	Phase PhaseName
	Err   error
}

// PhaseCount tallies outcomes within one phase.
type PhaseCount struct {
	Rewritten int
	Failed    int
}

// Report aggregates the outcome of one pipeline run: per-phase timings,
// per-asset failures and overall counters. Per-asset failures never abort a
// phase; they are collected here so the caller can decide the exit status.
type Report struct {
	RunID          string
	Start          time.Time
	End            time.Time
	Assets         int
	Rewritten      int
	Copied         int
	PhaseDurations map[PhaseName]time.Duration
	PhaseCounts    map[PhaseName]PhaseCount
	Failures       []AssetResult
}

func newReport(runID string) *Report {
	return &Report{
		RunID:          runID,
		Start:          time.Now(),
		PhaseDurations: make(map[PhaseName]time.Duration),
		PhaseCounts:    make(map[PhaseName]PhaseCount),
	}
}

func (r *Report) addSuccess(phase PhaseName) {
	r.Rewritten++
	pc := r.PhaseCounts[phase]
	pc.Rewritten++
	r.PhaseCounts[phase] = pc
}

func (r *Report) addCopy() {
	r.Copied++
}

func (r *Report) addFailure(phase PhaseName, path string, err error) {
	r.Failures = append(r.Failures, AssetResult{Path: path, Phase: phase, Err: err})
	pc := r.PhaseCounts[phase]
	pc.Failed++
	r.PhaseCounts[phase] = pc
}

// Failed reports whether any asset failed during the run.
func (r *Report) Failed() bool {
	return len(r.Failures) > 0
}

// Duration returns the total wall-clock time of the run.
func (r *Report) Duration() time.Duration {
	return r.End.Sub(r.Start)
}
