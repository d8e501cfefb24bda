// Package pipeline drives the phased cache-busting run: scan the build
// tree, rewrite assets class by class in reference-dependency order, then
// finalize everything left over into the output tree.
package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/assetrev/internal/assets"
	"git.home.luguber.info/inful/assetrev/internal/metrics"
	"git.home.luguber.info/inful/assetrev/internal/observability"
	"git.home.luguber.info/inful/assetrev/internal/rewrite"
)

// PhaseName identifies one pass over the registry.
type PhaseName string

const (
	PhaseBinaries    PhaseName = "binaries"
	PhaseSVG         PhaseName = "svg"
	PhaseScripts     PhaseName = "scripts"
	PhaseStylesheets PhaseName = "stylesheets"
	PhaseDocuments   PhaseName = "documents"
	PhaseFinalize    PhaseName = "finalize"
)

// Options configures a pipeline run.
type Options struct {
	// InputDir is the already-built site tree to process.
	InputDir string
	// OutputDir is the destination tree for hashed output.
	OutputDir string
	// Concurrency bounds per-phase task fan-out; 0 means GOMAXPROCS.
	Concurrency int
	// Minify controls JavaScript minification of rewritten scripts.
	Minify bool
	// Recorder receives run metrics; nil means no metrics.
	Recorder metrics.Recorder
}

// Pipeline runs the full scan/rewrite/finalize sequence over one build tree.
type Pipeline struct {
	opts Options
	rec  metrics.Recorder
}

// phase couples an asset kind with its rewrite strategy. The phase slice in
// Run is the complete, ordered set: each class runs only after every class
// it may reference has final hashes.
type phase struct {
	name PhaseName
	kind assets.Kind
	fn   rewrite.Func
}

// New constructs a pipeline, applying option defaults.
func New(opts Options) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}
	rec := opts.Recorder
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Pipeline{opts: opts, rec: rec}
}

// Run executes the pipeline. The only fatal error is a failed scan of the
// input tree; every later failure is per-asset, logged, and collected in the
// returned report.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	runID := uuid.NewString()
	ctx = observability.WithRunID(ctx, runID)

	reg, err := assets.Scan(p.opts.InputDir)
	if err != nil {
		return nil, err
	}

	report := newReport(runID)
	report.Assets = reg.Len()
	p.rec.SetPhaseConcurrency(p.opts.Concurrency)
	observability.InfoContext(ctx, "Starting asset pipeline",
		slog.String("input", p.opts.InputDir),
		slog.String("output", p.opts.OutputDir),
		slog.Int("assets", reg.Len()),
		slog.Int("concurrency", p.opts.Concurrency))

	document := rewrite.Document()
	phases := []phase{
		{PhaseBinaries, assets.KindBinary, rewrite.Binary},
		{PhaseSVG, assets.KindSVG, document},
		{PhaseScripts, assets.KindScript, rewrite.JavaScript(rewrite.NewMinifier(), p.opts.Minify)},
		{PhaseStylesheets, assets.KindStylesheet, rewrite.CSS},
		{PhaseDocuments, assets.KindDocument, document},
	}
	for _, ph := range phases {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		p.runPhase(ctx, reg, ph, report)
	}

	if err := p.finalize(ctx, reg, report); err != nil {
		return report, err
	}

	report.End = time.Now()
	p.rec.ObserveRunDuration(report.Duration())
	outcome := "success"
	if report.Failed() {
		outcome = "failed"
	}
	p.rec.IncRunOutcome(outcome)
	observability.InfoContext(ctx, "Asset pipeline complete",
		slog.Int("rewritten", report.Rewritten),
		slog.Int("copied", report.Copied),
		slog.Int("failed", len(report.Failures)),
		slog.Duration("duration", report.Duration()))
	return report, nil
}

// runPhase selects all entries of the phase's kind, fans the rewriter out
// over them, and merges the surviving updates into the registry once every
// task has settled. References are resolved against a snapshot taken here,
// so a phase never observes hashes produced by its own siblings.
func (p *Pipeline) runPhase(ctx context.Context, reg *assets.Registry, ph phase, report *Report) {
	ctx = observability.WithPhase(ctx, string(ph.name))
	start := time.Now()

	var keys []string
	for _, key := range reg.ByKind(ph.kind) {
		// Unhashable assets keep their filename; outside the document
		// phase they carry no references either, so the finalizer copies
		// them untouched.
		if ph.kind != assets.KindDocument && assets.Unhashable(key) {
			continue
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		report.PhaseDurations[ph.name] = time.Since(start)
		return
	}

	resolver := rewrite.NewResolver(reg)
	results := runTasks(keys, p.opts.Concurrency, func(key string) (assets.Update, error) {
		a := rewrite.Asset{
			Key:      key,
			Source:   filepath.Join(p.opts.InputDir, filepath.FromSlash(key)),
			DestRoot: p.opts.OutputDir,
		}
		return ph.fn(ctx, a, resolver)
	})

	for i, r := range results {
		if r.err != nil {
			report.addFailure(ph.name, keys[i], r.err)
			p.rec.IncAssetResult(string(ph.name), metrics.ResultFailed)
			observability.ErrorContext(ctx, "Asset processing failed",
				slog.String("asset", keys[i]),
				slog.Any("error", r.err))
			continue
		}
		if err := reg.Apply(r.update); err != nil {
			report.addFailure(ph.name, keys[i], err)
			p.rec.IncAssetResult(string(ph.name), metrics.ResultFailed)
			observability.ErrorContext(ctx, "Registry update failed",
				slog.String("asset", keys[i]),
				slog.Any("error", err))
			continue
		}
		report.addSuccess(ph.name)
		p.rec.IncAssetResult(string(ph.name), metrics.ResultRewritten)
		observability.DebugContext(ctx, "Asset processed",
			slog.String("asset", keys[i]),
			slog.String("hashed", r.update.HashedPath))
	}

	d := time.Since(start)
	report.PhaseDurations[ph.name] = d
	p.rec.ObservePhaseDuration(string(ph.name), d)
	observability.InfoContext(ctx, "Phase complete",
		slog.Int("assets", len(keys)),
		slog.Duration("duration", d))
}
