package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/assetrev/internal/assets"
	"git.home.luguber.info/inful/assetrev/internal/metrics"
	"git.home.luguber.info/inful/assetrev/internal/observability"
)

// finalize copies every registry entry not written by a rewrite phase from
// the build tree to the output tree, at its hashed path when one was
// assigned and its original path otherwise. Copies are if-absent: an
// existing destination file is never overwritten, which keeps reruns into
// the same output tree cheap and preserves the exactly-once write
// guarantee.
func (p *Pipeline) finalize(ctx context.Context, reg *assets.Registry, report *Report) error {
	ctx = observability.WithPhase(ctx, string(PhaseFinalize))
	start := time.Now()

	for _, key := range reg.Unwritten() {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry, ok := reg.Get(key)
		if !ok || entry.Written {
			continue
		}
		dest := entry.Path
		if entry.HashedPath != "" {
			dest = entry.HashedPath
		}
		if err := copyIfAbsent(
			filepath.Join(p.opts.InputDir, filepath.FromSlash(key)),
			filepath.Join(p.opts.OutputDir, filepath.FromSlash(dest)),
		); err != nil {
			report.addFailure(PhaseFinalize, key, err)
			p.rec.IncAssetResult(string(PhaseFinalize), metrics.ResultFailed)
			observability.ErrorContext(ctx, "Finalize copy failed",
				slog.String("asset", key),
				slog.Any("error", err))
			continue
		}
		if err := reg.MarkWritten(key); err != nil {
			report.addFailure(PhaseFinalize, key, err)
			p.rec.IncAssetResult(string(PhaseFinalize), metrics.ResultFailed)
			continue
		}
		report.addCopy()
		p.rec.IncAssetResult(string(PhaseFinalize), metrics.ResultCopied)
	}

	d := time.Since(start)
	report.PhaseDurations[PhaseFinalize] = d
	p.rec.ObservePhaseDuration(string(PhaseFinalize), d)
	observability.InfoContext(ctx, "Finalize complete",
		slog.Int("copied", report.Copied),
		slog.Duration("duration", d))
	return nil
}

// copyIfAbsent copies src to dest unless dest already exists.
func copyIfAbsent(src, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", dest, err)
	}

	srcFile, err := os.Open(filepath.Clean(src))
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer func() {
		_ = srcFile.Close()
	}()

	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return fmt.Errorf("create output directory for %s: %w", dest, err)
	}
	destFile, err := os.Create(filepath.Clean(dest))
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer func() {
		_ = destFile.Close()
	}()

	if _, err := io.Copy(destFile, srcFile); err != nil {
		return fmt.Errorf("copy %s: %w", dest, err)
	}
	return nil
}
