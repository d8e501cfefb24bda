package rewrite

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/assetrev/internal/assets"
)

// Asset identifies one unit of rewrite work handed to a Func by the phase
// runner.
type Asset struct {
	// Key is the registry key (slash-relative path under the build root).
	Key string
	// Source is the absolute path of the asset in the build tree.
	Source string
	// DestRoot is the output tree the rewritten asset is placed under.
	DestRoot string
}

// Func transforms one asset and reports the registry update to merge once
// the phase settles. Implementations write only to their own destination
// path; a returned error is a per-asset failure, never fatal to the phase.
type Func func(ctx context.Context, a Asset, res *Resolver) (assets.Update, error)

// writeOutput places data at the slash-relative path rel under destRoot,
// creating intermediate directories.
func writeOutput(destRoot, rel string, data []byte) error {
	dest := filepath.Join(destRoot, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return fmt.Errorf("create output directory for %s: %w", rel, err)
	}
	// #nosec G306 -- site assets are public content
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return nil
}

// copyOutput copies src into destRoot at the slash-relative path rel.
func copyOutput(src, destRoot, rel string) error {
	srcFile, err := os.Open(filepath.Clean(src))
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer func() {
		_ = srcFile.Close()
	}()

	dest := filepath.Join(destRoot, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return fmt.Errorf("create output directory for %s: %w", rel, err)
	}
	destFile, err := os.Create(filepath.Clean(dest))
	if err != nil {
		return fmt.Errorf("create %s: %w", rel, err)
	}
	defer func() {
		_ = destFile.Close()
	}()

	if _, err := io.Copy(destFile, srcFile); err != nil {
		return fmt.Errorf("copy %s: %w", rel, err)
	}
	return nil
}
