package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetrev/internal/assets"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// siteFixture is a small build tree exercising every asset class and the
// unhashable exemptions.
func siteFixture() map[string]string {
	return map[string]string{
		"images/logo.png":   "png-bytes",
		"fonts/inter.woff2": "font-bytes",
		"icons/menu.svg":    `<svg viewBox="0 0 10 10"><image xlink:href="/images/logo.png"/></svg>`,
		"app.js":            `const stylesheet = "/styles/app.css"; loadStyles(stylesheet);`,
		"styles/app.css":    "body { background: url(/images/logo.png); }",
		"index.html": `<html><head>
<link rel="stylesheet" href="/styles/app.css">
<link href="/robots.txt">
<script src="/app.js"></script>
</head><body><img src="/images/logo.png?v=2#main"></body></html>`,
		"robots.txt": "User-agent: *\n",
		"pages.json": `{"pages":[]}`,
		"CNAME":      "example.com\n",
	}
}

// listFiles returns all files under root as sorted slash-relative paths.
func listFiles(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	require.NoError(t, err)
	return out
}

// findHashed locates the single output file matching <dir>/<base>.<hash8><ext>.
func findHashed(t *testing.T, files []string, prefix, ext string) string {
	t.Helper()
	var matches []string
	for _, f := range files {
		if strings.HasPrefix(f, prefix+".") && strings.HasSuffix(f, ext) && f != prefix+ext {
			matches = append(matches, f)
		}
	}
	require.Len(t, matches, 1, "expected one hashed output for %s*%s, got %v", prefix, ext, matches)
	return matches[0]
}

func runFixture(t *testing.T, files map[string]string) (string, *Report) {
	t.Helper()
	input := t.TempDir()
	output := t.TempDir()
	writeTree(t, input, files)

	p := New(Options{InputDir: input, OutputDir: output, Minify: true})
	report, err := p.Run(context.Background())
	require.NoError(t, err)
	return output, report
}

func TestPipelineEndToEnd(t *testing.T) {
	output, report := runFixture(t, siteFixture())
	files := listFiles(t, output)

	assert.Equal(t, 9, report.Assets)
	assert.Empty(t, report.Failures)

	// Binary assets are copied verbatim under hashed names.
	logoDigest := assets.HashBytes([]byte("png-bytes"))
	logoHashed := assets.DerivePath("images/logo.png", logoDigest)
	assert.Contains(t, files, logoHashed)
	logoBytes, err := os.ReadFile(filepath.Join(output, filepath.FromSlash(logoHashed)))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(logoBytes))

	// CSS references the binary's final hashed path.
	cssOut := findHashed(t, files, "styles/app", ".css")
	cssBytes, err := os.ReadFile(filepath.Join(output, filepath.FromSlash(cssOut)))
	require.NoError(t, err)
	assert.Contains(t, string(cssBytes), logoHashed)

	// JS literal points at the CSS asset's hashed path, minified.
	jsOut := findHashed(t, files, "app", ".js")
	jsBytes, err := os.ReadFile(filepath.Join(output, filepath.FromSlash(jsOut)))
	require.NoError(t, err)
	assert.Contains(t, string(jsBytes), strings.TrimSuffix(cssOut, ".css"))

	// SVG rewritten and hashed.
	svgOut := findHashed(t, files, "icons/menu", ".svg")
	svgBytes, err := os.ReadFile(filepath.Join(output, filepath.FromSlash(svgOut)))
	require.NoError(t, err)
	assert.Contains(t, string(svgBytes), logoHashed)
	assert.Contains(t, string(svgBytes), `viewBox="0 0 10 10"`)

	// HTML stays at its original path with rewritten references.
	htmlBytes, err := os.ReadFile(filepath.Join(output, "index.html"))
	require.NoError(t, err)
	html := string(htmlBytes)
	assert.Contains(t, files, "index.html")
	assert.Contains(t, html, cssOut)
	assert.Contains(t, html, jsOut)
	assert.Contains(t, html, logoHashed+"?v=2#main")
	assert.Contains(t, html, `href="/robots.txt"`)

	// Unhashable and unclassified files keep their exact names and bytes.
	for _, name := range []string{"robots.txt", "pages.json", "CNAME"} {
		assert.Contains(t, files, name)
		got, err := os.ReadFile(filepath.Join(output, name))
		require.NoError(t, err)
		assert.Equal(t, siteFixture()[name], string(got))
	}

	// Everything is accounted for exactly once.
	assert.Equal(t, report.Assets, report.Rewritten+report.Copied)
}

func TestPipelineDeterministic(t *testing.T) {
	outA, _ := runFixture(t, siteFixture())
	outB, _ := runFixture(t, siteFixture())

	filesA := listFiles(t, outA)
	filesB := listFiles(t, outB)
	require.Equal(t, filesA, filesB)

	for _, f := range filesA {
		a, err := os.ReadFile(filepath.Join(outA, filepath.FromSlash(f)))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(outB, filepath.FromSlash(f)))
		require.NoError(t, err)
		assert.Equal(t, a, b, f)
	}
}

func TestPipelineRerunIntoSameOutput(t *testing.T) {
	input := t.TempDir()
	output := t.TempDir()
	writeTree(t, input, siteFixture())

	p := New(Options{InputDir: input, OutputDir: output, Minify: true})
	first, err := p.Run(context.Background())
	require.NoError(t, err)
	require.False(t, first.Failed())
	filesAfterFirst := listFiles(t, output)

	// A second run over the same trees succeeds; finalize copies are
	// if-absent so nothing already present is overwritten.
	second, err := New(Options{InputDir: input, OutputDir: output, Minify: true}).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, second.Failed())
	assert.Equal(t, filesAfterFirst, listFiles(t, output))
}

func TestPipelinePerAssetFailureDoesNotAbort(t *testing.T) {
	files := siteFixture()
	files["broken.js"] = "function ( {"
	output, report := runFixture(t, files)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, "broken.js", report.Failures[0].Path)
	assert.Equal(t, PhaseScripts, report.Failures[0].Phase)
	assert.True(t, report.Failed())

	// Siblings in the same phase and later phases still completed.
	files2 := listFiles(t, output)
	findHashed(t, files2, "app", ".js")
	assert.Contains(t, files2, "index.html")
}

func TestPipelineScanFailureIsFatal(t *testing.T) {
	p := New(Options{
		InputDir:  filepath.Join(t.TempDir(), "missing"),
		OutputDir: t.TempDir(),
	})
	_, err := p.Run(context.Background())
	require.Error(t, err)
}

func TestPipelinePhaseOrdering(t *testing.T) {
	// A CSS asset referencing a binary always resolves: binaries are
	// final before the stylesheet phase starts.
	output, report := runFixture(t, map[string]string{
		"images/bg.png":   "bg-bytes",
		"styles/site.css": "main { background: url(/images/bg.png); }",
	})
	require.False(t, report.Failed())

	bgHashed := assets.DerivePath("images/bg.png", assets.HashBytes([]byte("bg-bytes")))
	cssOut := findHashed(t, listFiles(t, output), "styles/site", ".css")
	cssBytes, err := os.ReadFile(filepath.Join(output, filepath.FromSlash(cssOut)))
	require.NoError(t, err)
	assert.Contains(t, string(cssBytes), bgHashed)
}

func TestRunTasksSettlesAllKeys(t *testing.T) {
	keys := []string{"a.png", "b.png", "c.png", "d.png", "e.png"}
	results := runTasks(keys, 2, func(key string) (assets.Update, error) {
		if key == "c.png" {
			return assets.Update{}, os.ErrInvalid
		}
		return assets.Update{Path: key, Written: true}, nil
	})
	require.Len(t, results, 5)
	assert.Equal(t, "a.png", results[0].update.Path)
	assert.Error(t, results[2].err)
	assert.Equal(t, "e.png", results[4].update.Path)
	assert.True(t, results[4].update.Written)
}
