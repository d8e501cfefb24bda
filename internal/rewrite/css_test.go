package rewrite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetrev/internal/assets"
)

func TestRewriteStyleURLsUnquoted(t *testing.T) {
	reg := hashedRegistry(t, "images/logo.png")
	entry, _ := reg.Get("images/logo.png")
	res := NewResolver(reg)

	out, err := RewriteStyleURLs([]byte("body { background: url(/images/logo.png); }"), res)
	require.NoError(t, err)
	assert.Equal(t, `body { background: url("/`+entry.HashedPath+`"); }`, string(out))
}

func TestRewriteStyleURLsQuoted(t *testing.T) {
	reg := hashedRegistry(t, "images/logo.png")
	entry, _ := reg.Get("images/logo.png")
	res := NewResolver(reg)

	out, err := RewriteStyleURLs([]byte(`div { background-image: url("/images/logo.png"); }`), res)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"/`+entry.HashedPath+`"`)

	out, err = RewriteStyleURLs([]byte(`div { background-image: url('/images/logo.png'); }`), res)
	require.NoError(t, err)
	assert.Contains(t, string(out), `'/`+entry.HashedPath+`'`)
}

func TestRewriteStyleURLsLeavesUnresolvable(t *testing.T) {
	res := NewResolver(hashedRegistry(t, "images/logo.png"))

	src := `a { background: url(https://example.com/x.png); }
b { background: url(/images/unknown.png); }
c { color: red; }`
	out, err := RewriteStyleURLs([]byte(src), res)
	require.NoError(t, err)
	assert.Equal(t, src, string(out))
}

func TestRewriteStyleURLsPreservesQuery(t *testing.T) {
	reg := hashedRegistry(t, "fonts/inter.woff2")
	entry, _ := reg.Get("fonts/inter.woff2")
	res := NewResolver(reg)

	out, err := RewriteStyleURLs([]byte(`@font-face { src: url(/fonts/inter.woff2?v=3#iefix); }`), res)
	require.NoError(t, err)
	assert.Contains(t, string(out), "/"+entry.HashedPath+"?v=3#iefix")
}

func TestCSSRewriterWritesHashedOutput(t *testing.T) {
	input := t.TempDir()
	output := t.TempDir()
	writeTestFile(t, input, "styles/app.css", "body { background: url(/images/logo.png); }")

	reg := hashedRegistry(t, "images/logo.png")
	logo, _ := reg.Get("images/logo.png")

	update, err := CSS(context.Background(), Asset{
		Key:      "styles/app.css",
		Source:   filepath.Join(input, "styles", "app.css"),
		DestRoot: output,
	}, NewResolver(reg))
	require.NoError(t, err)

	assert.Equal(t, "styles/app.css", update.Path)
	assert.True(t, update.Written)
	assert.Equal(t, assets.DerivePath("styles/app.css", update.ContentHash), update.HashedPath)

	written, err := os.ReadFile(filepath.Join(output, filepath.FromSlash(update.HashedPath)))
	require.NoError(t, err)
	assert.Contains(t, string(written), logo.HashedPath)
	// The hash covers the transformed bytes, not the source.
	assert.Equal(t, assets.HashBytes(written), update.ContentHash)
}

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
