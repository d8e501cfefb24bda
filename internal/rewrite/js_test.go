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

func TestRewriteScriptReplacesLiteral(t *testing.T) {
	reg := hashedRegistry(t, "styles/app.css")
	entry, _ := reg.Get("styles/app.css")
	res := NewResolver(reg)

	out, err := RewriteScript([]byte(`const stylesheet = "/styles/app.css"; loadStyles(stylesheet);`), res)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"/`+entry.HashedPath+`"`)
	assert.NotContains(t, string(out), `"/styles/app.css"`)
}

func TestRewriteScriptKeepsQuoteStyle(t *testing.T) {
	reg := hashedRegistry(t, "images/logo.png")
	entry, _ := reg.Get("images/logo.png")
	res := NewResolver(reg)

	out, err := RewriteScript([]byte(`const logo = '/images/logo.png';`), res)
	require.NoError(t, err)
	assert.Contains(t, string(out), `'/`+entry.HashedPath+`'`)
}

func TestRewriteScriptLeavesOtherLiterals(t *testing.T) {
	res := NewResolver(hashedRegistry(t, "images/logo.png"))

	out, err := RewriteScript([]byte(`const msg = "hello"; const ext = "https://example.com/images/logo.png";`), res)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"hello"`)
	assert.Contains(t, string(out), `"https://example.com/images/logo.png"`)
}

func TestRewriteScriptParseError(t *testing.T) {
	res := NewResolver(assets.NewRegistry())
	_, err := RewriteScript([]byte(`const broken = {;`), res)
	assert.Error(t, err)
}

func TestJavaScriptRewriterMinifiesAndHashes(t *testing.T) {
	input := t.TempDir()
	output := t.TempDir()
	writeTestFile(t, input, "app.js",
		"const stylesheet = \"/styles/app.css\";\nconsole.log( stylesheet );\n")

	reg := hashedRegistry(t, "styles/app.css")
	sheet, _ := reg.Get("styles/app.css")

	fn := JavaScript(NewMinifier(), true)
	update, err := fn(context.Background(), Asset{
		Key:      "app.js",
		Source:   filepath.Join(input, "app.js"),
		DestRoot: output,
	}, NewResolver(reg))
	require.NoError(t, err)
	require.True(t, update.Written)

	written, err := os.ReadFile(filepath.Join(output, filepath.FromSlash(update.HashedPath)))
	require.NoError(t, err)
	assert.Contains(t, string(written), sheet.HashedPath)
	// Hash covers the minified bytes.
	assert.Equal(t, assets.HashBytes(written), update.ContentHash)
	assert.Equal(t, assets.DerivePath("app.js", update.ContentHash), update.HashedPath)
	// Minified output is no longer the pretty source.
	assert.Less(t, len(written), len("const stylesheet = \"/styles/app.css\";\nconsole.log( stylesheet );\n")+len(sheet.HashedPath))
}

func TestJavaScriptRewriterFailsOnBrokenSource(t *testing.T) {
	input := t.TempDir()
	output := t.TempDir()
	writeTestFile(t, input, "broken.js", "function ( {")

	fn := JavaScript(NewMinifier(), true)
	_, err := fn(context.Background(), Asset{
		Key:      "broken.js",
		Source:   filepath.Join(input, "broken.js"),
		DestRoot: output,
	}, NewResolver(assets.NewRegistry()))
	require.Error(t, err)

	// Nothing was written for the failed asset.
	entries, readErr := os.ReadDir(output)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}
