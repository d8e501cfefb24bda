package rewrite

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tdewolff/minify/v2"
	minjs "github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"

	"git.home.luguber.info/inful/assetrev/internal/assets"
)

const jsMediaType = "application/javascript"

// NewMinifier returns a minifier configured for JavaScript output.
func NewMinifier() *minify.M {
	m := minify.New()
	m.AddFuncRegexp(regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$"), minjs.Minify)
	return m
}

// JavaScript returns the rewriter for script assets. The source is parsed
// into an AST, every resolvable string literal is mutated in place, the tree
// is reprinted and then minified; the content hash is computed over the
// minified bytes. A minify failure leaves the asset unwritten and surfaces
// as a per-asset error.
func JavaScript(m *minify.M, minifyOutput bool) Func {
	return func(ctx context.Context, a Asset, res *Resolver) (assets.Update, error) {
		if err := ctx.Err(); err != nil {
			return assets.Update{}, err
		}
		data, err := os.ReadFile(filepath.Clean(a.Source))
		if err != nil {
			return assets.Update{}, fmt.Errorf("read %s: %w", a.Key, err)
		}
		out, err := RewriteScript(data, res)
		if err != nil {
			return assets.Update{}, fmt.Errorf("parse script %s: %w", a.Key, err)
		}
		if minifyOutput {
			out, err = m.Bytes(jsMediaType, out)
			if err != nil {
				return assets.Update{}, fmt.Errorf("minify %s: %w", a.Key, err)
			}
		}
		digest := assets.HashBytes(out)
		hashed := assets.DerivePath(a.Key, digest)
		if err := writeOutput(a.DestRoot, hashed, out); err != nil {
			return assets.Update{}, err
		}
		return assets.Update{
			Path:        a.Key,
			ContentHash: digest,
			HashedPath:  hashed,
			Written:     true,
		}, nil
	}
}

// RewriteScript parses JavaScript source, substitutes resolvable string
// literals structurally and reprints the whole tree. Rewriting the AST
// instead of splicing source text avoids any offset bookkeeping across
// replacements.
func RewriteScript(src []byte, res *Resolver) ([]byte, error) {
	ast, err := js.Parse(parse.NewInputBytes(src), js.Options{})
	if err != nil {
		return nil, err
	}
	js.Walk(&literalVisitor{res: res}, ast)
	var buf bytes.Buffer
	ast.JS(&buf)
	return buf.Bytes(), nil
}

// literalVisitor substitutes string-literal nodes whose value resolves to a
// hashed path, keeping the literal's original quote character.
type literalVisitor struct {
	res *Resolver
}

func (v *literalVisitor) Enter(n js.INode) js.IVisitor {
	lit, ok := n.(*js.LiteralExpr)
	if !ok || lit.TokenType != js.StringToken || len(lit.Data) < 2 {
		return v
	}
	quote := lit.Data[0]
	value := string(lit.Data[1 : len(lit.Data)-1])
	// Literals containing escapes or quotes are never plain asset paths.
	if strings.ContainsAny(value, "\\\"'") {
		return v
	}
	resolved, ok := v.res.Resolve(value)
	if !ok {
		return v
	}
	data := make([]byte, 0, len(resolved)+2)
	data = append(data, quote)
	data = append(data, resolved...)
	data = append(data, quote)
	lit.Data = data
	return v
}

func (v *literalVisitor) Exit(js.INode) {}
