package rewrite

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"

	"git.home.luguber.info/inful/assetrev/internal/assets"
)

// CSS rewrites url() references in a stylesheet, hashes the serialized
// result and writes it at the hashed path.
func CSS(ctx context.Context, a Asset, res *Resolver) (assets.Update, error) {
	if err := ctx.Err(); err != nil {
		return assets.Update{}, err
	}
	data, err := os.ReadFile(filepath.Clean(a.Source))
	if err != nil {
		return assets.Update{}, fmt.Errorf("read %s: %w", a.Key, err)
	}
	out, err := RewriteStyleURLs(data, res)
	if err != nil {
		return assets.Update{}, fmt.Errorf("rewrite stylesheet %s: %w", a.Key, err)
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

// RewriteStyleURLs lexes CSS source and substitutes every resolvable url()
// reference, leaving all other tokens untouched. The CSS lexer emits
// unquoted urls as a single url token and quoted urls as a url( function
// token followed by a string token; both forms are handled. Shared with the
// HTML rewriter for embedded style blocks.
func RewriteStyleURLs(src []byte, res *Resolver) ([]byte, error) {
	lexer := css.NewLexer(parse.NewInputBytes(src))
	var buf bytes.Buffer
	inURLFunc := false
	for {
		tt, text := lexer.Next()
		switch tt {
		case css.ErrorToken:
			if err := lexer.Err(); err != io.EOF {
				return nil, err
			}
			return buf.Bytes(), nil
		case css.URLToken:
			buf.Write(rewriteURLToken(text, res))
		case css.FunctionToken:
			inURLFunc = bytes.EqualFold(text, []byte("url("))
			buf.Write(text)
		case css.StringToken:
			if inURLFunc {
				buf.Write(rewriteQuoted(text, res))
				inURLFunc = false
			} else {
				buf.Write(text)
			}
		case css.WhitespaceToken:
			buf.Write(text)
		default:
			inURLFunc = false
			buf.Write(text)
		}
	}
}

// rewriteURLToken handles a complete url(...) token, preserving the token
// verbatim when no replacement exists.
func rewriteURLToken(tok []byte, res *Resolver) []byte {
	inner := bytes.TrimSpace(tok[4 : len(tok)-1])
	quote := byte(0)
	if len(inner) >= 2 && (inner[0] == '"' || inner[0] == '\'') && inner[len(inner)-1] == inner[0] {
		quote = inner[0]
		inner = inner[1 : len(inner)-1]
	}
	resolved, ok := res.Resolve(string(inner))
	if !ok {
		return tok
	}
	if quote == 0 {
		quote = '"'
	}
	out := make([]byte, 0, len(resolved)+7)
	out = append(out, "url("...)
	out = append(out, quote)
	out = append(out, resolved...)
	out = append(out, quote, ')')
	return out
}

// rewriteQuoted handles the string argument of a url( function token.
func rewriteQuoted(tok []byte, res *Resolver) []byte {
	if len(tok) < 2 {
		return tok
	}
	quote := tok[0]
	resolved, ok := res.Resolve(string(tok[1 : len(tok)-1]))
	if !ok {
		return tok
	}
	out := make([]byte, 0, len(resolved)+2)
	out = append(out, quote)
	out = append(out, resolved...)
	out = append(out, quote)
	return out
}
