package rewrite

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/assetrev/internal/assets"
)

// urlAttrs are the attribute names carrying rewritable references in HTML
// and SVG documents. srcset is handled separately because it holds a
// candidate list rather than a single URL.
var urlAttrs = map[string]bool{
	"href":       true,
	"src":        true,
	"poster":     true,
	"xlink:href": true,
}

// Document returns the shared rewriter for .html and .svg assets. Both are
// tokenized with the HTML tokenizer; URL-bearing attributes and embedded
// style blocks are rewritten in place. Output path policy differs by
// extension: SVG gets a hashed filename like any other rewritten asset,
// while HTML entry points keep their original path so they stay reachable
// at fixed URLs. Documents run last: they reference assets of every other
// class, which carry final hashes by then.
func Document() Func {
	return func(ctx context.Context, a Asset, res *Resolver) (assets.Update, error) {
		if err := ctx.Err(); err != nil {
			return assets.Update{}, err
		}
		data, err := os.ReadFile(filepath.Clean(a.Source))
		if err != nil {
			return assets.Update{}, fmt.Errorf("read %s: %w", a.Key, err)
		}
		out, err := RewriteDocument(data, res)
		if err != nil {
			return assets.Update{}, fmt.Errorf("rewrite document %s: %w", a.Key, err)
		}
		digest := assets.HashBytes(out)

		outPath := a.Key
		if strings.ToLower(path.Ext(a.Key)) != ".html" {
			outPath = assets.DerivePath(a.Key, digest)
		}
		if err := writeOutput(a.DestRoot, outPath, out); err != nil {
			return assets.Update{}, err
		}
		return assets.Update{
			Path:        a.Key,
			ContentHash: digest,
			HashedPath:  assets.DerivePath(a.Key, digest),
			Written:     true,
		}, nil
	}
}

// RewriteDocument streams an HTML or SVG document through the tokenizer,
// substituting resolvable references in URL-bearing attributes and in
// embedded <style> content. Tokens without substitutions are emitted from
// their raw bytes, so tag-name and attribute casing (significant in SVG)
// survives the round trip.
func RewriteDocument(src []byte, res *Resolver) ([]byte, error) {
	z := html.NewTokenizer(bytes.NewReader(src))
	var buf bytes.Buffer
	inStyle := false
	for {
		tt := z.Next()
		raw := append([]byte(nil), z.Raw()...)
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return nil, err
			}
			return buf.Bytes(), nil
		case html.TextToken:
			if inStyle {
				rewritten, err := RewriteStyleURLs(raw, res)
				if err != nil {
					return nil, err
				}
				buf.Write(rewritten)
			} else {
				buf.Write(raw)
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			buf.Write(rewriteTagRaw(raw, tok, res))
			if tt == html.StartTagToken && tok.Data == "style" {
				inStyle = true
			}
		case html.EndTagToken:
			if z.Token().Data == "style" {
				inStyle = false
			}
			buf.Write(raw)
		default:
			buf.Write(raw)
		}
	}
}

// rewriteTagRaw substitutes resolvable attribute values inside a tag's raw
// bytes. Substitution happens on the raw text rather than by reserializing
// the token so the document's original formatting and casing is preserved
// for everything that is not rewritten.
func rewriteTagRaw(raw []byte, tok html.Token, res *Resolver) []byte {
	for _, attr := range tok.Attr {
		key := attr.Key
		if attr.Namespace != "" {
			key = attr.Namespace + ":" + attr.Key
		}
		switch {
		case urlAttrs[key]:
			resolved, ok := res.Resolve(attr.Val)
			if !ok {
				continue
			}
			raw = replaceAttrValue(raw, key, attr.Val, resolved)
		case key == "srcset":
			rewritten, changed := rewriteSrcset(attr.Val, res)
			if !changed {
				continue
			}
			raw = replaceAttrValue(raw, key, attr.Val, rewritten)
		}
	}
	return raw
}

// replaceAttrValue swaps one attribute's value inside raw tag bytes. The
// search is anchored on the attribute name so an identical value held by a
// different attribute in the same tag is never touched, and it accepts
// double-quoted, single-quoted and unquoted value forms. If the raw value
// differs from the tokenized one (entity-escaped values), the token is left
// alone rather than risking a bad splice.
func replaceAttrValue(raw []byte, key, oldVal, newVal string) []byte {
	keyBytes := []byte(key)
	for i := 1; i+len(keyBytes) < len(raw); i++ {
		if !isSpace(raw[i-1]) || !bytes.EqualFold(raw[i:i+len(keyBytes)], keyBytes) {
			continue
		}
		j := skipSpace(raw, i+len(keyBytes))
		if j >= len(raw) || raw[j] != '=' {
			continue
		}
		j = skipSpace(raw, j+1)
		if j >= len(raw) {
			continue
		}
		var start, end int
		if raw[j] == '"' || raw[j] == '\'' {
			start = j + 1
			rel := bytes.IndexByte(raw[start:], raw[j])
			if rel < 0 {
				continue
			}
			end = start + rel
		} else {
			// Unquoted values run to the next whitespace or tag close,
			// matching how the tokenizer delimits them.
			start = j
			end = start
			for end < len(raw) && !isSpace(raw[end]) && raw[end] != '>' {
				end++
			}
		}
		if string(raw[start:end]) != oldVal {
			continue
		}
		out := make([]byte, 0, len(raw)-len(oldVal)+len(newVal))
		out = append(out, raw[:start]...)
		out = append(out, newVal...)
		out = append(out, raw[end:]...)
		return out
	}
	return raw
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}

func skipSpace(raw []byte, i int) int {
	for i < len(raw) && isSpace(raw[i]) {
		i++
	}
	return i
}

// rewriteSrcset resolves each candidate URL in a srcset attribute value.
func rewriteSrcset(val string, res *Resolver) (string, bool) {
	changed := false
	parts := strings.Split(val, ",")
	for i, part := range parts {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		resolved, ok := res.Resolve(fields[0])
		if !ok {
			continue
		}
		fields[0] = resolved
		changed = true
		parts[i] = strings.Join(fields, " ")
	}
	if !changed {
		return val, false
	}
	return strings.Join(parts, ", "), true
}
