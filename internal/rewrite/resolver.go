// Package rewrite implements the URL resolver and the per-format rewriters
// that transform one asset each: binaries are copied, JavaScript, CSS and
// HTML/SVG have their internal references substituted with hashed paths.
package rewrite

import (
	"net/url"
	"strings"

	"git.home.luguber.info/inful/assetrev/internal/assets"
)

// Resolver decides whether a reference has a hashed replacement. It is built
// from a point-in-time view of the registry at phase start, so resolution
// inside a phase only sees hashes finalized by earlier phases. Pure and
// side-effect-free.
type Resolver struct {
	hashed map[string]string
}

// NewResolver snapshots the registry's hashed paths.
func NewResolver(reg *assets.Registry) *Resolver {
	return &Resolver{hashed: reg.HashedPaths()}
}

// Resolve returns the replacement reference for ref and whether one exists.
// Only same-origin, path-only references are eligible; external URLs, opaque
// schemes (data:, mailto:) and references to unknown or unhashable assets
// are returned unchanged. The input's query string and fragment are carried
// over verbatim.
func (r *Resolver) Resolve(ref string) (string, bool) {
	u, err := url.Parse(ref)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Opaque != "" {
		return ref, false
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return ref, false
	}
	hashed, ok := r.hashed[key]
	if !ok {
		return ref, false
	}
	var b strings.Builder
	b.WriteString("/")
	b.WriteString(hashed)
	if u.RawQuery != "" {
		b.WriteString("?")
		b.WriteString(u.RawQuery)
	}
	if u.Fragment != "" {
		b.WriteString("#")
		b.WriteString(u.EscapedFragment())
	}
	return b.String(), true
}
