package assets

import (
	"path"
	"strings"
)

// Kind is the closed classification of an asset, mapped one-to-one onto a
// rewrite strategy by the pipeline.
type Kind int

const (
	// KindBinary covers opaque assets (images, fonts, media, data files):
	// hashed and copied verbatim, never inspected for references.
	KindBinary Kind = iota
	// KindSVG covers .svg documents: URL-bearing attributes and embedded
	// style blocks are rewritten, output gets a hashed filename.
	KindSVG
	// KindScript covers JavaScript sources: string literals rewritten,
	// output minified and written under a hashed filename.
	KindScript
	// KindStylesheet covers CSS: url() references rewritten, hashed output.
	KindStylesheet
	// KindDocument covers .html entry points: content rewritten like SVG but
	// always written at the original path.
	KindDocument
	// KindOther is everything else; copied untouched by the finalizer.
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindBinary:
		return "binary"
	case KindSVG:
		return "svg"
	case KindScript:
		return "script"
	case KindStylesheet:
		return "stylesheet"
	case KindDocument:
		return "document"
	default:
		return "other"
	}
}

// binaryExts are extensions treated as opaque hashable content.
var binaryExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
	".avif": true, ".ico": true, ".bmp": true,
	".woff": true, ".woff2": true, ".ttf": true, ".otf": true, ".eot": true,
	".mp3": true, ".mp4": true, ".ogg": true, ".webm": true,
	".wasm": true, ".pdf": true, ".zip": true, ".gz": true,
	".txt": true, ".json": true, ".xml": true, ".map": true,
	".webmanifest": true,
}

// Classify maps a registry key to its asset kind by extension.
func Classify(p string) Kind {
	switch ext := strings.ToLower(path.Ext(p)); {
	case ext == ".svg":
		return KindSVG
	case ext == ".js" || ext == ".mjs":
		return KindScript
	case ext == ".css":
		return KindStylesheet
	case ext == ".html":
		return KindDocument
	case binaryExts[ext]:
		return KindBinary
	default:
		return KindOther
	}
}

// Unhashable reports whether the asset's filename must stay stable across
// runs: HTML entry points and fixed-URL files. The resolver never substitutes
// a hashed path for references to these, and no phase renames them.
func Unhashable(p string) bool {
	if p == "robots.txt" || p == "pages.json" {
		return true
	}
	return strings.ToLower(path.Ext(p)) == ".html"
}
