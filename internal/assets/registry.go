// Package assets holds the run-scoped asset registry: one entry per file
// under the build root, keyed by forward-slash relative path. The registry is
// the single piece of mutable state shared across rewrite phases; writes go
// through Apply/MarkWritten so concurrent phase tasks never touch it directly.
package assets

import (
	"fmt"
	"sort"
	"sync"
)

// Entry is the metadata tracked for one file under the build root.
type Entry struct {
	// Path is the forward-slash normalized path relative to the build root.
	// It is the entry's identity and never changes.
	Path string
	// Kind is the closed classification driving phase dispatch.
	Kind Kind
	// ContentHash is the full hex digest of the entry's final byte content
	// (post-rewrite for transformed assets). Empty until processed.
	ContentHash string
	// ShortHash is the fixed-length prefix of ContentHash embedded in
	// hashed filenames.
	ShortHash string
	// HashedPath is Path with the short hash inserted before the extension.
	// Set exactly when ContentHash is set.
	HashedPath string
	// Written records that the entry's bytes have been placed at their
	// destination. Transitions false->true at most once per run.
	Written bool
}

// Update is the partial state change produced by a rewrite task. The phase
// runner merges updates into the registry after all tasks in the phase have
// settled, so tasks stay free of shared-state writes.
type Update struct {
	Path        string
	ContentHash string
	HashedPath  string
	Written     bool
}

// Registry maps relative paths to asset entries for the lifetime of one run.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Add inserts an empty entry for path, classifying it by extension.
// Adding the same path twice is an error: scan enumerates each file once.
func (r *Registry) Add(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[path]; ok {
		return fmt.Errorf("duplicate registry entry: %s", path)
	}
	r.entries[path] = &Entry{Path: path, Kind: Classify(path)}
	return nil
}

// Get returns a copy of the entry for path.
func (r *Registry) Get(path string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[path]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Paths returns all registry keys in sorted order. Sorting keeps phase task
// launch order and finalizer traversal deterministic.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	paths := make([]string, 0, len(r.entries))
	for p := range r.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// ByKind returns the sorted keys of all entries with the given kind.
func (r *Registry) ByKind(k Kind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var paths []string
	for p, e := range r.entries {
		if e.Kind == k {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths
}

// Apply merges a task's partial update into the registry. A rewritten entry
// carries both hash fields and the written flag; hash-only updates leave
// Written untouched. Marking an already-written entry written again is an
// error so double writes surface instead of passing silently.
func (r *Registry) Apply(u Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[u.Path]
	if !ok {
		return fmt.Errorf("apply update for unknown entry: %s", u.Path)
	}
	if u.ContentHash != "" {
		e.ContentHash = u.ContentHash
		e.ShortHash = ShortHash(u.ContentHash)
		e.HashedPath = u.HashedPath
	}
	if u.Written {
		if e.Written {
			return fmt.Errorf("entry written twice: %s", u.Path)
		}
		e.Written = true
	}
	return nil
}

// MarkWritten flips the written flag for path. Used by the finalizer after a
// plain copy; errors if the entry was already written.
func (r *Registry) MarkWritten(path string) error {
	return r.Apply(Update{Path: path, Written: true})
}

// HashedPaths returns a point-in-time map from registry key to hashed path
// for every entry that currently has one, excluding unhashable assets.
// References are resolved against such a snapshot taken at phase start, so a
// phase only ever observes hashes finalized by earlier phases. That makes
// same-phase cross-references deliberately unresolvable (and output
// deterministic) instead of racy.
func (r *Registry) HashedPaths() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := make(map[string]string)
	for p, e := range r.entries {
		if e.HashedPath == "" || Unhashable(p) {
			continue
		}
		m[p] = e.HashedPath
	}
	return m
}

// Unwritten returns the sorted keys of all entries not yet written.
func (r *Registry) Unwritten() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var paths []string
	for p, e := range r.entries {
		if !e.Written {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths
}
