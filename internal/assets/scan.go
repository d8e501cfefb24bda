package assets

import (
	"fmt"
	"io/fs"
	"path/filepath"
)

// Scan walks the build tree rooted at root and seeds a registry with one
// empty entry per regular file, keyed by its slash-normalized relative path.
// An unreadable root is fatal to the run: no registry can be built without
// enumerating the input.
func Scan(root string) (*Registry, error) {
	reg := NewRegistry()
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
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
		return reg.Add(filepath.ToSlash(rel))
	})
	if err != nil {
		return nil, fmt.Errorf("scan build tree %s: %w", root, err)
	}
	return reg, nil
}
