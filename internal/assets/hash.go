package assets

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ShortHashLen is the number of hex characters embedded in hashed filenames.
const ShortHashLen = 8

// HashFile computes the sha256 hex digest of a file's content, streaming so
// large binaries are not held in memory.
func HashFile(path string) (string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes computes the sha256 hex digest of an in-memory buffer. Used for
// transformed output instead of rereading disk.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// ShortHash returns the fixed-length filename prefix of a full digest.
func ShortHash(digest string) string {
	if len(digest) < ShortHashLen {
		return digest
	}
	return digest[:ShortHashLen]
}

// DerivePath inserts the short hash immediately before the file extension:
// images/logo.png -> images/logo.<hash8>.png. Pure function of its inputs;
// extensionless paths get the hash appended as a suffix.
func DerivePath(p, digest string) string {
	short := ShortHash(digest)
	ext := filepath.Ext(p)
	if ext == "" {
		return p + "." + short
	}
	return strings.TrimSuffix(p, ext) + "." + short + ext
}
