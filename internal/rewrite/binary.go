package rewrite

import (
	"context"

	"git.home.luguber.info/inful/assetrev/internal/assets"
)

// Binary copies an opaque asset verbatim to its hashed path. Binaries never
// reference other assets, so the resolver is unused; they run in the first
// phase so everything downstream can reference their final hashed names.
func Binary(ctx context.Context, a Asset, _ *Resolver) (assets.Update, error) {
	if err := ctx.Err(); err != nil {
		return assets.Update{}, err
	}
	digest, err := assets.HashFile(a.Source)
	if err != nil {
		return assets.Update{}, err
	}
	hashed := assets.DerivePath(a.Key, digest)
	if err := copyOutput(a.Source, a.DestRoot, hashed); err != nil {
		return assets.Update{}, err
	}
	return assets.Update{
		Path:        a.Key,
		ContentHash: digest,
		HashedPath:  hashed,
		Written:     true,
	}, nil
}

// HashOnly computes a content hash from the unmodified source and updates
// the entry's hash fields without writing output. Available for asset
// classes that need a stable hash for others to reference but no
// transformation of their own; the finalizer performs the eventual copy.
func HashOnly(ctx context.Context, a Asset, _ *Resolver) (assets.Update, error) {
	if err := ctx.Err(); err != nil {
		return assets.Update{}, err
	}
	digest, err := assets.HashFile(a.Source)
	if err != nil {
		return assets.Update{}, err
	}
	return assets.Update{
		Path:        a.Key,
		ContentHash: digest,
		HashedPath:  assets.DerivePath(a.Key, digest),
	}, nil
}
