package domain

import "errors"

// Lookup and configuration errors live with the packages that raise them
// (webroot.ErrNotFound, config.ErrConfigType).
var (
	// ErrDirectoryCreation means the cache output directory could not be created
	ErrDirectoryCreation = errors.New("cannot create destination directory")

	// ErrTransformFailed wraps any minifier or URL rewriter failure
	ErrTransformFailed = errors.New("transform failed")

	// ErrNotPoolable means an item is excluded from combination by a rule
	// (conditional, no-cache marker, media/rel) rather than by a missing file
	ErrNotPoolable = errors.New("item is not poolable")

	// ErrInvalidItem means an AssetItem violates the inline/file invariant
	ErrInvalidItem = errors.New("invalid asset item")
)
