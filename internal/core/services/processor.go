package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kamal-hamza/headpack/internal/core/domain"
	"github.com/kamal-hamza/headpack/pkg/config"
	"github.com/kamal-hamza/headpack/pkg/webroot"
)

// NonCacheMarker opts an inline source out of combination
const NonCacheMarker = "//@non-cache"

// CompressedSuffix marks combined files that went through the minifier
const CompressedSuffix = "_compressed"

// AssetProcessor classifies items and translates paths for one asset family.
// It holds no per-page state, so one instance can serve any number of pages.
type AssetProcessor struct {
	shape    ItemShape
	resolver *webroot.Resolver
	cfg      *config.Config
}

// NewAssetProcessor creates a processor for the given shape
func NewAssetProcessor(shape ItemShape, resolver *webroot.Resolver, cfg *config.Config) *AssetProcessor {
	return &AssetProcessor{
		shape:    shape,
		resolver: resolver,
		cfg:      cfg,
	}
}

// NewJsAssetProcessor creates a processor for script items
func NewJsAssetProcessor(resolver *webroot.Resolver, cfg *config.Config) *AssetProcessor {
	return NewAssetProcessor(ScriptShape{}, resolver, cfg)
}

// NewCssAssetProcessor creates a processor for stylesheet items
func NewCssAssetProcessor(resolver *webroot.Resolver, cfg *config.Config) *AssetProcessor {
	return NewAssetProcessor(StylesheetShape{}, resolver, cfg)
}

// Shape returns the item-shape adapter in use
func (p *AssetProcessor) Shape() ItemShape {
	return p.shape
}

// Classify decides whether an item can be pooled
func (p *AssetProcessor) Classify(item domain.AssetItem) domain.Classification {
	_, err := p.classify(item)
	if err != nil {
		return domain.Standalone
	}
	return domain.Pooled
}

// IsCachable reports whether an item can be pooled
func (p *AssetProcessor) IsCachable(item domain.AssetItem) bool {
	return p.Classify(item) == domain.Pooled
}

// Cache turns a poolable item into a pooled entry. Items excluded by a rule
// return domain.ErrNotPoolable, files that cannot be located return
// webroot.ErrNotFound and malformed items return domain.ErrInvalidItem.
func (p *AssetProcessor) Cache(item domain.AssetItem) (domain.PooledEntry, error) {
	if err := item.Validate(); err != nil {
		return domain.PooledEntry{}, err
	}
	return p.classify(item)
}

// Partition splits items into standalone items and pooled entries, keeping
// the declaration order inside each group
func (p *AssetProcessor) Partition(items []domain.AssetItem) ([]domain.AssetItem, []domain.PooledEntry, error) {
	standalone := make([]domain.AssetItem, 0, len(items))
	pooled := make([]domain.PooledEntry, 0, len(items))

	for i, item := range items {
		if err := item.Validate(); err != nil {
			return nil, nil, fmt.Errorf("item %d: %w", i, err)
		}

		if entry, err := p.classify(item); err == nil {
			pooled = append(pooled, entry)
		} else {
			standalone = append(standalone, item)
		}
	}

	return standalone, pooled, nil
}

// classify applies the eligibility rules in order; the first match wins.
// A nil error means the item is pooled.
func (p *AssetProcessor) classify(item domain.AssetItem) (domain.PooledEntry, error) {
	// 1. Conditional content decides whether it loads at all
	if strings.TrimSpace(p.shape.ItemConditional(item)) != "" {
		return domain.PooledEntry{}, fmt.Errorf("%w: conditional", domain.ErrNotPoolable)
	}

	// 2-3. Inline sources pool unless they opt out
	if item.Kind == domain.KindInline {
		if item.Source == "" {
			return domain.PooledEntry{}, fmt.Errorf("%w: empty inline source", domain.ErrNotPoolable)
		}
		if strings.Contains(item.Source, NonCacheMarker) {
			return domain.PooledEntry{}, fmt.Errorf("%w: %s", domain.ErrNotPoolable, NonCacheMarker)
		}
		return domain.InlineEntry(item.Source), nil
	}

	// 4. Family rules (media/rel for stylesheets)
	if !p.shape.Eligible(item) {
		return domain.PooledEntry{}, fmt.Errorf("%w: media %q rel %q", domain.ErrNotPoolable, item.Media, item.Rel)
	}

	// 5. Files pool only when they can be read
	logical := p.shape.ItemPath(item)
	if logical == "" {
		return domain.PooledEntry{}, fmt.Errorf("%w: no path", webroot.ErrNotFound)
	}
	storagePath, err := p.resolver.Locate(logical)
	if err != nil {
		return domain.PooledEntry{}, fmt.Errorf("%s: %w", logical, err)
	}
	mtime, err := p.resolver.ModTime(storagePath)
	if err != nil {
		return domain.PooledEntry{}, fmt.Errorf("%s: %w", logical, webroot.ErrNotFound)
	}

	return domain.FileEntry(storagePath, mtime), nil
}

// FullFilename appends the compressed suffix and the extension to a fingerprint
func (p *AssetProcessor) FullFilename(fingerprint string) string {
	return BuildFilename(fingerprint, p.cfg.Compress, p.cfg.FileExtension)
}

// WebPath converts a storage path to its web path
func (p *AssetProcessor) WebPath(storagePath string) string {
	return p.resolver.ToWebPath(storagePath)
}

// ServerPath converts a logical path to its storage path
func (p *AssetProcessor) ServerPath(logical string) string {
	return p.resolver.ToStoragePath(logical)
}

// IsNotFound reports whether err means an item could not be located
func IsNotFound(err error) bool {
	return errors.Is(err, webroot.ErrNotFound)
}

// IsNotPoolable reports whether err means a rule kept the item standalone
func IsNotPoolable(err error) bool {
	return errors.Is(err, domain.ErrNotPoolable)
}
