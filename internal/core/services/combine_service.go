package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/kamal-hamza/headpack/internal/adapters/repository"
	"github.com/kamal-hamza/headpack/internal/core/domain"
	"github.com/kamal-hamza/headpack/internal/core/ports"
	"github.com/kamal-hamza/headpack/pkg/config"
	"github.com/kamal-hamza/headpack/pkg/webroot"
)

// entrySeparator follows every pooled entry so adjacent sources never glue tokens
const entrySeparator = "\n\n"

// CombineService pools eligible assets of one family into a single
// fingerprinted file under the document root
type CombineService struct {
	fs       afero.Fs
	root     string
	shape    ItemShape
	store    ports.ArtifactStore
	minifier ports.Minifier
	rewriter ports.URLRewriter
	logger   *slog.Logger
}

// Option customizes a CombineService
type Option func(*CombineService)

// WithStore replaces the filesystem artifact store
func WithStore(store ports.ArtifactStore) Option {
	return func(s *CombineService) {
		s.store = store
	}
}

// WithLogger sets the logger used for debug output
func WithLogger(logger *slog.Logger) Option {
	return func(s *CombineService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithURLRewriter sets the rewriter used for stylesheets that are not minified
func WithURLRewriter(rewriter ports.URLRewriter) Option {
	return func(s *CombineService) {
		s.rewriter = rewriter
	}
}

// NewCombineService creates a combine service.
// documentRoot is resolved once by the caller and never read from the environment.
func NewCombineService(fs afero.Fs, documentRoot string, shape ItemShape, minifier ports.Minifier, opts ...Option) *CombineService {
	s := &CombineService{
		fs:       fs,
		root:     documentRoot,
		shape:    shape,
		store:    repository.NewFileArtifactStore(fs),
		minifier: minifier,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	// A minifier that can also rewrite URLs serves both roles by default
	if rw, ok := minifier.(ports.URLRewriter); ok {
		s.rewriter = rw
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewScriptCombineService creates a combine service for scripts
func NewScriptCombineService(fs afero.Fs, documentRoot string, minifier ports.Minifier, opts ...Option) *CombineService {
	return NewCombineService(fs, documentRoot, ScriptShape{}, minifier, opts...)
}

// NewStylesheetCombineService creates a combine service for stylesheets
func NewStylesheetCombineService(fs afero.Fs, documentRoot string, minifier ports.Minifier, opts ...Option) *CombineService {
	return NewCombineService(fs, documentRoot, StylesheetShape{}, minifier, opts...)
}

// CombineRequest represents one page's assets of a single family
type CombineRequest struct {
	Items []domain.AssetItem

	// Options accepts config.Options, map[string]any, config.Config or nil.
	// Given keys replace the family defaults.
	Options any
}

// CombineResponse holds what the rendering layer emits
type CombineResponse struct {
	// Standalone items are emitted verbatim, in declaration order
	Standalone []domain.AssetItem

	// Artifact is nil when combining is off or nothing was pooled
	Artifact *domain.CachedArtifact

	// Combined is false when the combine option is disabled
	Combined bool
}

// Execute classifies the items, materializes the combined file if needed
// and returns the standalone items plus the artifact descriptor
func (s *CombineService) Execute(ctx context.Context, req CombineRequest) (*CombineResponse, error) {
	// 1. Resolve configuration
	cfg, err := config.Decode(s.shape.Defaults().Merge(config.Normalize(req.Options)))
	if err != nil {
		return nil, err
	}

	if !cfg.Combine {
		return &CombineResponse{Standalone: req.Items}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 2. Partition
	resolver := webroot.New(s.fs, s.root, cfg.Symlinks)
	processor := NewAssetProcessor(s.shape, resolver, cfg)

	standalone, entries, err := processor.Partition(req.Items)
	if err != nil {
		return nil, err
	}

	response := &CombineResponse{
		Standalone: standalone,
		Combined:   true,
	}
	if len(entries) == 0 {
		return response, nil
	}

	// 3. Fingerprint and target path
	fingerprint := Fingerprint(entries)
	if s.shape.Type() == domain.AssetTypeStylesheet {
		fingerprint = StylesheetFingerprint(entries, cfg.Symlinks)
	}
	storagePath := processor.ServerPath(path.Join(cfg.OutputDirectory, processor.FullFilename(fingerprint)))

	artifact := &domain.CachedArtifact{
		StoragePath: storagePath,
		WebPath:     processor.WebPath(storagePath),
		Fingerprint: fingerprint,
	}
	response.Artifact = artifact

	// 4. Cache hit: the fingerprint already encodes every invalidating input
	content, hit, err := s.store.Lookup(storagePath, cfg.Verify)
	if err != nil {
		return nil, err
	}
	if hit {
		artifact.Content = content
		artifact.CacheHit = true
		s.logger.Debug("combined asset cache hit",
			"type", s.shape.Type(),
			"fingerprint", fingerprint,
			"path", storagePath,
		)
		return response, nil
	}

	// 5. Cache miss: build and write
	content, err = s.build(ctx, cfg, resolver, entries, filepath.Dir(storagePath))
	if err != nil {
		return nil, err
	}

	siblings, err := s.store.Save(storagePath, content, ports.SaveOptions{
		Fingerprint:      fingerprint,
		GzipLevel:        cfg.GzipLevel,
		GzipLegacyHeader: cfg.GzipLegacyHeader,
		ZstdLevel:        cfg.ZstdLevel,
		Verify:           cfg.Verify,
	})
	if err != nil {
		return nil, err
	}

	artifact.Content = content
	artifact.Siblings = siblings

	s.logger.Debug("combined asset written",
		"type", s.shape.Type(),
		"fingerprint", fingerprint,
		"path", storagePath,
		"entries", len(entries),
		"bytes", len(content),
		"siblings", len(siblings),
	)

	return response, nil
}

// build concatenates pooled entries in order, each followed by a blank line,
// and runs the transforms the configuration asks for
func (s *CombineService) build(ctx context.Context, cfg *config.Config, resolver *webroot.Resolver, entries []domain.PooledEntry, outputDir string) ([]byte, error) {
	kind := s.shape.Type()
	if cfg.Compress && s.minifier == nil {
		return nil, fmt.Errorf("%w: compress is enabled but no minifier is configured", domain.ErrTransformFailed)
	}

	var b strings.Builder
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text := entry.Text
		if !entry.Inline {
			data, err := resolver.ReadFile(entry.FilePath)
			if err != nil {
				return nil, fmt.Errorf("failed to read pooled file %s: %w", entry.FilePath, err)
			}
			text = string(data)
		}

		// Stylesheets are transformed one by one: each needs its own directory
		if kind == domain.AssetTypeStylesheet {
			mctx := ports.MinifyContext{
				DocumentRoot: resolver.Root(),
				CurrentDir:   resolver.Root(),
				OutputDir:    outputDir,
				Symlinks:     cfg.Symlinks,
			}
			if !entry.Inline {
				mctx.CurrentDir = filepath.Dir(entry.FilePath)
			}

			var err error
			switch {
			case cfg.Compress:
				text, err = s.minifier.Minify(kind, text, mctx)
			case s.rewriter != nil:
				text, err = s.rewriter.RewriteURLs(text, mctx)
			}
			if err != nil {
				return nil, transformError(err)
			}
		}

		b.WriteString(text)
		b.WriteString(entrySeparator)
	}

	out := b.String()
	if kind == domain.AssetTypeScript && cfg.Compress {
		minified, err := s.minifier.Minify(kind, out, ports.MinifyContext{
			DocumentRoot: resolver.Root(),
			OutputDir:    outputDir,
		})
		if err != nil {
			return nil, transformError(err)
		}
		out = minified
	}

	return []byte(out), nil
}

func transformError(err error) error {
	if errors.Is(err, domain.ErrTransformFailed) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrTransformFailed, err)
}
