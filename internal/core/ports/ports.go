package ports

import (
	"github.com/kamal-hamza/headpack/internal/core/domain"
	"github.com/kamal-hamza/headpack/pkg/config"
)

// MinifyContext carries what a transform needs besides the text itself.
// Scripts only need the text; stylesheets need directories to rewrite url() references.
type MinifyContext struct {
	// DocumentRoot is the storage root that web paths are relative to
	DocumentRoot string

	// CurrentDir is the real directory of the pooled file (document root for inline CSS)
	CurrentDir string

	// OutputDir is the storage directory of the combined file
	OutputDir string

	// Symlinks is the virtual-path table, used to map real paths back to web paths
	Symlinks config.SymlinkTable
}

// Minifier defines the port for minification
type Minifier interface {
	// Minify returns the minified content. It is stateless per call and
	// must not return partially minified text on error.
	Minify(kind domain.AssetType, content string, mctx MinifyContext) (string, error)
}

// URLRewriter defines the port for relocating relative references inside stylesheets
type URLRewriter interface {
	// RewriteURLs rewrites relative url() and @import targets so they stay
	// valid when the stylesheet is served from the combined file's location
	RewriteURLs(content string, mctx MinifyContext) (string, error)
}

// SaveOptions controls what is written next to a combined artifact
type SaveOptions struct {
	Fingerprint string

	// GzipLevel writes a .gz sibling when between 1 and 9
	GzipLevel int

	// GzipLegacyHeader writes the fixed 8-byte header + zlib stream instead of a gzip container
	GzipLegacyHeader bool

	// ZstdLevel writes a .zst sibling when between 1 and 4
	ZstdLevel int

	// Verify writes an integrity sidecar checked by Lookup
	Verify bool
}

// ArtifactStore defines the port for combined-file persistence.
// The filesystem is the only cache: no in-memory state survives between calls.
type ArtifactStore interface {
	// Lookup reports whether a valid artifact exists at path and returns its content.
	// With verify set, a missing or mismatching sidecar counts as a miss.
	Lookup(path string, verify bool) ([]byte, bool, error)

	// Save writes content to path atomically along with any requested siblings.
	// It returns the sibling paths it wrote.
	Save(path string, content []byte, opts SaveOptions) ([]string, error)
}
