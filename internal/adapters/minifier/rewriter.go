package minifier

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kamal-hamza/headpack/internal/core/domain"
	"github.com/kamal-hamza/headpack/internal/core/ports"
	"github.com/kamal-hamza/headpack/pkg/webroot"
)

var (
	// url(foo.png), url('foo.png'), url("foo.png")
	urlRegex = regexp.MustCompile(`url\(\s*(['"]?)([^'")]*?)(['"]?)\s*\)`)

	// @import "foo.css" / @import 'foo.css' (the url() form is handled above)
	importRegex = regexp.MustCompile(`@import\s+(['"])([^'"]+)(['"])`)

	// scheme: prefix such as http:, data:, about:
	schemeRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*:`)
)

// CSSRewriter rewrites relative references in a stylesheet so they keep
// pointing at the same files once the stylesheet is served from the
// combined file's directory
type CSSRewriter struct{}

// NewCSSRewriter creates a rewriter
func NewCSSRewriter() *CSSRewriter {
	return &CSSRewriter{}
}

var _ ports.URLRewriter = (*CSSRewriter)(nil)

// RewriteURLs resolves each relative reference against mctx.CurrentDir,
// maps the result to its web path (reversing the virtual-path table when the
// file lives outside the document root) and makes it relative to the web
// directory of mctx.OutputDir. Without an OutputDir the result is root-relative.
func (r *CSSRewriter) RewriteURLs(content string, mctx ports.MinifyContext) (string, error) {
	if mctx.CurrentDir == "" {
		return "", fmt.Errorf("%w: css rewrite needs the stylesheet directory", domain.ErrTransformFailed)
	}

	resolver := webroot.New(nil, mctx.DocumentRoot, mctx.Symlinks)

	outputWeb := ""
	if mctx.OutputDir != "" {
		outputWeb = resolver.RealToWeb(mctx.OutputDir)
	}

	relocate := func(uri string) string {
		trimmed := strings.TrimSpace(uri)
		if !isRelativeURI(trimmed) {
			return uri
		}

		// Keep ?query and #fragment as written
		target, suffix := trimmed, ""
		if idx := strings.IndexAny(trimmed, "?#"); idx >= 0 {
			target, suffix = trimmed[:idx], trimmed[idx:]
		}

		storagePath := filepath.Join(mctx.CurrentDir, filepath.FromSlash(target))
		web := resolver.RealToWeb(storagePath)
		if outputWeb != "" {
			web = relativeWebPath(outputWeb, web)
		}
		return web + suffix
	}

	content = urlRegex.ReplaceAllStringFunc(content, func(match string) string {
		parts := urlRegex.FindStringSubmatch(match)
		// parts[1] = opening quote, parts[2] = uri, parts[3] = closing quote
		if len(parts) < 4 {
			return match
		}
		return fmt.Sprintf("url(%s%s%s)", parts[1], relocate(parts[2]), parts[3])
	})

	content = importRegex.ReplaceAllStringFunc(content, func(match string) string {
		parts := importRegex.FindStringSubmatch(match)
		if len(parts) < 4 {
			return match
		}
		return fmt.Sprintf("@import %s%s%s", parts[1], relocate(parts[2]), parts[3])
	})

	return content, nil
}

// isRelativeURI reports whether uri is a path relative to the stylesheet
func isRelativeURI(uri string) bool {
	switch {
	case uri == "":
		return false
	case strings.HasPrefix(uri, "/"), strings.HasPrefix(uri, "#"):
		return false
	case schemeRegex.MatchString(uri):
		return false
	}
	return true
}

// relativeWebPath returns the path of target as seen from directory fromDir.
// Both arguments are web paths with a leading slash.
func relativeWebPath(fromDir, target string) string {
	from := splitWeb(fromDir)
	to := splitWeb(target)

	common := 0
	for common < len(from) && common < len(to) && from[common] == to[common] {
		common++
	}

	parts := make([]string, 0, len(from)-common+len(to)-common)
	for i := common; i < len(from); i++ {
		parts = append(parts, "..")
	}
	parts = append(parts, to[common:]...)

	if len(parts) == 0 {
		return "."
	}
	return strings.Join(parts, "/")
}

func splitWeb(p string) []string {
	p = strings.Trim(webroot.Normalize(p), "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
