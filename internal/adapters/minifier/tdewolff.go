package minifier

import (
	"fmt"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"

	"github.com/kamal-hamza/headpack/internal/core/domain"
	"github.com/kamal-hamza/headpack/internal/core/ports"
)

const (
	mediaTypeCSS = "text/css"
	mediaTypeJS  = "application/javascript"
)

// TdewolffMinifier implements the Minifier and URLRewriter ports using tdewolff/minify
type TdewolffMinifier struct {
	m        *minify.M
	rewriter *CSSRewriter
}

// NewTdewolffMinifier creates a minifier with the JS and CSS handlers registered
func NewTdewolffMinifier() *TdewolffMinifier {
	m := minify.New()
	m.AddFunc(mediaTypeCSS, css.Minify)
	m.AddFunc(mediaTypeJS, js.Minify)

	return &TdewolffMinifier{
		m:        m,
		rewriter: NewCSSRewriter(),
	}
}

var (
	_ ports.Minifier    = (*TdewolffMinifier)(nil)
	_ ports.URLRewriter = (*TdewolffMinifier)(nil)
)

// Minify minifies scripts as-is. Stylesheets have their relative url()
// references rewritten for the output location first.
func (t *TdewolffMinifier) Minify(kind domain.AssetType, content string, mctx ports.MinifyContext) (string, error) {
	switch kind {
	case domain.AssetTypeScript:
		out, err := t.m.String(mediaTypeJS, content)
		if err != nil {
			return "", fmt.Errorf("%w: js: %v", domain.ErrTransformFailed, err)
		}
		return out, nil

	case domain.AssetTypeStylesheet:
		rewritten, err := t.rewriter.RewriteURLs(content, mctx)
		if err != nil {
			return "", err
		}
		out, err := t.m.String(mediaTypeCSS, rewritten)
		if err != nil {
			return "", fmt.Errorf("%w: css: %v", domain.ErrTransformFailed, err)
		}
		return out, nil

	default:
		return "", fmt.Errorf("%w: unsupported asset type %q", domain.ErrTransformFailed, kind)
	}
}

// RewriteURLs relocates relative references without minifying
func (t *TdewolffMinifier) RewriteURLs(content string, mctx ports.MinifyContext) (string, error) {
	return t.rewriter.RewriteURLs(content, mctx)
}
