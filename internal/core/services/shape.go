package services

import (
	"strings"

	"github.com/kamal-hamza/headpack/internal/core/domain"
	"github.com/kamal-hamza/headpack/pkg/config"
)

// ItemShape knows where a script or stylesheet item keeps its path and
// conditional marker, and any extra eligibility rule of that family
type ItemShape interface {
	// Type returns the asset family handled by this shape
	Type() domain.AssetType

	// ItemPath returns the logical path of a file item, or "" if it has none
	ItemPath(item domain.AssetItem) string

	// ItemConditional returns the conditional-inclusion marker, or ""
	ItemConditional(item domain.AssetItem) string

	// Eligible applies family-specific rules to file items
	Eligible(item domain.AssetItem) bool

	// Defaults returns the family's default options
	Defaults() config.Options
}

// ScriptShape handles <script> items: path from src, marker from conditional
type ScriptShape struct{}

func (ScriptShape) Type() domain.AssetType { return domain.AssetTypeScript }

func (ScriptShape) ItemPath(item domain.AssetItem) string {
	if item.Path != "" {
		return item.Path
	}
	return item.Attributes["src"]
}

func (ScriptShape) ItemConditional(item domain.AssetItem) string {
	if item.Conditional != "" {
		return item.Conditional
	}
	return item.Attributes["conditional"]
}

func (ScriptShape) Eligible(domain.AssetItem) bool { return true }

func (ScriptShape) Defaults() config.Options { return config.ScriptDefaults() }

// StylesheetShape handles <link> items: path from href, marker from
// conditionalStylesheet, and only screen stylesheets are pooled
type StylesheetShape struct{}

func (StylesheetShape) Type() domain.AssetType { return domain.AssetTypeStylesheet }

func (StylesheetShape) ItemPath(item domain.AssetItem) string {
	if item.Path != "" {
		return item.Path
	}
	return item.Attributes["href"]
}

func (StylesheetShape) ItemConditional(item domain.AssetItem) string {
	if item.Conditional != "" {
		return item.Conditional
	}
	return item.Attributes["conditionalStylesheet"]
}

// Eligible rejects print/alternate stylesheets and anything that is not rel=stylesheet
func (StylesheetShape) Eligible(item domain.AssetItem) bool {
	media := strings.ToLower(strings.TrimSpace(item.Media))
	if media != "" && media != "screen" {
		return false
	}
	rel := strings.ToLower(strings.TrimSpace(item.Rel))
	return rel == "" || rel == "stylesheet"
}

func (StylesheetShape) Defaults() config.Options { return config.StylesheetDefaults() }
