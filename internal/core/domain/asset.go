package domain

import (
	"fmt"
	"time"
)

// AssetType identifies which family of head resources an item belongs to
type AssetType string

const (
	AssetTypeScript     AssetType = "js"
	AssetTypeStylesheet AssetType = "css"
)

// ItemKind tells whether an item carries its own source or points at a file
type ItemKind int

const (
	KindInline ItemKind = iota
	KindFile
)

func (k ItemKind) String() string {
	switch k {
	case KindInline:
		return "inline"
	case KindFile:
		return "file"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// AssetItem represents one declared script or stylesheet.
// Items are built by the rendering layer and never modified by the core.
type AssetItem struct {
	Kind ItemKind

	// Source holds inline text (KindInline only)
	Source string

	// Path is the logical web path, e.g. "/js/app.js" (KindFile only)
	Path string

	// Conditional is a conditional-inclusion marker such as "lt IE 9"
	Conditional string

	// Media and Rel only matter for stylesheets
	Media string
	Rel   string

	// LastModified is informational; the fingerprint uses the mtime read from disk
	LastModified time.Time

	// Attributes are carried through untouched for the emitting layer
	Attributes map[string]string
}

// NewInlineItem creates an inline-source item
func NewInlineItem(source string) AssetItem {
	return AssetItem{Kind: KindInline, Source: source}
}

// NewFileItem creates a file-reference item
func NewFileItem(path string) AssetItem {
	return AssetItem{Kind: KindFile, Path: path}
}

// Validate checks that exactly one of Source/Path is set and matches Kind
func (i AssetItem) Validate() error {
	switch i.Kind {
	case KindInline:
		if i.Path != "" {
			return fmt.Errorf("%w: inline item must not carry a path (%q)", ErrInvalidItem, i.Path)
		}
	case KindFile:
		if i.Path == "" {
			return fmt.Errorf("%w: file item has no path", ErrInvalidItem)
		}
		if i.Source != "" {
			return fmt.Errorf("%w: file item %q must not carry inline source", ErrInvalidItem, i.Path)
		}
	default:
		return fmt.Errorf("%w: unknown kind %s", ErrInvalidItem, i.Kind)
	}
	return nil
}

// Classification is the outcome of eligibility checks for a single item
type Classification int

const (
	Standalone Classification = iota
	Pooled
)

func (c Classification) String() string {
	if c == Pooled {
		return "pooled"
	}
	return "standalone"
}

// PooledEntry is one unit of combined output: inline text, or a located file
// together with the mtime observed when it was pooled.
type PooledEntry struct {
	Inline   bool
	Text     string
	FilePath string
	ModTime  time.Time
}

// InlineEntry creates a pooled entry for inline source
func InlineEntry(text string) PooledEntry {
	return PooledEntry{Inline: true, Text: text}
}

// FileEntry creates a pooled entry for a resolved file
func FileEntry(path string, mtime time.Time) PooledEntry {
	return PooledEntry{FilePath: path, ModTime: mtime}
}
