package webroot

import (
	"errors"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/kamal-hamza/headpack/pkg/config"
)

// ErrNotFound means a logical path could not be resolved to a readable file,
// neither directly nor through the virtual-path table
var ErrNotFound = errors.New("asset not found")

// Resolver translates between web-relative asset paths and storage paths
// under a document root
type Resolver struct {
	fs       afero.Fs
	root     string
	symlinks config.SymlinkTable
}

// New creates a resolver rooted at the given document root.
// The root is resolved once by the caller; nothing is read from the environment here.
func New(fs afero.Fs, root string, symlinks config.SymlinkTable) *Resolver {
	return &Resolver{
		fs:       fs,
		root:     cleanRoot(root),
		symlinks: symlinks,
	}
}

// Root returns the normalized document root
func (r *Resolver) Root() string {
	return r.root
}

// Symlinks returns the virtual-path table in lookup order
func (r *Resolver) Symlinks() config.SymlinkTable {
	return r.symlinks
}

// Normalize returns the canonical web form of a logical path: one leading
// slash, no "." or ".." segments, no trailing slash
func Normalize(logical string) string {
	return path.Clean("/" + strings.TrimLeft(filepath.ToSlash(logical), "/"))
}

// ToStoragePath prefixes the logical path with the document root
func (r *Resolver) ToStoragePath(logical string) string {
	rel := strings.TrimPrefix(Normalize(logical), "/")
	if rel == "" {
		return r.root
	}
	return filepath.Join(r.root, filepath.FromSlash(rel))
}

// ToWebPath strips the document root and returns a path with a single leading slash.
// Paths outside the root are returned normalized but otherwise unchanged.
func (r *Resolver) ToWebPath(absolute string) string {
	p := filepath.Clean(absolute)
	if rel, ok := r.relToRoot(p); ok {
		return Normalize(rel)
	}
	return Normalize(p)
}

// Locate finds a readable file for the logical path. The storage path is
// tried first, then each virtual prefix in table order is substituted into
// the logical path; the first readable candidate wins.
func (r *Resolver) Locate(logical string) (string, error) {
	direct := r.ToStoragePath(logical)
	if r.readable(direct) {
		return direct, nil
	}

	webPath := "/" + strings.TrimLeft(filepath.ToSlash(logical), "/")
	for _, link := range r.symlinks {
		if link.Virtual == "" || !strings.HasPrefix(webPath, link.Virtual) {
			continue
		}
		candidate := filepath.Clean(filepath.FromSlash(link.Real + strings.TrimPrefix(webPath, link.Virtual)))
		if !within(candidate, filepath.Clean(filepath.FromSlash(link.Real))) {
			continue
		}
		if r.readable(candidate) {
			return candidate, nil
		}
	}

	return "", ErrNotFound
}

// RealToWeb maps a real filesystem path back to its web path, reversing the
// virtual-path table when the path is outside the document root
func (r *Resolver) RealToWeb(absolute string) string {
	p := filepath.ToSlash(filepath.Clean(absolute))
	if _, ok := r.relToRoot(filepath.FromSlash(p)); ok {
		return r.ToWebPath(p)
	}
	for _, link := range r.symlinks {
		realPrefix := strings.TrimRight(filepath.ToSlash(link.Real), "/")
		if realPrefix == "" {
			continue
		}
		if p == realPrefix || strings.HasPrefix(p, realPrefix+"/") {
			return Normalize(strings.TrimRight(link.Virtual, "/") + strings.TrimPrefix(p, realPrefix))
		}
	}
	return r.ToWebPath(p)
}

// ModTime returns the modification time of a located file
func (r *Resolver) ModTime(storagePath string) (time.Time, error) {
	info, err := r.fs.Stat(storagePath)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// ReadFile returns the content of a located file
func (r *Resolver) ReadFile(storagePath string) ([]byte, error) {
	return afero.ReadFile(r.fs, storagePath)
}

// readable reports whether path names a regular file that can be opened
func (r *Resolver) readable(p string) bool {
	info, err := r.fs.Stat(p)
	if err != nil || info.IsDir() {
		return false
	}
	f, err := r.fs.Open(p)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

func (r *Resolver) relToRoot(p string) (string, bool) {
	if p == r.root {
		return "", true
	}
	prefix := r.root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	if strings.HasPrefix(p, prefix) {
		return filepath.ToSlash(strings.TrimPrefix(p, prefix)), true
	}
	return "", false
}

// within reports whether p is dir or below it; ".." segments must not climb out
func within(p, dir string) bool {
	if p == dir {
		return true
	}
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}
	return strings.HasPrefix(p, dir)
}

func cleanRoot(root string) string {
	if root == "" {
		return string(filepath.Separator)
	}
	return filepath.Clean(root)
}
