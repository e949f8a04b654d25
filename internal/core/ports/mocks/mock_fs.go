package mocks

import (
	"os"
	"sync"

	"github.com/spf13/afero"
)

// --- CountingFs ---

// CountingFs wraps an afero.Fs and counts the operations that change it.
// Renames are the commit step of every artifact write, so they count materializations.
type CountingFs struct {
	afero.Fs

	mu        sync.Mutex
	renames   []string
	mkdirFail error
}

// NewCountingFs wraps base
func NewCountingFs(base afero.Fs) *CountingFs {
	return &CountingFs{Fs: base}
}

func (c *CountingFs) Rename(oldname, newname string) error {
	c.mu.Lock()
	c.renames = append(c.renames, newname)
	c.mu.Unlock()
	return c.Fs.Rename(oldname, newname)
}

func (c *CountingFs) MkdirAll(path string, perm os.FileMode) error {
	c.mu.Lock()
	fail := c.mkdirFail
	c.mu.Unlock()
	if fail != nil {
		return &os.PathError{Op: "mkdir", Path: path, Err: fail}
	}
	return c.Fs.MkdirAll(path, perm)
}

// SetMkdirFailure makes every MkdirAll fail with err (nil restores normal behavior)
func (c *CountingFs) SetMkdirFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mkdirFail = err
}

// Writes returns the destination of every rename so far
func (c *CountingFs) Writes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.renames))
	copy(out, c.renames)
	return out
}

// WritesTo counts renames onto path
func (c *CountingFs) WritesTo(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, r := range c.renames {
		if r == path {
			n++
		}
	}
	return n
}

func (c *CountingFs) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renames = nil
	c.mkdirFail = nil
}
