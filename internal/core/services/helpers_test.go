package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const testRoot = "/srv/www"

var baseTime = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

// seedFile writes content at path and pins its modification time
func seedFile(t *testing.T, fs afero.Fs, path, content string, mtime time.Time) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
	require.NoError(t, fs.Chtimes(path, mtime, mtime))
}

func readString(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(data)
}
