package repository

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"

	"github.com/kamal-hamza/headpack/internal/core/domain"
	"github.com/kamal-hamza/headpack/internal/core/ports"
)

const artifactPath = "/srv/www/cache/js/abc123.js"

var sample = []byte(strings.Repeat("function hello(){return 'world';}\n", 40))

func TestLookup_Missing(t *testing.T) {
	store := NewFileArtifactStore(afero.NewMemMapFs())

	data, hit, err := store.Lookup(artifactPath, false)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, data)
}

func TestSave_ThenLookup(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileArtifactStore(fs)

	siblings, err := store.Save(artifactPath, sample, ports.SaveOptions{Fingerprint: "abc123"})
	require.NoError(t, err)
	assert.Empty(t, siblings)

	data, hit, err := store.Lookup(artifactPath, false)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, sample, data)

	info, err := fs.Stat(artifactPath)
	require.NoError(t, err)
	assert.Equal(t, "-rw-r--r--", info.Mode().Perm().String())
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileArtifactStore(fs)

	_, err := store.Save(artifactPath, sample, ports.SaveOptions{GzipLevel: 6, ZstdLevel: 1, Verify: true})
	require.NoError(t, err)

	entries, err := afero.ReadDir(fs, filepath.Dir(artifactPath))
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"abc123.js", "abc123.js.gz", "abc123.js.zst", "abc123.js.sum"}, names)
}

func TestSave_Overwrites(t *testing.T) {
	store := NewFileArtifactStore(afero.NewMemMapFs())

	_, err := store.Save(artifactPath, []byte("old"), ports.SaveOptions{})
	require.NoError(t, err)
	_, err = store.Save(artifactPath, []byte("new"), ports.SaveOptions{})
	require.NoError(t, err)

	data, hit, err := store.Lookup(artifactPath, false)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "new", string(data))
}

func TestSave_Gzip(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileArtifactStore(fs)

	siblings, err := store.Save(artifactPath, sample, ports.SaveOptions{GzipLevel: 9})
	require.NoError(t, err)
	assert.Equal(t, []string{artifactPath + GzipSuffix}, siblings)

	compressed, err := afero.ReadFile(fs, artifactPath+GzipSuffix)
	require.NoError(t, err)
	assert.Less(t, len(compressed), len(sample))

	r, err := gzip.NewReader(bytes.NewReader(compressed))
	require.NoError(t, err)
	decoded, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, sample, decoded)
}

func TestSave_GzipLegacyHeader(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileArtifactStore(fs)

	_, err := store.Save(artifactPath, sample, ports.SaveOptions{GzipLevel: 6, GzipLegacyHeader: true})
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, artifactPath+GzipSuffix)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte(legacyGzipHeader)))

	r, err := zlib.NewReader(bytes.NewReader(data[len(legacyGzipHeader):]))
	require.NoError(t, err)
	decoded, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, sample, decoded)
}

func TestSave_Zstd(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileArtifactStore(fs)

	for level := 1; level <= 4; level++ {
		siblings, err := store.Save(artifactPath, sample, ports.SaveOptions{ZstdLevel: level})
		require.NoError(t, err)
		assert.Equal(t, []string{artifactPath + ZstdSuffix}, siblings)

		data, err := afero.ReadFile(fs, artifactPath+ZstdSuffix)
		require.NoError(t, err)

		dec, err := zstd.NewReader(nil)
		require.NoError(t, err)
		decoded, err := dec.DecodeAll(data, nil)
		dec.Close()
		require.NoError(t, err)
		assert.Equal(t, sample, decoded, "level %d", level)
	}
}

func TestSave_Manifest(t *testing.T) {
	store := NewFileArtifactStore(afero.NewMemMapFs())

	siblings, err := store.Save(artifactPath, sample, ports.SaveOptions{Fingerprint: "abc123", Verify: true})
	require.NoError(t, err)
	assert.Equal(t, []string{artifactPath + ManifestSuffix}, siblings)

	m, err := store.ReadManifest(artifactPath)
	require.NoError(t, err)

	sum := blake3.Sum256(sample)
	assert.Equal(t, "abc123", m.Fingerprint)
	assert.Equal(t, int64(len(sample)), m.Size)
	assert.Equal(t, sum[:], m.Digest)
}

func TestLookup_Verify(t *testing.T) {
	tests := []struct {
		name    string
		tamper  func(fs afero.Fs)
		wantHit bool
	}{
		{"intact", func(afero.Fs) {}, true},
		{"content changed", func(fs afero.Fs) {
			afero.WriteFile(fs, artifactPath, bytes.ToUpper(sample), 0644)
		}, false},
		{"content truncated", func(fs afero.Fs) {
			afero.WriteFile(fs, artifactPath, sample[:10], 0644)
		}, false},
		{"manifest missing", func(fs afero.Fs) {
			fs.Remove(artifactPath + ManifestSuffix)
		}, false},
		{"manifest garbage", func(fs afero.Fs) {
			afero.WriteFile(fs, artifactPath+ManifestSuffix, []byte("not cbor"), 0644)
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			store := NewFileArtifactStore(fs)
			_, err := store.Save(artifactPath, sample, ports.SaveOptions{Verify: true})
			require.NoError(t, err)

			tt.tamper(fs)

			_, hit, err := store.Lookup(artifactPath, true)
			require.NoError(t, err)
			assert.Equal(t, tt.wantHit, hit)

			// Without verification presence is enough
			_, hit, err = store.Lookup(artifactPath, false)
			require.NoError(t, err)
			assert.True(t, hit)
		})
	}
}

func TestSave_DirectoryCreationFailure(t *testing.T) {
	store := NewFileArtifactStore(afero.NewReadOnlyFs(afero.NewMemMapFs()))

	_, err := store.Save(artifactPath, sample, ports.SaveOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDirectoryCreation))
}
