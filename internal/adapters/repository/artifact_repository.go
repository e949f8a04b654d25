package repository

import (
	"bytes"
	"crypto/subtle"
	"fmt"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
	"github.com/zeebo/blake3"

	"github.com/kamal-hamza/headpack/internal/core/domain"
	"github.com/kamal-hamza/headpack/internal/core/ports"
)

// legacyGzipHeader is the fixed header older deployments prepended to a zlib
// stream. It is not a valid gzip member header for standard decoders.
const legacyGzipHeader = "\x1f\x8b\x08\x00\x00\x00\x00\x00"

// Sibling suffixes
const (
	GzipSuffix     = ".gz"
	ZstdSuffix     = ".zst"
	ManifestSuffix = ".sum"
)

// Manifest is the integrity sidecar written next to a verified artifact
type Manifest struct {
	Fingerprint string `cbor:"fingerprint"`
	Size        int64  `cbor:"size"`
	Digest      []byte `cbor:"digest"`
}

var manifestEncMode cbor.EncMode

func init() {
	var err error
	manifestEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("repository: CBOR encoder initialization failed: " + err.Error())
	}
}

// FileArtifactStore implements ports.ArtifactStore on an afero filesystem
type FileArtifactStore struct {
	fs afero.Fs
}

// NewFileArtifactStore creates a store writing through fs
func NewFileArtifactStore(fs afero.Fs) *FileArtifactStore {
	return &FileArtifactStore{fs: fs}
}

var _ ports.ArtifactStore = (*FileArtifactStore)(nil)

// Lookup reads the artifact at path if present
func (s *FileArtifactStore) Lookup(path string, verify bool) ([]byte, bool, error) {
	exists, err := afero.Exists(s.fs, path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check artifact %s: %w", path, err)
	}
	if !exists {
		return nil, false, nil
	}

	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read artifact %s: %w", path, err)
	}

	if verify && !s.matchesManifest(path, data) {
		return nil, false, nil
	}

	return data, true, nil
}

// Save writes siblings first and the artifact last, so the artifact's
// presence implies everything next to it is complete
func (s *FileArtifactStore) Save(path string, content []byte, opts ports.SaveOptions) ([]string, error) {
	dir := filepath.Dir(path)
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w %s: %v", domain.ErrDirectoryCreation, dir, err)
	}

	var siblings []string

	if opts.GzipLevel > 0 {
		data, err := gzipBytes(content, opts.GzipLevel, opts.GzipLegacyHeader)
		if err != nil {
			return nil, err
		}
		if err := s.writeAtomic(path+GzipSuffix, data); err != nil {
			return nil, err
		}
		siblings = append(siblings, path+GzipSuffix)
	}

	if opts.ZstdLevel > 0 {
		data, err := zstdBytes(content, opts.ZstdLevel)
		if err != nil {
			return nil, err
		}
		if err := s.writeAtomic(path+ZstdSuffix, data); err != nil {
			return nil, err
		}
		siblings = append(siblings, path+ZstdSuffix)
	}

	if opts.Verify {
		sum := blake3.Sum256(content)
		data, err := manifestEncMode.Marshal(Manifest{
			Fingerprint: opts.Fingerprint,
			Size:        int64(len(content)),
			Digest:      sum[:],
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode manifest: %w", err)
		}
		if err := s.writeAtomic(path+ManifestSuffix, data); err != nil {
			return nil, err
		}
		siblings = append(siblings, path+ManifestSuffix)
	}

	if err := s.writeAtomic(path, content); err != nil {
		return nil, err
	}

	return siblings, nil
}

// ReadManifest loads the integrity sidecar for path
func (s *FileArtifactStore) ReadManifest(path string) (*Manifest, error) {
	data, err := afero.ReadFile(s.fs, path+ManifestSuffix)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := cbor.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &m, nil
}

func (s *FileArtifactStore) matchesManifest(path string, data []byte) bool {
	m, err := s.ReadManifest(path)
	if err != nil {
		return false
	}
	if m.Size != int64(len(data)) {
		return false
	}
	sum := blake3.Sum256(data)
	return subtle.ConstantTimeCompare(m.Digest, sum[:]) == 1
}

// writeAtomic writes to a temp file in the same directory and renames it
// into place, so readers never observe a truncated file
func (s *FileArtifactStore) writeAtomic(path string, data []byte) error {
	dir, base := filepath.Split(path)
	tmp, err := afero.TempFile(s.fs, dir, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := s.fs.Chmod(tmpName, 0644); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err := s.fs.Rename(tmpName, path); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}

func gzipBytes(content []byte, level int, legacy bool) ([]byte, error) {
	var buf bytes.Buffer

	if legacy {
		buf.WriteString(legacyGzipHeader)
		w, err := zlib.NewWriterLevel(&buf, level)
		if err != nil {
			return nil, fmt.Errorf("zlib writer: %w", err)
		}
		if _, err := w.Write(content); err != nil {
			return nil, fmt.Errorf("zlib compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("zlib compress: %w", err)
		}
		return buf.Bytes(), nil
	}

	w, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("gzip writer: %w", err)
	}
	if _, err := w.Write(content); err != nil {
		return nil, fmt.Errorf("gzip compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip compress: %w", err)
	}
	return buf.Bytes(), nil
}

func zstdBytes(content []byte, level int) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevel(level)))
	if err != nil {
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(content, nil), nil
}
