package services

import (
	"encoding/binary"
	"encoding/hex"
	"io"

	"github.com/zeebo/blake3"

	"github.com/kamal-hamza/headpack/internal/core/domain"
	"github.com/kamal-hamza/headpack/pkg/config"
)

// Entry tags in the canonical serialization
const (
	tagInline  byte = 'S'
	tagFile    byte = 'F'
	tagSymlink byte = 'L'
)

// Fingerprint computes the cache key of an ordered pooled set.
//
// Inline entries contribute their text; file entries contribute their
// absolute path and modification time, so touching a file changes the key
// even when its bytes do not. Entry order is part of the key.
// Every field is length-prefixed to keep the serialization unambiguous.
func Fingerprint(entries []domain.PooledEntry) string {
	return hex.EncodeToString(entriesHasher(entries).Sum(nil))
}

// StylesheetFingerprint also covers the virtual-path table, which decides
// how url() references are rewritten. With no symlinks it equals Fingerprint.
func StylesheetFingerprint(entries []domain.PooledEntry, symlinks config.SymlinkTable) string {
	hasher := entriesHasher(entries)
	for _, link := range symlinks {
		hasher.Write([]byte{tagSymlink})
		writeField(hasher, []byte(link.Virtual))
		writeField(hasher, []byte(link.Real))
	}
	return hex.EncodeToString(hasher.Sum(nil))
}

func entriesHasher(entries []domain.PooledEntry) *blake3.Hasher {
	hasher := blake3.New()

	var count [8]byte
	binary.BigEndian.PutUint64(count[:], uint64(len(entries)))
	hasher.Write(count[:])

	for _, e := range entries {
		if e.Inline {
			hasher.Write([]byte{tagInline})
			writeField(hasher, []byte(e.Text))
			continue
		}

		hasher.Write([]byte{tagFile})
		writeField(hasher, []byte(e.FilePath))

		var mtime [8]byte
		binary.BigEndian.PutUint64(mtime[:], uint64(e.ModTime.UnixNano()))
		writeField(hasher, mtime[:])
	}

	return hasher
}

func writeField(w io.Writer, data []byte) {
	var length [8]byte
	binary.BigEndian.PutUint64(length[:], uint64(len(data)))
	w.Write(length[:])
	w.Write(data)
}

// BuildFilename returns fingerprint[_compressed].ext
func BuildFilename(fingerprint string, compress bool, ext string) string {
	name := fingerprint
	if compress {
		name += CompressedSuffix
	}
	return name + "." + ext
}
