package domain

// CachedArtifact describes the combined output file.
// A file at StoragePath means content for Fingerprint has already been written.
type CachedArtifact struct {
	StoragePath string
	WebPath     string
	Fingerprint string
	Content     []byte

	// CacheHit is true when the file already existed and nothing was written
	CacheHit bool

	// Siblings lists compressed or sidecar files written alongside (miss only)
	Siblings []string
}
