package domain

import (
	"encoding/hex"
	"time"
)

// Side tags a file record with the tree it was scanned from
type Side int

const (
	// SideSource marks records scanned from the source root
	SideSource Side = iota
	// SideDest marks records scanned from the destination root
	SideDest
)

// String returns the string representation of the side
func (s Side) String() string {
	if s == SideSource {
		return "source"
	}
	return "dest"
}

// FileRecord represents a regular file found during a tree scan.
// It is immutable once produced by the scanner.
type FileRecord struct {
	// Path is the slash-separated path relative to the scan root
	Path string

	// Size in bytes
	Size int64

	// ModTime is the last modification time
	ModTime time.Time

	// Mode holds the permission bits (Unix) at scan time
	Mode uint32

	// Side indicates which tree the record came from
	Side Side
}

// FingerprintedFile pairs a FileRecord with its content fingerprint.
// The fingerprint is a deterministic function of the file bytes only
// and is recomputed on every run, never cached across invocations.
type FingerprintedFile struct {
	FileRecord

	// Fingerprint is the collision-resistant content hash, used as an
	// equality proxy for identical content
	Fingerprint Fingerprint

	// GroupKey is a cheap auxiliary hash of the fingerprint bytes, used
	// only for bucketing inside the planner, never for correctness
	GroupKey uint64
}

// Fingerprint is a raw content hash digest
type Fingerprint [32]byte

// IsZero reports whether the fingerprint has not been computed
func (f Fingerprint) IsZero() bool {
	return f == Fingerprint{}
}

// String returns the hex encoding of the fingerprint
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}
