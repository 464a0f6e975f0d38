package domain

import "errors"

// Scan errors
var (
	// ErrRootUnreadable indicates the scan root itself cannot be read.
	// Fatal: the run aborts before any destination mutation.
	ErrRootUnreadable = errors.New("root unreadable")

	// ErrNotDirectory indicates a scan root is not a directory
	ErrNotDirectory = errors.New("not a directory")
)

// Fingerprint errors
var (
	// ErrHashFailed indicates a file could not be read during
	// fingerprinting; the file is excluded from the plan and reported
	ErrHashFailed = errors.New("fingerprint failed")
)

// Apply errors
var (
	// ErrVerifyMismatch indicates a post-write re-hash disagrees with the
	// source fingerprint. Fatal for the file; it is never finalized.
	ErrVerifyMismatch = errors.New("verify mismatch")

	// ErrCrossDevice indicates temp file and destination target reside on
	// different filesystems; the apply engine degrades to copy-then-delete
	ErrCrossDevice = errors.New("cross-device rename")
)

// Run errors
var (
	// ErrLockHeld indicates another process is already mirroring the
	// same destination
	ErrLockHeld = errors.New("destination lock held")

	// ErrInvalidOptions indicates the run options fail validation
	ErrInvalidOptions = errors.New("invalid options")

	// ErrConfigNotFound indicates no config file was found
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigInvalid indicates the config file is malformed
	ErrConfigInvalid = errors.New("invalid config")
)
