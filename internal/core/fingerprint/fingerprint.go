package fingerprint

import (
	"context"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"lukechampine.com/blake3"

	"github.com/kestrelsync/kestrel/internal/domain"
)

// Algorithm represents the hashing algorithm to use
type Algorithm string

const (
	// BLAKE3 algorithm (fast, parallelizable, recommended default)
	BLAKE3 Algorithm = "blake3"
	// SHA256 algorithm (slower, universally available)
	SHA256 Algorithm = "sha256"
)

// IsSupported checks if the given algorithm is supported
func IsSupported(algo Algorithm) bool {
	switch algo {
	case BLAKE3, SHA256:
		return true
	default:
		return false
	}
}

// Options configures the fingerprint calculator
type Options struct {
	// Algorithm selects the content hash; default BLAKE3
	Algorithm Algorithm

	// BufferSize is the chunk size for streaming reads.
	// Peak memory per file is one buffer regardless of file size.
	BufferSize int
}

// DefaultOptions returns the recommended default options
func DefaultOptions() Options {
	return Options{
		Algorithm:  BLAKE3,
		BufferSize: 256 * 1024,
	}
}

// Calculator computes content fingerprints
type Calculator interface {
	// Calculate streams a reader through the hasher and returns the digest
	Calculate(ctx context.Context, reader io.Reader) (domain.Fingerprint, error)

	// File fingerprints a file on disk
	File(ctx context.Context, path string) (domain.Fingerprint, error)
}

// DefaultCalculator implements Calculator with streaming reads
type DefaultCalculator struct {
	opts Options
}

// NewCalculator creates a calculator with the given options
func NewCalculator(opts Options) (*DefaultCalculator, error) {
	if opts.Algorithm == "" {
		opts.Algorithm = BLAKE3
	}
	if !IsSupported(opts.Algorithm) {
		return nil, fmt.Errorf("unsupported algorithm: %s", opts.Algorithm)
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultOptions().BufferSize
	}
	return &DefaultCalculator{opts: opts}, nil
}

// NewDefaultCalculator creates a calculator with default options
func NewDefaultCalculator() *DefaultCalculator {
	c, _ := NewCalculator(DefaultOptions())
	return c
}

// NewHash returns a fresh hash.Hash for the configured algorithm
func (c *DefaultCalculator) NewHash() hash.Hash {
	switch c.opts.Algorithm {
	case SHA256:
		return sha256.New()
	default:
		return blake3.New(32, nil)
	}
}

// Calculate implements the Calculator interface
func (c *DefaultCalculator) Calculate(ctx context.Context, reader io.Reader) (domain.Fingerprint, error) {
	h := c.NewHash()
	buffer := make([]byte, c.opts.BufferSize)

	for {
		select {
		case <-ctx.Done():
			return domain.Fingerprint{}, ctx.Err()
		default:
		}

		n, err := reader.Read(buffer)
		if n > 0 {
			if _, hashErr := h.Write(buffer[:n]); hashErr != nil {
				return domain.Fingerprint{}, fmt.Errorf("hash write error: %w", hashErr)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return domain.Fingerprint{}, fmt.Errorf("read error: %w", err)
		}
	}

	return digest(h), nil
}

// File fingerprints a file on disk using streaming reads
func (c *DefaultCalculator) File(ctx context.Context, path string) (domain.Fingerprint, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Fingerprint{}, fmt.Errorf("%w: %s: %v", domain.ErrHashFailed, path, err)
	}
	defer f.Close()

	fp, err := c.Calculate(ctx, f)
	if err != nil {
		return domain.Fingerprint{}, fmt.Errorf("%w: %s: %v", domain.ErrHashFailed, path, err)
	}
	return fp, nil
}

// GroupKey derives the cheap auxiliary hash used for planner bucketing.
// Never used for correctness decisions.
func GroupKey(fp domain.Fingerprint) uint64 {
	return xxhash.Sum64(fp[:])
}

func digest(h hash.Hash) domain.Fingerprint {
	var fp domain.Fingerprint
	copy(fp[:], h.Sum(nil))
	return fp
}
