package config

import (
	"fmt"

	"github.com/kestrelsync/kestrel/internal/core/fingerprint"
	"github.com/kestrelsync/kestrel/internal/domain"
)

// Config represents the complete configuration for kestrel
type Config struct {
	// Threads is the worker pool size; 0 selects the CPU count
	Threads int `mapstructure:"threads"`

	// Exclude patterns filter both scans
	Exclude []string `mapstructure:"exclude"`

	// Verify re-reads finalized copies against source fingerprints
	Verify bool `mapstructure:"verify"`

	// Delete enables removal of extraneous destination files
	Delete bool `mapstructure:"delete"`

	// PreserveTimes carries source modification times onto copies
	PreserveTimes bool `mapstructure:"preserve_times"`

	// PruneEmptyDirs removes now-empty directories after deletes
	PruneEmptyDirs bool `mapstructure:"prune_empty_dirs"`

	// Algorithm selects the content fingerprint (blake3 or sha256)
	Algorithm string `mapstructure:"algorithm"`

	// FuzzyThreshold tunes fuzzy rename pairing; 0 keeps the default
	FuzzyThreshold float64 `mapstructure:"fuzzy_threshold"`

	// History enables the per-user run-history journal
	History bool `mapstructure:"history"`

	// Log configures logging output
	Log LogConfig `mapstructure:"log"`
}

// LogConfig configures the logger
type LogConfig struct {
	Level  string        `mapstructure:"level"`
	Format string        `mapstructure:"format"`
	File   LogFileConfig `mapstructure:"file"`
}

// LogFileConfig configures rotating file output
type LogFileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Threads:        0,
		PreserveTimes:  true,
		PruneEmptyDirs: true,
		Algorithm:      string(fingerprint.BLAKE3),
		History:        true,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			File: LogFileConfig{
				MaxSizeMB:  10,
				MaxAgeDays: 30,
				MaxBackups: 3,
			},
		},
	}
}

// Validate checks if the configuration is consistent
func (c *Config) Validate() error {
	if c.Threads < 0 {
		return fmt.Errorf("%w: threads must be >= 0", domain.ErrConfigInvalid)
	}
	if c.Algorithm != "" && !fingerprint.IsSupported(fingerprint.Algorithm(c.Algorithm)) {
		return fmt.Errorf("%w: unknown algorithm %q", domain.ErrConfigInvalid, c.Algorithm)
	}
	if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 1 {
		return fmt.Errorf("%w: fuzzy_threshold must be in [0,1]", domain.ErrConfigInvalid)
	}
	if c.Log.File.Enabled && c.Log.File.Path == "" {
		return fmt.Errorf("%w: log file enabled without a path", domain.ErrConfigInvalid)
	}
	return nil
}
