package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/kestrelsync/kestrel/internal/domain"
)

// DefaultConfigPaths returns the default paths to search for config files
func DefaultConfigPaths() []string {
	paths := []string{"."}

	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "kestrel"))
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".kestrel"))
	}
	return paths
}

// Load reads and parses a configuration file.
// If path is empty, default locations are searched; a missing file is
// not an error and yields the built-in defaults. Environment variables
// with the KESTREL_ prefix override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("KESTREL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("kestrel")
		v.SetConfigType("yaml")
		for _, p := range DefaultConfigPaths() {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		switch {
		case path != "" && os.IsNotExist(err):
			// An explicitly named file must exist.
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		case errors.As(err, &viper.ConfigFileNotFoundError{}):
			// No config file in the default locations is fine.
		default:
			return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("threads", d.Threads)
	v.SetDefault("verify", d.Verify)
	v.SetDefault("delete", d.Delete)
	v.SetDefault("preserve_times", d.PreserveTimes)
	v.SetDefault("prune_empty_dirs", d.PruneEmptyDirs)
	v.SetDefault("algorithm", d.Algorithm)
	v.SetDefault("fuzzy_threshold", d.FuzzyThreshold)
	v.SetDefault("history", d.History)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file.enabled", d.Log.File.Enabled)
	v.SetDefault("log.file.max_size_mb", d.Log.File.MaxSizeMB)
	v.SetDefault("log.file.max_age_days", d.Log.File.MaxAgeDays)
	v.SetDefault("log.file.max_backups", d.Log.File.MaxBackups)
}
