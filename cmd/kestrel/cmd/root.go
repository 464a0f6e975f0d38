package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kestrelsync/kestrel/internal/config"
	"github.com/kestrelsync/kestrel/internal/logger"
)

// Build-time variables set via -ldflags.
var (
	version = "dev"
	commit  = "none"
)

// Global flags.
var (
	configPath string
	verbose    bool
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "kestrel",
	Short: "Fast, minimal-transfer directory mirroring",
	Long: `kestrel mirrors a destination directory tree to match a source tree
while moving as little data as possible: unchanged files are untouched,
renamed files are relocated without re-transferring bytes, and every
write is crash-safe.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("kestrel %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "detailed output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "minimal output (errors only)")

	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file and applies verbosity flags
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if quiet {
		cfg.Log.Level = "error"
	}
	return cfg, nil
}

// initLogger sets up the global logger from the loaded config
func initLogger(cfg *config.Config) error {
	return logger.Init(logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: logger.ParseFormat(cfg.Log.Format),
		File: logger.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			MaxBackups: cfg.Log.File.MaxBackups,
			Compress:   cfg.Log.File.Compress,
		},
	})
}

// Execute runs the root command and returns the process exit code
func Execute() int {
	defer logger.Shutdown()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return exitCode
}

// exitCode carries a nonzero status out of commands that completed with
// file-level failures
var exitCode int
