package cmd

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kestrelsync/kestrel/internal/core/fingerprint"
	"github.com/kestrelsync/kestrel/internal/domain"
	"github.com/kestrelsync/kestrel/internal/engine"
	"github.com/kestrelsync/kestrel/internal/state"
)

var (
	syncDryRun  bool
	syncDelete  bool
	syncYes     bool
	syncVerify  bool
	syncThreads int
	syncExclude []string
)

var syncCmd = &cobra.Command{
	Use:   "sync <source> <dest>",
	Short: "Mirror dest to match source",
	Long: `Scans both trees, fingerprints file content, computes the minimal set
of copies, renames and deletes, and applies it with crash-safe writes.
Files whose content already exists in the destination under another
path are relocated without re-transferring bytes.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := initLogger(cfg); err != nil {
			return err
		}

		opts := engine.DefaultOptions()
		opts.DryRun = syncDryRun
		opts.DeleteExtraneous = syncDelete || cfg.Delete
		opts.Verify = syncVerify || cfg.Verify
		opts.ThreadCount = syncThreads
		if syncThreads == 0 {
			opts.ThreadCount = cfg.Threads
		}
		opts.ExcludePatterns = append(cfg.Exclude, syncExclude...)
		opts.FuzzyThreshold = cfg.FuzzyThreshold
		opts.Algorithm = fingerprint.Algorithm(cfg.Algorithm)
		opts.PreserveTimes = cfg.PreserveTimes
		opts.PruneEmptyDirs = cfg.PruneEmptyDirs

		if cfg.History && !syncDryRun {
			if dataDir, err := state.DefaultDataDir(); err == nil {
				if mgr, err := state.NewManager(dataDir); err == nil {
					opts.History = mgr
					defer mgr.Close()
				}
			}
		}

		eng, err := engine.New(opts)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		source, dest := args[0], args[1]

		// Dry-run first when a confirmation is needed, so the user sees
		// the plan before anything is mutated.
		if !syncDryRun && !syncYes && !quiet {
			preview := opts
			preview.DryRun = true
			prevEng, err := engine.New(preview)
			if err != nil {
				return err
			}
			previewResult, err := prevEng.Sync(ctx, source, dest)
			if err != nil {
				return err
			}
			if previewResult.Plan.InSync() {
				info("In sync")
				return nil
			}
			printPlanSummary(previewResult.Plan, opts.DeleteExtraneous)
			if !confirm() {
				return nil
			}
		}

		result, err := eng.Sync(ctx, source, dest)
		if err != nil {
			return err
		}

		if syncDryRun {
			printPlanSummary(result.Plan, opts.DeleteExtraneous)
			info("(dry run)")
			exitCode = result.ExitCode()
			return nil
		}

		printRunSummary(result)
		exitCode = result.ExitCode()
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVarP(&syncDryRun, "dry-run", "n", false, "show changes without applying")
	syncCmd.Flags().BoolVarP(&syncDelete, "delete", "d", false, "delete dest files not in source")
	syncCmd.Flags().BoolVarP(&syncYes, "yes", "y", false, "skip confirmation prompt")
	syncCmd.Flags().BoolVar(&syncVerify, "verify", false, "re-hash files after writing")
	syncCmd.Flags().IntVarP(&syncThreads, "threads", "j", 0, "worker count (default: CPU count)")
	syncCmd.Flags().StringArrayVarP(&syncExclude, "exclude", "e", nil, "exclude paths matching pattern (repeatable)")

	rootCmd.AddCommand(syncCmd)
}

// printPlanSummary renders what the plan would change
func printPlanSummary(plan *domain.SyncPlan, deleteMode bool) {
	var parts []string
	if plan.Stats.FilesToCopy > 0 {
		parts = append(parts, fmt.Sprintf("%d to copy (%s)",
			plan.Stats.FilesToCopy, humanize.IBytes(uint64(plan.Stats.BytesToCopy))))
	}
	if plan.Stats.FilesToRename > 0 {
		parts = append(parts, fmt.Sprintf("%d to rename (%s saved)",
			plan.Stats.FilesToRename, humanize.IBytes(uint64(plan.Stats.BytesRenamed))))
	}
	if deleteMode && plan.Stats.FilesToDelete > 0 {
		parts = append(parts, fmt.Sprintf("%d to delete", plan.Stats.FilesToDelete))
	}
	if len(parts) == 0 {
		info("In sync")
		return
	}
	info("%s", strings.Join(parts, ", "))

	if verbose {
		printActionDetails(plan)
	}
}

// printActionDetails lists a sample of pending actions per category
func printActionDetails(plan *domain.SyncPlan) {
	const sample = 5
	shown := map[domain.ActionType]int{}
	for _, action := range plan.Actions {
		if action.Type == domain.ActionSkip {
			continue
		}
		if shown[action.Type] >= sample {
			continue
		}
		shown[action.Type]++
		switch action.Type {
		case domain.ActionRename:
			info("  rename %s -> %s", action.OldPath, action.Path)
		case domain.ActionCopy:
			if action.Relocated {
				info("  copy   %s (was %s)", action.Path, action.OldPath)
			} else {
				info("  copy   %s", action.Path)
			}
		case domain.ActionDelete:
			info("  delete %s", action.Path)
		}
	}
}

// printRunSummary renders the applied result
func printRunSummary(result *engine.Result) {
	s := result.Stats
	if s.BytesCopied == 0 && s.BytesSaved == 0 && s.FilesDeleted == 0 && len(result.Failures) == 0 {
		info("In sync")
		return
	}

	var parts []string
	if s.FilesCopied > 0 {
		parts = append(parts, fmt.Sprintf("%s copied", humanize.IBytes(uint64(s.BytesCopied))))
	}
	if s.FilesRenamed > 0 {
		parts = append(parts, fmt.Sprintf("%s renamed", humanize.IBytes(uint64(s.BytesSaved))))
	}
	if s.FilesDeleted > 0 {
		parts = append(parts, fmt.Sprintf("%d deleted", s.FilesDeleted))
	}
	if len(parts) > 0 {
		info("Done. %s in %.2fs", strings.Join(parts, ", "), result.Duration.Seconds())
	} else {
		info("Done.")
	}

	for _, f := range result.Failures {
		errorf("failed: %s: %v", f.Path, f.Err)
	}
	if len(result.Failures) > 0 {
		errorf("%d files failed", len(result.Failures))
	}
}

// confirm asks the user to proceed
func confirm() bool {
	fmt.Print("Proceed? [y/N] ")
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(input), "y")
}
