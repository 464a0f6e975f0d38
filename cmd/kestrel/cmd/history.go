package cmd

import (
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kestrelsync/kestrel/internal/state"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <dest>",
	Short: "Show recent sync runs for a destination",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, err := state.DefaultDataDir()
		if err != nil {
			return err
		}
		mgr, err := state.NewManager(dataDir)
		if err != nil {
			return err
		}
		defer mgr.Close()

		absDest, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		runs, err := mgr.RecentRuns(absDest, historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			info("No recorded runs for %s", absDest)
			return nil
		}

		for _, r := range runs {
			info("%s  %-8s  %d copied (%s), %d renamed (%s saved), %d deleted, %d failed",
				r.StartTime.Format(time.RFC3339), r.Status,
				r.FilesCopied, humanize.IBytes(uint64(r.BytesCopied)),
				r.FilesRenamed, humanize.IBytes(uint64(r.BytesSaved)),
				r.FilesDeleted, r.FilesFailed)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "number of runs to show")
	rootCmd.AddCommand(historyCmd)
}
