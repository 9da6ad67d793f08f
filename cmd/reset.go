package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/andresmejia3/facekit/internal/utils"
	"github.com/spf13/cobra"
)

var (
	resetDB    bool
	resetFiles bool
	resetYes   bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset dataset state (ledger tables, downloaded and cropped images)",
	Long:  "Clears all data. By default, it resets everything. Use flags to clear specific components.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		// If no flags are set, default to clearing EVERYTHING
		if !resetDB && !resetFiles {
			resetDB = DB != nil
			resetFiles = true
		}
		if resetDB && DB == nil {
			return errNoLedger
		}
		if !resetYes && !isInteractive() {
			return errors.New("refusing to reset without a terminal: pass --yes")
		}

		if resetDB && (resetYes || confirm(stdin, "⚠️  Are you sure you want to DROP all ledger tables?")) {
			fmt.Println("🗑️  Clearing Database...")
			if err := DB.Reset(cmd.Context()); err != nil {
				utils.ShowError("Failed to reset database", err, nil)
				return err
			}
		}

		if resetFiles {
			dirs := datasetDirs()
			if resetYes || confirm(stdin, fmt.Sprintf("⚠️  Are you sure you want to delete %v?", dirs)) {
				fmt.Println("🗑️  Clearing dataset folders...")
				for _, d := range dirs {
					removeDir(d)
				}
			}
		}

		fmt.Println("✨ Reset Complete.")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetDB, "db", false, "Drop the PostgreSQL ledger tables")
	resetCmd.Flags().BoolVar(&resetFiles, "files", false, "Delete the downloaded and cropped image folders")
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(resetCmd)
}

// datasetDirs lists the configured image roots, skipping duplicates.
func datasetDirs() []string {
	var dirs []string
	seen := map[string]bool{}
	for _, d := range []string{cfg.OriginalsDir, cfg.CropInputDir, cfg.CroppedDir} {
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		dirs = append(dirs, d)
	}
	return dirs
}

func removeDir(path string) {
	if err := os.RemoveAll(path); err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Failed to remove %s: %v\n", path, err)
	}
}
