package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/andresmejia3/facekit/internal/store"
	"github.com/andresmejia3/facekit/internal/utils"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every person in the dataset ledger with image and crop counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		if DB == nil {
			return errNoLedger
		}
		return runList(cmd.Context(), os.Stdout, DB)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(ctx context.Context, out io.Writer, db *store.Store) error {
	people, err := db.ListPeople(ctx)
	if err != nil {
		utils.ShowError("Failed to list people", err, nil)
		return err
	}

	if len(people) == 0 {
		fmt.Fprintln(out, "No people found in the ledger.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "PERSON\tIMAGES\tCROPS\tLAST ACTIVE")
	fmt.Fprintln(w, "------\t------\t-----\t-----------")

	for _, p := range people {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", p.Person, p.Images, p.Crops, p.LastActive.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
