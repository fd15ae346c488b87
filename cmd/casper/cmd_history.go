package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/edeas123/aws-terraform-casper/storage"
)

var historyStateFile string

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the inventory revisions kept by the bolt backend",
	Example: `  casper history
  casper history --state-file casper.db`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&historyStateFile, "state-file", "", "Bolt database holding the revisions (default terraform_state)")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(globals, &stateFlags{stateFile: historyStateFile})
	if err != nil {
		return err
	}

	return execute(cmd.Context(), cfg, cmd.OutOrStdout(), func(ctx context.Context, a *app) error {
		revisions, err := storage.NewBoltStore(a.cfg.State.File).History(ctx)
		if err != nil {
			return err
		}
		printHistory(a.out, revisions)
		return nil
	})
}

func printHistory(w io.Writer, revisions []storage.Revision) {
	if len(revisions) == 0 {
		fmt.Fprintln(w, "No revisions saved yet")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "REVISION\tSAVED\tGROUPS\tRESOURCES")
	for _, rev := range revisions {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", rev.Number, rev.SavedAt.UTC().Format(time.RFC3339), rev.Groups, rev.Resources)
	}
	_ = tw.Flush()
}
