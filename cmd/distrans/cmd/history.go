package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mistvane/distrans/internal/config"
	"github.com/mistvane/distrans/internal/ledger"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent runs recorded in the ledger",
	Long: `history lists the most recent distrans runs recorded in the run
ledger database, newest first. It does not affect and cannot resume a run;
the ledger is a write-only audit trail.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of runs to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	led, err := ledger.Open(cfg.Database, nil)
	if err != nil {
		return fmt.Errorf("opening run ledger: %w", err)
	}
	defer func() { _ = led.Close() }()

	runs, err := led.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tSTATUS\tCHUNKS\tHOSTS\tINPUT\tOUTPUT")
	for _, r := range runs {
		status := "ok"
		if !r.Succeeded {
			status = "failed"
			if r.Error != "" {
				status = "failed: " + r.Error
			}
		}
		if r.FinishedAt.IsZero() {
			status = "incomplete"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			r.StartedAt.Format("2006-01-02 15:04:05"), status, r.ChunkCount, r.Hosts, r.Input, r.Output)
	}
	return w.Flush()
}
