package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/secscan/pkg/config"
	"github.com/user/secscan/pkg/engine"
	"github.com/user/secscan/pkg/history"
)

var historyLast int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the trend of recent scan runs",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(ConfigPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		store := history.NewStore(cfg.ReportsDir)
		runs, err := store.ReadLatest(historyLast)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading history: %v\n", err)
			os.Exit(1)
		}
		if len(runs) == 0 {
			fmt.Println("No scan history yet.")
			return
		}

		fmt.Printf("%-25s %-8s %9s %9s %7s %5s %7s\n",
			"TIMESTAMP", "VERDICT", "CRITICAL", "HIGH", "MEDIUM", "LOW", "ERRORS")
		for _, run := range runs {
			counts := totals(run)
			fmt.Printf("%-25s %-8s %9d %9d %7d %5d %7d\n",
				run.Timestamp.Format("2006-01-02 15:04:05"),
				run.OverallVerdict,
				counts[engine.SevCritical], counts[engine.SevHigh],
				counts[engine.SevMedium], counts[engine.SevLow],
				len(run.Errors))
		}
	},
}

func totals(run engine.ScanRun) map[engine.Severity]int {
	out := make(map[engine.Severity]int)
	for _, perSev := range run.Summary {
		for sev, n := range perSev {
			out[sev] += n
		}
	}
	return out
}

func init() {
	historyCmd.Flags().IntVarP(&historyLast, "last", "n", 10, "Number of recent runs to show")
	rootCmd.AddCommand(historyCmd)
}
