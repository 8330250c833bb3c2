package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/user/secscan/pkg/config"
	"github.com/user/secscan/pkg/engine"
	"github.com/user/secscan/pkg/report"
)

var reportFrom string

// The evaluator is a pure function, so an archived report can be re-scored
// offline against the current policy without re-running any scanner.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Re-evaluate and render an archived report offline",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(ConfigPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		path := reportFrom
		if path == "" {
			path = filepath.Join(cfg.ReportsDir, report.LatestJSON)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading report: %v\n", err)
			os.Exit(1)
		}

		var run engine.ScanRun
		if err := json.Unmarshal(data, &run); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing report %s: %v\n", path, err)
			os.Exit(1)
		}

		policy, err := cfg.Policy()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error in policy config: %v\n", err)
			os.Exit(1)
		}
		run.CategoryVerdicts, run.OverallVerdict = engine.Evaluate(run.Findings, run.Errors, policy)
		run.Summary = engine.Summarize(run.Findings)

		fmt.Print(report.Render(run))
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportFrom, "from", "", "Archived report to re-evaluate (default: latest report)")
	rootCmd.AddCommand(reportCmd)
}
