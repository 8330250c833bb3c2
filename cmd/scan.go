package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/secscan/pkg/config"
	"github.com/user/secscan/pkg/report"
	"github.com/user/secscan/pkg/runner"
)

var scanTarget string

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run all enabled scanners and evaluate the policy",
	Long: `Runs every enabled scanner against the target, writes the latest
report and history artifacts, and exits 0 on PASS/WARN, 1 on FAIL.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(ConfigPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		run, err := runner.New(cfg).Run(ctx, scanTarget)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Scan failed: %v\n", err)
			os.Exit(1)
		}

		fmt.Print(report.Render(run))
		os.Exit(runner.ExitCode(run))
	},
}

func init() {
	scanCmd.Flags().StringVarP(&scanTarget, "target", "t", ".", "Directory or repository to scan")
	rootCmd.AddCommand(scanCmd)
}
