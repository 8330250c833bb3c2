package cmd

import (
	"github.com/spf13/cobra"

	"github.com/user/secscan/pkg/logging"
)

var rootCmd = &cobra.Command{
	Use:   "secscan",
	Short: "CI security scan orchestrator with policy-based verdicts",
	Long: `secscan drives secret, IaC and container image scanners, normalizes
their output into one finding model, evaluates configured severity
thresholds and records every run in an append-only history.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(DebugMode)
	},
}

var (
	DebugMode  bool
	ConfigPath string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&DebugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&ConfigPath, "config", "secscan.yaml", "Path to the configuration file")
}
