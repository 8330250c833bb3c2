package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/user/secscan/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and validate the scan configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration (defaults applied)",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(ConfigPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error rendering config: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(string(out))
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration file without running a scan",
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := config.Load(ConfigPath); err != nil {
			fmt.Fprintf(os.Stderr, "Config invalid: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config OK: %s\n", ConfigPath)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}
