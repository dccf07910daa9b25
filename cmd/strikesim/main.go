package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version and BuildDate can be set at build time via ldflags.
var (
	Version   = "0.0.1"
	BuildDate = "unknown"
)

var (
	configDir    string
	scenarioPath string
	runFor       int
)

var rootCmd = &cobra.Command{
	Use:   "strikesim",
	Short: "Missile engagement simulation recorder",
	Long: `strikesim runs a missile engagement scenario: scripted attack
launches, radar detection, threat correlation, battery fire orders and
interceptor flights, recording every track point and outcome.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario to completion",
	RunE:  runSimulation,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("strikesim %s (built %s)\n", Version, BuildDate)
	},
}

func init() {
	runCmd.Flags().StringVarP(&configDir, "config", "c", ".", "directory holding strikesim.cfg.json")
	runCmd.Flags().StringVarP(&scenarioPath, "scenario", "s", "scenario.json", "scenario definition file")
	runCmd.Flags().IntVarP(&runFor, "duration", "d", 0, "wall-clock seconds to run (0 runs until interrupted)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
