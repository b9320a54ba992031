package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quantscan",
	Short: "Daily-bar signal screening and backtesting service",
	Long: `QuantScan CLI

Signal screening and portfolio backtesting over daily bars:
matrix building, candidate pools, and rule-based trade simulation.

Examples:
  go run ./cmd/quantscan api
  go run ./cmd/quantscan backtest run --symbols 600000,000001 --from 2024-01-01 --to 2024-06-30
  go run ./cmd/quantscan matrix build --symbols 600000 --from 2024-01-01 --to 2024-06-30
  go run ./cmd/quantscan scheduler`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
