package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Laimiu-debug/quantscan/internal/contracts"
	"github.com/Laimiu-debug/quantscan/internal/matrix"
)

// matrixCmd represents the matrix command
var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Matrix bundle cache management",
}

var (
	matrixBuildCmd = &cobra.Command{
		Use:   "build",
		Short: "Build or warm a matrix bundle",
		RunE:  runMatrixBuild,
	}

	matrixClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Clear the runtime and disk matrix caches",
		RunE:  runMatrixClear,
	}

	// Flags
	matrixSymbols string
	matrixFrom    string
	matrixTo      string
)

func init() {
	rootCmd.AddCommand(matrixCmd)
	matrixCmd.AddCommand(matrixBuildCmd)
	matrixCmd.AddCommand(matrixClearCmd)

	matrixBuildCmd.Flags().StringVar(&matrixSymbols, "symbols", "", "comma-separated symbols (empty = full universe)")
	matrixBuildCmd.Flags().StringVar(&matrixFrom, "from", "", "start date (YYYY-MM-DD, required)")
	matrixBuildCmd.Flags().StringVar(&matrixTo, "to", "", "end date (YYYY-MM-DD, default: today)")

	matrixBuildCmd.MarkFlagRequired("from")
}

func runMatrixBuild(cmd *cobra.Command, args []string) error {
	a, err := initApp()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer a.Close()

	symbols := splitSymbols(matrixSymbols)
	if len(symbols) == 0 {
		symbols, err = a.repo.ListSymbols(cmd.Context())
		if err != nil {
			return fmt.Errorf("list symbols: %w", err)
		}
	}

	to := matrixTo
	if to == "" {
		to = time.Now().Format(contracts.DateLayout)
	}

	start := time.Now()
	bundle, hit, err := a.builder.Build(cmd.Context(), matrix.Request{
		Symbols:  symbols,
		DateFrom: matrixFrom,
		DateTo:   to,
	})
	if err != nil {
		return fmt.Errorf("build matrix: %w", err)
	}

	t, n := bundle.Shape()
	fmt.Printf("Matrix built: %d dates x %d symbols (cache hit: %v, %.2fs)\n",
		t, n, hit, time.Since(start).Seconds())
	return nil
}

func runMatrixClear(cmd *cobra.Command, args []string) error {
	a, err := initApp()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer a.Close()

	a.builder.ClearRuntime()
	if err := a.builder.ClearDisk(); err != nil {
		return fmt.Errorf("clear disk cache: %w", err)
	}

	fmt.Println("Matrix caches cleared")
	return nil
}
