package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Laimiu-debug/quantscan/internal/contracts"
	"github.com/Laimiu-debug/quantscan/internal/matrix"
)

// poolCmd represents the pool command
var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Daily candidate pool management",
}

var (
	poolRefreshCmd = &cobra.Command{
		Use:   "refresh",
		Short: "Recompute and cache daily pools",
		RunE:  runPoolRefresh,
	}

	poolShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Show the cached pool for a date",
		RunE:  runPoolShow,
	}

	// Flags
	poolSymbols string
	poolFrom    string
	poolTo      string
	poolDate    string
)

func init() {
	rootCmd.AddCommand(poolCmd)
	poolCmd.AddCommand(poolRefreshCmd)
	poolCmd.AddCommand(poolShowCmd)

	poolRefreshCmd.Flags().StringVar(&poolSymbols, "symbols", "", "comma-separated symbols (empty = full universe)")
	poolRefreshCmd.Flags().StringVar(&poolFrom, "from", "", "start date (YYYY-MM-DD, required)")
	poolRefreshCmd.Flags().StringVar(&poolTo, "to", "", "end date (YYYY-MM-DD, default: today)")
	poolRefreshCmd.MarkFlagRequired("from")

	poolShowCmd.Flags().StringVar(&poolDate, "date", "", "date (YYYY-MM-DD, required)")
	poolShowCmd.MarkFlagRequired("date")
}

func runPoolRefresh(cmd *cobra.Command, args []string) error {
	a, err := initApp()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer a.Close()

	symbols := splitSymbols(poolSymbols)
	if len(symbols) == 0 {
		symbols, err = a.repo.ListSymbols(cmd.Context())
		if err != nil {
			return fmt.Errorf("list symbols: %w", err)
		}
	}

	to := poolTo
	if to == "" {
		to = time.Now().Format(contracts.DateLayout)
	}

	bundle, _, err := a.builder.Build(cmd.Context(), matrix.Request{
		Symbols:  symbols,
		DateFrom: poolFrom,
		DateTo:   to,
	})
	if err != nil {
		return fmt.Errorf("build matrix: %w", err)
	}

	stored, err := a.pools.Screen(cmd.Context(), a.computer, bundle)
	if err != nil {
		return fmt.Errorf("refresh pools: %w", err)
	}

	fmt.Printf("Pools refreshed for %d dates\n", stored)
	return nil
}

func runPoolShow(cmd *cobra.Command, args []string) error {
	a, err := initApp()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer a.Close()

	symbols, ok, err := a.pools.Get(cmd.Context(), poolDate)
	if err != nil {
		return fmt.Errorf("pool lookup: %w", err)
	}
	if !ok {
		fmt.Printf("No pool cached for %s\n", poolDate)
		return nil
	}

	fmt.Printf("Pool for %s (%d symbols):\n", poolDate, len(symbols))
	for _, s := range symbols {
		fmt.Println("  " + s)
	}
	return nil
}
