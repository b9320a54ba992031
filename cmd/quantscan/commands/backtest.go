package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Laimiu-debug/quantscan/internal/contracts"
	"github.com/Laimiu-debug/quantscan/internal/strategyconfig"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Backtesting framework",
	Long: `Simulates the signal pipeline over historical daily bars.

A run reports:
- total return, max drawdown, profit factor
- win rate and per-month aggregates
- skip counts per admission reason

Example:
  go run ./cmd/quantscan backtest run --symbols 600000,000001 --from 2024-01-01 --to 2024-12-31`,
}

var (
	backtestRunCmd = &cobra.Command{
		Use:   "run",
		Short: "Run a backtest",
		RunE:  runBacktest,
	}

	// Flags
	backtestSymbols  string
	backtestFrom     string
	backtestTo       string
	backtestPreset   string
	backtestCapital  float64
	backtestFraction float64
	backtestMaxPos   int
	backtestStop     float64
	backtestTake     float64
	backtestHoldDays int
	backtestFeeBps   float64
	backtestMinScore float64
	backtestTopK     int
	backtestPriority string
	backtestReentry  bool
	backtestSameDay  bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestRunCmd)

	backtestRunCmd.Flags().StringVar(&backtestSymbols, "symbols", "", "comma-separated symbols (required)")
	backtestRunCmd.Flags().StringVar(&backtestFrom, "from", "", "start date (YYYY-MM-DD, required)")
	backtestRunCmd.Flags().StringVar(&backtestTo, "to", "", "end date (YYYY-MM-DD, default: today)")
	backtestRunCmd.Flags().StringVar(&backtestPreset, "preset", "", "preset YAML path; overrides parameter flags")
	backtestRunCmd.Flags().Float64Var(&backtestCapital, "capital", 1_000_000, "initial capital")
	backtestRunCmd.Flags().Float64Var(&backtestFraction, "fraction", 0.2, "target equity fraction per position")
	backtestRunCmd.Flags().IntVar(&backtestMaxPos, "max-positions", 5, "max concurrent positions")
	backtestRunCmd.Flags().Float64Var(&backtestStop, "stop", 0, "stop loss fraction (0 disables)")
	backtestRunCmd.Flags().Float64Var(&backtestTake, "take", 0, "take profit fraction (0 disables)")
	backtestRunCmd.Flags().IntVar(&backtestHoldDays, "hold", 20, "max holding days")
	backtestRunCmd.Flags().Float64Var(&backtestFeeBps, "fee-bps", 15, "proportional fee in basis points")
	backtestRunCmd.Flags().Float64Var(&backtestMinScore, "min-score", 0, "minimum entry score")
	backtestRunCmd.Flags().IntVar(&backtestTopK, "top-k", 0, "max candidates per day (0 = unlimited)")
	backtestRunCmd.Flags().StringVar(&backtestPriority, "priority", "balanced", "priority mode (phase|momentum|balanced)")
	backtestRunCmd.Flags().BoolVar(&backtestReentry, "reentry", false, "allow re-entry during a holding window")
	backtestRunCmd.Flags().BoolVar(&backtestSameDay, "same-day-sell", false, "allow selling on the entry day")

	backtestRunCmd.MarkFlagRequired("symbols")
	backtestRunCmd.MarkFlagRequired("from")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	symbols := splitSymbols(backtestSymbols)
	if len(symbols) == 0 {
		return fmt.Errorf("no symbols given")
	}

	to := backtestTo
	if to == "" {
		to = time.Now().Format(contracts.DateLayout)
	}

	var params contracts.BacktestParams
	if backtestPreset != "" {
		preset, err := strategyconfig.Load(backtestPreset)
		if err != nil {
			return fmt.Errorf("load preset: %w", err)
		}
		params = preset.Params(symbols, backtestFrom, to)
	} else {
		params = contracts.BacktestParams{
			Symbols:          symbols,
			DateFrom:         backtestFrom,
			DateTo:           to,
			MinScore:         backtestMinScore,
			InitialCapital:   backtestCapital,
			PositionFraction: backtestFraction,
			MaxPositions:     backtestMaxPos,
			StopLoss:         backtestStop,
			TakeProfit:       backtestTake,
			MaxHoldDays:      backtestHoldDays,
			FeeBps:           backtestFeeBps,
			AllowSameDaySell: backtestSameDay,
			PriorityMode:     contracts.PriorityMode(backtestPriority),
			TopKPerDay:       backtestTopK,
			AllowReentry:     backtestReentry,
		}
	}

	a, err := initApp()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer a.Close()

	result, err := a.engine.Run(cmd.Context(), params)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	printBacktestResult(result)
	return nil
}

func printBacktestResult(res *contracts.BacktestResult) {
	fmt.Println("\nBacktest Completed")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Run ID:      %s\n", res.RunID)
	fmt.Printf("Period:      %s ~ %s\n", res.Params.DateFrom, res.Params.DateTo)
	fmt.Printf("Candidates:  %d (fill rate %.1f%%)\n", res.CandidateCount, res.FillRate*100)
	fmt.Println()

	s := res.Summary
	fmt.Println("Performance")
	fmt.Printf("Trades:        %d (%d won / %d lost, %.1f%% win rate)\n",
		s.TotalTrades, s.WinningTrades, s.LosingTrades, s.WinRate*100)
	fmt.Printf("Total Return:  %+.2f%%\n", s.TotalReturn*100)
	fmt.Printf("Final Equity:  %.2f\n", s.FinalEquity)
	fmt.Printf("Max Drawdown:  %.2f%%\n", s.MaxDrawdown*100)
	fmt.Printf("Profit Factor: %.2f\n", s.ProfitFactor)
	fmt.Println()

	if len(res.SkipCounts) > 0 {
		fmt.Println("Skips")
		for reason, n := range res.SkipCounts {
			fmt.Printf("  %-20s %d\n", reason, n)
		}
		fmt.Println()
	}

	if len(res.Monthly) > 0 {
		fmt.Println("Monthly")
		for _, m := range res.Monthly {
			fmt.Printf("  %s  pnl %+12.2f  trades %3d  win %.0f%%\n",
				m.Month, m.PnL, m.Trades, m.WinRate*100)
		}
		fmt.Println()
	}

	for _, note := range res.Notes {
		fmt.Printf("note: %s\n", note)
	}
}

func splitSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
