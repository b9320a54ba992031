package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Laimiu-debug/quantscan/internal/scheduler"
	"github.com/Laimiu-debug/quantscan/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Start the nightly job scheduler",
	Long: `Runs the nightly maintenance jobs:

  matrix_warm   17:30 weekdays  build/extend the universe matrix bundle
  pool_refresh  18:00 weekdays  recompute daily candidate pools`,
	RunE: runScheduler,
}

var schedulerRunNow string

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.Flags().StringVar(&schedulerRunNow, "run-now", "", "run the named job immediately on start")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, err := initApp()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer a.Close()

	sched := scheduler.New(a.log)

	warmJob := jobs.NewMatrixWarmJob(a.repo, a.builder, a.log)
	poolJob := jobs.NewPoolRefreshJob(a.repo, a.builder, a.computer, a.pools, a.log)

	for _, job := range []scheduler.Job{warmJob, poolJob} {
		if err := sched.AddJob(job); err != nil {
			return fmt.Errorf("add job: %w", err)
		}
	}

	sched.Start()
	defer sched.Stop()

	if schedulerRunNow != "" {
		if err := sched.RunJob(schedulerRunNow); err != nil {
			return err
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	a.log.WithField("signal", sig.String()).Info("Shutdown signal received")
	return nil
}
