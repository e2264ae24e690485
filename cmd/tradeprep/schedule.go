package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline for the configured tickers on a cron schedule",
	Long: `Starts the scheduler from the [scheduler] section and blocks until
interrupted. With --once the configured tickers are run a single time.`,
	RunE: runSchedule,
}

var scheduleOnce bool

func init() {
	scheduleCmd.Flags().BoolVar(&scheduleOnce, "once", false, "Run all configured tickers once and exit")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	if len(config.Scheduler.Tickers) == 0 {
		return fmt.Errorf("no tickers configured in [scheduler] tickers")
	}

	if scheduleOnce {
		results := application.Scheduler.RunAll(cmd.Context(), "")
		for _, r := range results {
			fmt.Fprintf(cmd.OutOrStdout(), "%-8s %-10s %.2f  %s\n", r.Ticker, r.Classification.DomainCategory, r.Classification.Confidence, r.RunID)
		}
		return nil
	}

	if err := application.Scheduler.Start(config.Scheduler.Schedule); err != nil {
		return err
	}

	logger.Info().
		Str("schedule", config.Scheduler.Schedule).
		Strs("tickers", config.Scheduler.Tickers).
		Msg("Scheduler running - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Interrupt signal received")
	application.Scheduler.Stop()
	return nil
}
