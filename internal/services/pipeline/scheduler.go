package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/tradeprep/internal/common"
	"github.com/ternarybob/tradeprep/internal/models"
)

// Runner is the part of Service the scheduler needs.
type Runner interface {
	Run(ctx context.Context, ticker, tradeDate string) models.RunResult
}

// Scheduler runs the pipeline for a fixed ticker list on a cron schedule.
type Scheduler struct {
	runner  Runner
	tickers []string
	cron    *cron.Cron
	logger  arbor.ILogger

	mu        sync.Mutex
	running   bool
	inFlight  bool
	ctx       context.Context
	cancel    context.CancelFunc
	lastRunAt string
}

// NewScheduler creates a scheduler for tickers.
func NewScheduler(runner Runner, tickers []string, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		runner:  runner,
		tickers: append([]string(nil), tickers...),
		cron:    cron.New(),
		logger:  logger,
	}
}

// Start registers schedule and starts the cron loop.
func (s *Scheduler) Start(schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if err := common.ValidateSchedule(schedule); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(schedule, s.runScheduled); err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron.Start()
	s.running = true

	s.logger.Info().Str("schedule", schedule).Int("tickers", len(s.tickers)).Msg("Scheduler started")
	return nil
}

// Stop halts the cron loop, cancels in-flight runs and waits for them.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) runScheduled() {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		s.logger.Warn().Msg("Previous scheduled run still in progress, skipping")
		return
	}
	s.inFlight = true
	ctx := s.ctx
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	s.RunAll(ctx, "")
}

// RunAll runs every ticker concurrently and returns results in ticker order.
func (s *Scheduler) RunAll(ctx context.Context, tradeDate string) []models.RunResult {
	results := make([]models.RunResult, len(s.tickers))
	var wg sync.WaitGroup

	for i, ticker := range s.tickers {
		wg.Add(1)
		go func(i int, ticker string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error().Str("ticker", ticker).Str("panic", fmt.Sprint(r)).Msg("Pipeline run panicked")
				}
			}()
			results[i] = s.runner.Run(ctx, ticker, tradeDate)
		}(i, ticker)
	}
	wg.Wait()

	s.mu.Lock()
	s.lastRunAt = common.FormatTimestamp(time.Now())
	s.mu.Unlock()

	s.logger.Info().Int("tickers", len(s.tickers)).Msg("Scheduled pipeline runs completed")
	return results
}

// LastRunAt returns when RunAll last finished, empty if never.
func (s *Scheduler) LastRunAt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRunAt
}
