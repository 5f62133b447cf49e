/**
 * @description
 * Cron scheduler setup for the mass-payout service's background jobs.
 */

package app

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
	"github.com/tokenstudio/mass-payout-service/internal/config"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	logger *slog.Logger
	config config.Config
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(jobs *Jobs, logger *slog.Logger, cfg config.Config) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:   c,
		jobs:   jobs,
		logger: logger,
		config: cfg,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.config.ScheduledPayoutCron, s.jobs.ProcessScheduledPayouts); err != nil {
		s.logger.Error("failed to schedule payout sweep job", "error", err)
	} else {
		s.logger.Info("scheduled payout sweep job", "schedule", s.config.ScheduledPayoutCron)
	}

	if _, err := s.cron.AddFunc(s.config.EventPollCron, s.jobs.ProcessBlockchainEvents); err != nil {
		s.logger.Error("failed to schedule blockchain event job", "error", err)
	} else {
		s.logger.Info("scheduled blockchain event job", "schedule", s.config.EventPollCron)
	}

	if _, err := s.cron.AddFunc(s.config.HolderRetryCron, s.jobs.ProcessHolderRetries); err != nil {
		s.logger.Error("failed to schedule holder retry job", "error", err)
	} else {
		s.logger.Info("scheduled holder retry job", "schedule", s.config.HolderRetryCron)
	}

	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
