package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"pwgateway/internal/config"
	"pwgateway/internal/repository"
)

const defaultDueActionsSpec = "0 * * * * *"

// Scheduler manages the recurring billing cron jobs.
type Scheduler struct {
	cron   *cron.Cron
	cfg    *config.Config
	logger *zap.Logger
	repos  *CronRepos
}

// CronRepos bundles repositories needed by cron jobs.
type CronRepos struct {
	Store   *repository.Store
	Actions *repository.ScheduledActionRepository
}

// New creates a new cron scheduler.
func New(cfg *config.Config, repos *CronRepos, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		cfg:    cfg,
		logger: logger,
		repos:  repos,
	}
}

// Start registers and starts all cron jobs.
func (s *Scheduler) Start() error {
	s.logger.Info("Starting cron scheduler...")

	spec := s.cfg.Cron.DueActions
	if spec == "" {
		spec = defaultDueActionsSpec
	}

	// Fire due scheduled actions - every minute by default
	if _, err := s.cron.AddFunc(spec, func() {
		s.logger.Debug("Running: due scheduled actions")
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Second)
		defer cancel()
		s.processDueActions(ctx)
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("Cron scheduler started", zap.String("due_actions", spec))
	return nil
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) recoverFromPanic(jobName string) {
	if r := recover(); r != nil {
		s.logger.Error("Cron job panicked", zap.String("job", jobName), zap.Any("error", r))
	}
}
