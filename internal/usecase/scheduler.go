package usecase

import (
	"context"
	"errors"
	"log/slog"

	"AnnouncementIngestor/internal/ports"
)

// Scheduler connects a timing driver to the runner's trigger gate.
type Scheduler struct {
	driver ports.Scheduler
	runner *Runner
	logger *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, runner *Runner, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{driver: driver, runner: runner, logger: log}
}

// Start registers the trigger with the driver. A tick that finds a run in
// progress is skipped.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.runner == nil {
		return nil
	}

	job := func() {
		_, err := s.runner.Trigger(ctx)
		switch {
		case errors.Is(err, ErrRunInProgress):
			s.logger.Info("scheduled run skipped, previous run still active")
		case err != nil:
			s.logger.Error("scheduled run not started", "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop tears down the underlying driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}
