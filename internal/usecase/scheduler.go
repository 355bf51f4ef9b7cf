package usecase

import (
	"context"
	"log/slog"
	"time"

	"ResearchPublisher/internal/ports"
)

// Scheduler wires the cron driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline, logger: logger}
}

// Start registers the daily pipeline run with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	return s.driver.Start(ctx, func(trigger time.Time) {
		s.run(ctx, trigger)
	})
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

func (s *Scheduler) run(ctx context.Context, trigger time.Time) {
	start := time.Now()
	results, err := s.pipeline.ProcessDay(ctx, trigger)
	if s.logger == nil {
		return
	}
	if err != nil {
		s.logger.Error("scheduled run failed", "trigger", trigger, "error", err)
		return
	}
	s.logger.Info("scheduled run finished", "trigger", trigger, "analyses", len(results), "duration", time.Since(start))
}
