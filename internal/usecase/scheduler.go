package usecase

import (
	"context"
	"log/slog"
	"time"

	"STTIngest/internal/domain"
	"STTIngest/internal/ports"
)

// Scheduler wires the cron driver with feed polling and ingest.
type Scheduler struct {
	driver    ports.Scheduler
	source    ports.FeedSource
	ingester  *Ingester
	providers []domain.IngestProvider
	logger    *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring polls.
func NewScheduler(driver ports.Scheduler, source ports.FeedSource, ingester *Ingester, providers []domain.IngestProvider, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		driver:    driver,
		source:    source,
		ingester:  ingester,
		providers: providers,
		logger:    logger,
	}
}

// Start registers the poll job with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.ingester == nil || s.source == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.Poll(ctx, trigger)
	}

	return s.driver.Start(ctx, job)
}

// Poll fetches and ingests every pending payload of every provider once.
func (s *Scheduler) Poll(ctx context.Context, trigger time.Time) {
	for _, provider := range s.providers {
		payloads, err := s.source.Fetch(ctx, provider)
		if err != nil {
			s.logger.Error("fetch provider failed", "provider", provider.ID, "error", err)
			continue
		}
		for _, payload := range payloads {
			summary, err := s.ingester.Ingest(ctx, provider, payload.Data)
			if err != nil {
				s.logger.Error("ingest payload failed", "provider", provider.ID, "payload", payload.Name, "error", err)
				continue
			}
			s.logger.Info("payload ingested",
				"provider", provider.ID,
				"payload", payload.Name,
				"contents", summary.Contents,
				"events", summary.Events,
				"plannings", summary.Plannings,
				"retracted", summary.Retracted,
			)
		}
	}
	s.logger.Debug("poll finished", "trigger", trigger.Format(time.RFC3339))
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
