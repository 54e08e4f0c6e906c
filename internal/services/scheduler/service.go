// Package scheduler runs the daily digest on a cron schedule. The default
// schedule fires at 12:00 server time every day.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/signalist/internal/common"
	"github.com/ternarybob/signalist/internal/models"
	"github.com/ternarybob/signalist/internal/services/digest"
)

// Service owns the cron instance and serializes digest runs: a tick that
// arrives while a run is still in flight is skipped, not queued.
type Service struct {
	config   common.DigestConfig
	workflow *digest.Workflow
	cron     *cron.Cron
	logger   arbor.ILogger

	mu      sync.Mutex
	running bool
}

func NewService(config common.DigestConfig, workflow *digest.Workflow, logger arbor.ILogger) *Service {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Service{
		config:   config,
		workflow: workflow,
		cron:     cron.New(),
		logger:   logger,
	}
}

// Start registers the digest job and starts the cron loop. Disabled
// scheduling is not an error; manual triggers still work.
func (s *Service) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info().Msg("Digest schedule disabled, manual trigger only")
		return nil
	}

	_, err := s.cron.AddFunc(s.config.Schedule, func() {
		s.runScheduled(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid digest schedule %q: %w", s.config.Schedule, err)
	}

	s.cron.Start()
	s.logger.Info().Str("schedule", s.config.Schedule).Msg("Digest scheduler started")
	return nil
}

// Stop halts the cron loop and waits for any in-flight job callback.
func (s *Service) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info().Msg("Digest scheduler stopped")
}

// Trigger starts a manual run in the background and returns its record
// immediately. Returns false without starting anything when a run is
// already in flight.
func (s *Service) Trigger(ctx context.Context) (*models.WorkflowRun, bool, error) {
	if !s.tryAcquire() {
		return nil, false, nil
	}

	run, err := s.workflow.Begin(ctx, models.TriggerManual)
	if err != nil {
		s.release()
		return nil, true, err
	}

	go func() {
		defer s.release()
		if err := s.workflow.Execute(context.Background(), run); err != nil {
			s.logger.Error().Err(err).Str("run_id", run.ID).Msg("Manual digest run failed")
		}
	}()
	return run, true, nil
}

func (s *Service) runScheduled(ctx context.Context) {
	if !s.tryAcquire() {
		s.logger.Warn().Msg("Skipping scheduled digest, previous run still in flight")
		return
	}
	defer s.release()

	if _, err := s.workflow.Run(ctx, models.TriggerScheduled); err != nil {
		s.logger.Error().Err(err).Msg("Scheduled digest run failed")
	}
}

func (s *Service) tryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Service) release() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}
