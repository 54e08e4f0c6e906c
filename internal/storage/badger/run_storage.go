package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/signalist/internal/interfaces"
	"github.com/ternarybob/signalist/internal/models"
)

// RunStorage implements RunStorage and CheckpointStorage for Badger.
// Checkpoints are the durable step-result log the workflow consults on
// resume; the run records exist for operator visibility.
type RunStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewRunStorage creates a new RunStorage instance
func NewRunStorage(db *BadgerDB, logger arbor.ILogger) *RunStorage {
	return &RunStorage{
		db:     db,
		logger: logger,
	}
}

// SaveRun inserts or updates a workflow run record.
func (s *RunStorage) SaveRun(ctx context.Context, run *models.WorkflowRun) error {
	if run.ID == "" {
		return fmt.Errorf("run ID is required")
	}
	if err := s.db.Store().Upsert(run.ID, run); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// GetRun retrieves a workflow run by ID.
func (s *RunStorage) GetRun(ctx context.Context, runID string) (*models.WorkflowRun, error) {
	var run models.WorkflowRun
	err := s.db.Store().Get(runID, &run)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// ListRuns returns recent workflow runs, newest first.
func (s *RunStorage) ListRuns(ctx context.Context, limit int) ([]*models.WorkflowRun, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("StartedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var runs []models.WorkflowRun
	if err := s.db.Store().Find(&runs, query); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	result := make([]*models.WorkflowRun, len(runs))
	for i := range runs {
		result[i] = &runs[i]
	}
	return result, nil
}

// SaveCheckpoint durably records a completed step result. The write is
// atomic; once it returns, resume will skip the step.
func (s *RunStorage) SaveCheckpoint(ctx context.Context, cp *models.Checkpoint) error {
	if cp.RunID == "" || cp.Step == "" {
		return fmt.Errorf("checkpoint run ID and step are required")
	}
	cp.Key = models.CheckpointKey(cp.RunID, cp.Step, cp.EntityKey)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(cp.Key, cp); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// GetCheckpoint returns the stored result for a step, or ErrKeyNotFound if
// the step has not completed.
func (s *RunStorage) GetCheckpoint(ctx context.Context, runID string, step models.StepName, entityKey string) (*models.Checkpoint, error) {
	var cp models.Checkpoint
	err := s.db.Store().Get(models.CheckpointKey(runID, step, entityKey), &cp)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}
	return &cp, nil
}

// ListRunCheckpoints returns all checkpoints recorded for a run.
func (s *RunStorage) ListRunCheckpoints(ctx context.Context, runID string) ([]models.Checkpoint, error) {
	var cps []models.Checkpoint
	err := s.db.Store().Find(&cps, badgerhold.Where("RunID").Eq(runID).Index("RunID"))
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	return cps, nil
}

// DeleteRunCheckpoints removes a run's checkpoints.
func (s *RunStorage) DeleteRunCheckpoints(ctx context.Context, runID string) error {
	cps, err := s.ListRunCheckpoints(ctx, runID)
	if err != nil {
		return err
	}
	for _, cp := range cps {
		if err := s.db.Store().Delete(cp.Key, &models.Checkpoint{}); err != nil {
			s.logger.Warn().Err(err).Str("key", cp.Key).Msg("Failed to delete checkpoint")
		}
	}
	return nil
}
