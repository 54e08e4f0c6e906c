package interfaces

import (
	"context"

	"github.com/ternarybob/signalist/internal/models"
)

// UserStorage is the read-mostly user/watchlist lookup contract. The digest
// core only reads; writes exist for the seed loader and account lifecycle.
type UserStorage interface {
	// ListDigestUsers returns all users eligible for the daily digest.
	ListDigestUsers(ctx context.Context) ([]models.User, error)

	// FindUserByEmail returns the user record for an email address, or
	// ErrKeyNotFound if no account exists.
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)

	// ListWatchlistSymbols returns the symbols tracked by a user, in
	// stored order.
	ListWatchlistSymbols(ctx context.Context, userID string) ([]string, error)

	// SaveUser inserts or updates a user record.
	SaveUser(ctx context.Context, user *models.User) error

	// AddWatchlistSymbol adds a symbol to a user's watchlist.
	AddWatchlistSymbol(ctx context.Context, userID, symbol string) error

	// DeleteUser removes a user and their watchlist entries.
	DeleteUser(ctx context.Context, userID string) error
}

// RunStorage persists workflow run records for operator visibility.
type RunStorage interface {
	SaveRun(ctx context.Context, run *models.WorkflowRun) error
	GetRun(ctx context.Context, runID string) (*models.WorkflowRun, error)
	ListRuns(ctx context.Context, limit int) ([]*models.WorkflowRun, error)
}

// CheckpointStorage is the durable step-result log backing workflow resume.
// A checkpoint written for (runID, step, entityKey) asserts that step
// completed; consumers must write the checkpoint before advancing.
type CheckpointStorage interface {
	SaveCheckpoint(ctx context.Context, cp *models.Checkpoint) error

	// GetCheckpoint returns the stored result for a step, or ErrKeyNotFound
	// if the step has not completed.
	GetCheckpoint(ctx context.Context, runID string, step models.StepName, entityKey string) (*models.Checkpoint, error)

	// ListRunCheckpoints returns all checkpoints recorded for a run.
	ListRunCheckpoints(ctx context.Context, runID string) ([]models.Checkpoint, error)

	// DeleteRunCheckpoints removes a run's checkpoints once the run is
	// terminal and its results are no longer needed for resume.
	DeleteRunCheckpoints(ctx context.Context, runID string) error
}

// StorageManager aggregates the storage backends.
type StorageManager interface {
	KeyValueStorage() KeyValueStorage
	UserStorage() UserStorage
	RunStorage() RunStorage
	CheckpointStorage() CheckpointStorage
	Close() error
}
