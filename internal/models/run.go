package models

import (
	"fmt"
	"time"
)

// RunTrigger identifies what started a workflow run.
type RunTrigger string

const (
	TriggerScheduled RunTrigger = "scheduled"
	TriggerManual    RunTrigger = "manual"
)

// RunOutcome is the terminal state of a workflow run.
type RunOutcome string

const (
	// OutcomeRunning means the run has not reached a terminal state yet.
	OutcomeRunning RunOutcome = "running"
	// OutcomeSuccess means users were found and the pipeline ran to
	// completion. Individual per-user failures do not change this.
	OutcomeSuccess RunOutcome = "success"
	// OutcomePartial means zero eligible users were found; no further
	// steps were attempted.
	OutcomePartial RunOutcome = "partial"
	// OutcomeFailure means a whole step exhausted its retries.
	OutcomeFailure RunOutcome = "failure"
)

// StepName labels the checkpointed phases of the digest workflow.
type StepName string

const (
	StepFetchUsers       StepName = "fetch_users"
	StepFetchNewsPerUser StepName = "fetch_news_per_user"
	StepSummarizePerUser StepName = "summarize_per_user"
	StepDispatchEmails   StepName = "dispatch_emails"
)

// WorkflowRun is one execution of the daily digest job. Step results are
// checkpointed separately (see Checkpoint); the run record carries trigger,
// timing and the terminal outcome for operators.
type WorkflowRun struct {
	ID          string     `json:"id" badgerhold:"key"`
	Trigger     RunTrigger `json:"trigger"`
	Outcome     RunOutcome `json:"outcome" badgerhold:"index"`
	Message     string     `json:"message,omitempty"`
	UserCount   int        `json:"user_count"`
	EmailsSent  int        `json:"emails_sent"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Terminal reports whether the run has reached a final outcome.
func (r *WorkflowRun) Terminal() bool {
	return r.Outcome != OutcomeRunning
}

// Checkpoint is one durably recorded step result. A step whose checkpoint
// exists is never re-executed on resume. Phase-granular steps use an empty
// entity key; per-user AI calls use the user's email.
type Checkpoint struct {
	Key       string    `json:"key" badgerhold:"key"`
	RunID     string    `json:"run_id" badgerhold:"index"`
	Step      StepName  `json:"step"`
	EntityKey string    `json:"entity_key,omitempty"`
	Payload   []byte    `json:"payload,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CheckpointKey builds the storage key for a (run, step, entity) result.
func CheckpointKey(runID string, step StepName, entityKey string) string {
	if entityKey == "" {
		return fmt.Sprintf("%s/%s", runID, step)
	}
	return fmt.Sprintf("%s/%s/%s", runID, step, entityKey)
}
