// Package digest implements the daily news summary workflow: load eligible
// users, fetch watchlist-scoped news concurrently, summarize per user with an
// AI model, and dispatch templated emails. Every step writes a durable
// checkpoint before advancing, so an interrupted run resumes without
// repeating completed work or re-billing completed AI calls.
package digest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/signalist/internal/common"
	"github.com/ternarybob/signalist/internal/interfaces"
	"github.com/ternarybob/signalist/internal/models"
	"github.com/ternarybob/signalist/internal/templates"
)

const (
	// stepMaxAttempts bounds execution attempts for a single step before the
	// run is marked failed.
	stepMaxAttempts = 3

	// defaultNewsWindowDays is the company-news lookback when config leaves
	// it unset.
	defaultNewsWindowDays = 5
)

// stepRetryBackoff is the base delay between step attempts; attempt n waits
// n * stepRetryBackoff. Variable so tests can shrink it.
var stepRetryBackoff = 2 * time.Second

// Workflow runs the daily digest pipeline. One instance is shared by the
// scheduler and the manual trigger endpoint; runs themselves are independent
// and identified by run ID.
type Workflow struct {
	users        interfaces.UserStorage
	runs         interfaces.RunStorage
	checkpoints  interfaces.CheckpointStorage
	news         interfaces.NewsService
	watchlist    interfaces.WatchlistService
	llm          interfaces.LLMService
	dispatcher   interfaces.EmailDispatcher
	templatesDir string
	windowDays   int
	logger       arbor.ILogger
}

// NewWorkflow wires the digest pipeline against its storage and service
// dependencies.
func NewWorkflow(
	storage interfaces.StorageManager,
	news interfaces.NewsService,
	watchlist interfaces.WatchlistService,
	llm interfaces.LLMService,
	dispatcher interfaces.EmailDispatcher,
	windowDays int,
	templatesDir string,
	logger arbor.ILogger,
) *Workflow {
	if logger == nil {
		logger = common.GetLogger()
	}
	if windowDays <= 0 {
		windowDays = defaultNewsWindowDays
	}
	return &Workflow{
		users:        storage.UserStorage(),
		runs:         storage.RunStorage(),
		checkpoints:  storage.CheckpointStorage(),
		news:         news,
		watchlist:    watchlist,
		llm:          llm,
		dispatcher:   dispatcher,
		templatesDir: templatesDir,
		windowDays:   windowDays,
		logger:       logger,
	}
}

// Run starts a fresh digest run and executes it to a terminal outcome. The
// returned run record reflects the final state; the error is non-nil only
// when a whole step exhausted its retries.
func (w *Workflow) Run(ctx context.Context, trigger models.RunTrigger) (*models.WorkflowRun, error) {
	run, err := w.Begin(ctx, trigger)
	if err != nil {
		return nil, err
	}
	return run, w.Execute(ctx, run)
}

// Begin creates and persists a new run record in the running state without
// executing it. Callers that want fire-and-forget semantics pair this with
// Execute on a background goroutine.
func (w *Workflow) Begin(ctx context.Context, trigger models.RunTrigger) (*models.WorkflowRun, error) {
	run := &models.WorkflowRun{
		ID:        common.NewRunID(),
		Trigger:   trigger,
		Outcome:   models.OutcomeRunning,
		StartedAt: time.Now(),
	}
	if err := w.runs.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run record: %w", err)
	}

	w.logger.Info().
		Str("run_id", run.ID).
		Str("trigger", string(trigger)).
		Msg("Starting daily news summary run")
	return run, nil
}

// Execute drives a previously created run to a terminal outcome.
func (w *Workflow) Execute(ctx context.Context, run *models.WorkflowRun) error {
	return w.execute(ctx, run)
}

// Resume continues an interrupted or failed run. Steps whose checkpoints
// exist are skipped; per-user summarize checkpoints are honored
// individually, so only the unfinished users are re-processed. Runs that
// already succeeded (or ended partial) are returned unchanged.
func (w *Workflow) Resume(ctx context.Context, runID string) (*models.WorkflowRun, error) {
	run, err := w.runs.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Outcome == models.OutcomeSuccess || run.Outcome == models.OutcomePartial {
		return run, nil
	}

	run.Outcome = models.OutcomeRunning
	run.Message = ""
	run.CompletedAt = nil
	if err := w.runs.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to reopen run record: %w", err)
	}

	w.logger.Info().Str("run_id", run.ID).Msg("Resuming daily news summary run")
	return run, w.execute(ctx, run)
}

// ResumeIncomplete finds recent runs left in the running state (typically
// after a process restart) and drives each to a terminal outcome.
func (w *Workflow) ResumeIncomplete(ctx context.Context) error {
	runs, err := w.runs.ListRuns(ctx, 50)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	for _, run := range runs {
		if run.Terminal() {
			continue
		}
		if _, err := w.Resume(ctx, run.ID); err != nil {
			w.logger.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to resume interrupted run")
		}
	}
	return nil
}

// execute drives a run through the four pipeline steps. It is shared by Run
// and Resume; checkpoints make re-entry idempotent.
func (w *Workflow) execute(ctx context.Context, run *models.WorkflowRun) error {
	var users []models.User
	err := w.runStep(ctx, run.ID, models.StepFetchUsers, "", &users, func(ctx context.Context) (any, error) {
		return w.users.ListDigestUsers(ctx)
	})
	if err != nil {
		return w.fail(ctx, run, err)
	}

	run.UserCount = len(users)
	if err := w.runs.SaveRun(ctx, run); err != nil {
		w.logger.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to persist run user count")
	}

	if len(users) == 0 {
		w.finish(ctx, run, models.OutcomePartial, "no users found for news email")
		return nil
	}

	var bundles []models.UserNewsBundle
	err = w.runStep(ctx, run.ID, models.StepFetchNewsPerUser, "", &bundles, func(ctx context.Context) (any, error) {
		return w.fetchNewsForUsers(ctx, users), nil
	})
	if err != nil {
		return w.fail(ctx, run, err)
	}

	summaries := w.summarizeAll(ctx, run.ID, bundles)

	var sent int
	err = w.runStep(ctx, run.ID, models.StepDispatchEmails, "", &sent, func(ctx context.Context) (any, error) {
		return w.dispatchEmails(ctx, summaries), nil
	})
	if err != nil {
		return w.fail(ctx, run, err)
	}

	run.EmailsSent = sent
	w.finish(ctx, run, models.OutcomeSuccess,
		fmt.Sprintf("sent %d of %d summaries", sent, len(users)))
	return nil
}

// fetchNewsForUsers resolves each user's watchlist and fetches their news
// concurrently. Per-user failures degrade: a failed watchlist-scoped fetch
// falls back to general market news, and a failed general fetch leaves the
// user with no articles rather than failing the step.
func (w *Workflow) fetchNewsForUsers(ctx context.Context, users []models.User) []models.UserNewsBundle {
	from, to := w.newsWindow()
	bundles := make([]models.UserNewsBundle, len(users))

	var wg sync.WaitGroup
	for i := range users {
		wg.Add(1)
		go func(i int, user models.User) {
			defer wg.Done()

			symbols := w.watchlist.SymbolsForEmail(ctx, user.Email)
			articles, err := w.news.CompanyNews(ctx, symbols, from, to)
			if err != nil {
				w.logger.Warn().Err(err).
					Str("email", user.Email).
					Msg("Watchlist news fetch failed, falling back to general news")
				articles, err = w.news.GeneralNews(ctx, from, to)
				if err != nil {
					w.logger.Warn().Err(err).
						Str("email", user.Email).
						Msg("General news fallback failed, user gets no articles")
					articles = nil
				}
			}

			bundles[i] = models.UserNewsBundle{User: user, Symbols: symbols, Articles: articles}
		}(i, users[i])
	}
	wg.Wait()

	return bundles
}

// summarizeAll produces one summary per user, sequentially, each guarded by
// a per-user checkpoint keyed on the email address. A user whose AI call
// fails after retries gets a nil summary and is skipped at dispatch; the
// checkpoint is deliberately not written, so a later resume retries exactly
// the failed users.
func (w *Workflow) summarizeAll(ctx context.Context, runID string, bundles []models.UserNewsBundle) []models.UserSummary {
	summaries := make([]models.UserSummary, 0, len(bundles))
	for _, bundle := range bundles {
		var summary models.UserSummary
		err := w.runStep(ctx, runID, models.StepSummarizePerUser, bundle.User.Email, &summary, func(ctx context.Context) (any, error) {
			text, err := w.generateSummary(ctx, bundle.Articles)
			if err != nil {
				return nil, err
			}
			return models.UserSummary{User: bundle.User, SummaryText: &text}, nil
		})
		if err != nil {
			w.logger.Warn().Err(err).
				Str("email", bundle.User.Email).
				Msg("Failed to summarize news for user")
			summary = models.UserSummary{User: bundle.User, SummaryText: nil}
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

// generateSummary renders the news summary prompt with the user's articles
// and asks the configured model for the email body.
func (w *Workflow) generateSummary(ctx context.Context, articles []*models.Article) (string, error) {
	prompt, err := templates.GetPrompt("news_summary", w.templatesDir)
	if err != nil {
		return "", err
	}

	if articles == nil {
		articles = []*models.Article{}
	}
	newsData, err := json.MarshalIndent(articles, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode articles for prompt: %w", err)
	}

	content := strings.ReplaceAll(prompt.Prompt, "{{newsData}}", string(newsData))
	response, err := w.llm.Chat(ctx, []interfaces.Message{{Role: "user", Content: content}})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(response) == "" {
		return "", errors.New("model returned an empty summary")
	}
	return response, nil
}

// dispatchEmails sends one digest email per summarized user. Users without a
// summary are skipped; a rejected send is logged and does not stop the rest
// of the batch.
func (w *Workflow) dispatchEmails(ctx context.Context, summaries []models.UserSummary) int {
	date := FormatEmailDate(time.Now())
	sent := 0
	for _, summary := range summaries {
		if summary.SummaryText == nil || strings.TrimSpace(*summary.SummaryText) == "" {
			continue
		}

		data := interfaces.NewsSummaryEmailData{
			Email:       summary.User.Email,
			Date:        date,
			NewsContent: *summary.SummaryText,
		}
		if err := w.dispatcher.SendNewsSummaryEmail(ctx, data); err != nil {
			w.logger.Warn().Err(err).
				Str("email", summary.User.Email).
				Msg("Failed to send news summary email")
			continue
		}
		sent++
	}
	return sent
}

// runStep executes one checkpointed step. If a checkpoint for (run, step,
// entityKey) exists its payload is decoded into out and fn is never called.
// Otherwise fn runs with bounded retries, the result is persisted, and only
// then decoded into out. The checkpoint write precedes any visible progress,
// which is what makes resume safe.
func (w *Workflow) runStep(ctx context.Context, runID string, step models.StepName, entityKey string, out any, fn func(context.Context) (any, error)) error {
	cp, err := w.checkpoints.GetCheckpoint(ctx, runID, step, entityKey)
	if err == nil {
		w.logger.Debug().
			Str("run_id", runID).
			Str("step", string(step)).
			Str("entity", entityKey).
			Msg("Checkpoint found, skipping step")
		return json.Unmarshal(cp.Payload, out)
	}
	if !errors.Is(err, interfaces.ErrKeyNotFound) {
		return fmt.Errorf("failed to read checkpoint for step %s: %w", step, err)
	}

	var result any
	var lastErr error
	for attempt := 1; attempt <= stepMaxAttempts; attempt++ {
		result, lastErr = fn(ctx)
		if lastErr == nil {
			break
		}
		if attempt == stepMaxAttempts {
			break
		}

		w.logger.Warn().Err(lastErr).
			Str("run_id", runID).
			Str("step", string(step)).
			Int("attempt", attempt).
			Msg("Step failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * stepRetryBackoff):
		}
	}
	if lastErr != nil {
		return fmt.Errorf("step %s failed after %d attempts: %w", step, stepMaxAttempts, lastErr)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result for step %s: %w", step, err)
	}
	if err := w.checkpoints.SaveCheckpoint(ctx, &models.Checkpoint{
		RunID:     runID,
		Step:      step,
		EntityKey: entityKey,
		Payload:   payload,
	}); err != nil {
		return fmt.Errorf("failed to save checkpoint for step %s: %w", step, err)
	}
	return json.Unmarshal(payload, out)
}

// fail records a terminal failure. Checkpoints are kept so a later resume
// can pick up from completed steps.
func (w *Workflow) fail(ctx context.Context, run *models.WorkflowRun, stepErr error) error {
	now := time.Now()
	run.Outcome = models.OutcomeFailure
	run.Message = stepErr.Error()
	run.CompletedAt = &now
	if err := w.runs.SaveRun(ctx, run); err != nil {
		w.logger.Error().Err(err).Str("run_id", run.ID).Msg("Failed to persist run failure")
	}

	w.logger.Error().Err(stepErr).Str("run_id", run.ID).Msg("Daily news summary run failed")
	return stepErr
}

// finish records a terminal non-failure outcome and clears the run's
// checkpoints, which are only needed for resume.
func (w *Workflow) finish(ctx context.Context, run *models.WorkflowRun, outcome models.RunOutcome, message string) {
	now := time.Now()
	run.Outcome = outcome
	run.Message = message
	run.CompletedAt = &now
	if err := w.runs.SaveRun(ctx, run); err != nil {
		w.logger.Error().Err(err).Str("run_id", run.ID).Msg("Failed to persist run completion")
	}
	if err := w.checkpoints.DeleteRunCheckpoints(ctx, run.ID); err != nil {
		w.logger.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to clear run checkpoints")
	}

	w.logger.Info().
		Str("run_id", run.ID).
		Str("outcome", string(outcome)).
		Int("users", run.UserCount).
		Int("emails_sent", run.EmailsSent).
		Dur("elapsed", now.Sub(run.StartedAt)).
		Msg("Daily news summary run finished")
}

// newsWindow returns the article date range for company news.
func (w *Workflow) newsWindow() (time.Time, time.Time) {
	to := time.Now()
	return to.AddDate(0, 0, -w.windowDays), to
}

// FormatEmailDate renders a timestamp the way the digest email shows it,
// e.g. "Friday, August 29, 2025".
func FormatEmailDate(t time.Time) string {
	return t.Format("Monday, January 2, 2006")
}
