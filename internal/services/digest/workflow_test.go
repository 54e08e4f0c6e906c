package digest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/signalist/internal/common"
	"github.com/ternarybob/signalist/internal/interfaces"
	"github.com/ternarybob/signalist/internal/models"
)

func init() {
	stepRetryBackoff = time.Millisecond
}

// memStorage is an in-memory StorageManager for workflow tests.
type memStorage struct {
	mu             sync.Mutex
	users          []models.User
	listUsersErr   error
	listUsersCalls int
	runs           map[string]*models.WorkflowRun
	cps            map[string]*models.Checkpoint
}

func newMemStorage(users ...models.User) *memStorage {
	return &memStorage{
		users: users,
		runs:  make(map[string]*models.WorkflowRun),
		cps:   make(map[string]*models.Checkpoint),
	}
}

func (m *memStorage) KeyValueStorage() interfaces.KeyValueStorage     { return nil }
func (m *memStorage) UserStorage() interfaces.UserStorage             { return m }
func (m *memStorage) RunStorage() interfaces.RunStorage               { return m }
func (m *memStorage) CheckpointStorage() interfaces.CheckpointStorage { return m }
func (m *memStorage) Close() error                                    { return nil }

func (m *memStorage) ListDigestUsers(ctx context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listUsersCalls++
	if m.listUsersErr != nil {
		return nil, m.listUsersErr
	}
	return m.users, nil
}

func (m *memStorage) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, interfaces.ErrKeyNotFound
}

func (m *memStorage) ListWatchlistSymbols(ctx context.Context, userID string) ([]string, error) {
	return nil, nil
}

func (m *memStorage) SaveUser(ctx context.Context, user *models.User) error        { return nil }
func (m *memStorage) AddWatchlistSymbol(ctx context.Context, id, sym string) error { return nil }
func (m *memStorage) DeleteUser(ctx context.Context, userID string) error          { return nil }

func (m *memStorage) SaveRun(ctx context.Context, run *models.WorkflowRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *run
	m.runs[run.ID] = &clone
	return nil
}

func (m *memStorage) GetRun(ctx context.Context, runID string) (*models.WorkflowRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return nil, interfaces.ErrKeyNotFound
	}
	clone := *run
	return &clone, nil
}

func (m *memStorage) ListRuns(ctx context.Context, limit int) ([]*models.WorkflowRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	runs := make([]*models.WorkflowRun, 0, len(m.runs))
	for _, run := range m.runs {
		clone := *run
		runs = append(runs, &clone)
	}
	return runs, nil
}

func (m *memStorage) SaveCheckpoint(ctx context.Context, cp *models.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp.Key = models.CheckpointKey(cp.RunID, cp.Step, cp.EntityKey)
	cp.CreatedAt = time.Now()
	clone := *cp
	m.cps[cp.Key] = &clone
	return nil
}

func (m *memStorage) GetCheckpoint(ctx context.Context, runID string, step models.StepName, entityKey string) (*models.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp, ok := m.cps[models.CheckpointKey(runID, step, entityKey)]
	if !ok {
		return nil, interfaces.ErrKeyNotFound
	}
	clone := *cp
	return &clone, nil
}

func (m *memStorage) ListRunCheckpoints(ctx context.Context, runID string) ([]models.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var cps []models.Checkpoint
	for _, cp := range m.cps {
		if cp.RunID == runID {
			cps = append(cps, *cp)
		}
	}
	return cps, nil
}

func (m *memStorage) DeleteRunCheckpoints(ctx context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, cp := range m.cps {
		if cp.RunID == runID {
			delete(m.cps, key)
		}
	}
	return nil
}

func (m *memStorage) checkpointCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cps)
}

// fakeNews returns fixed articles or errors.
type fakeNews struct {
	mu           sync.Mutex
	articles     []*models.Article
	companyErr   error
	generalErr   error
	companyCalls int
	generalCalls int
}

func (f *fakeNews) GeneralNews(ctx context.Context, from, to time.Time) ([]*models.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generalCalls++
	return f.articles, f.generalErr
}

func (f *fakeNews) CompanyNews(ctx context.Context, symbols []string, from, to time.Time) ([]*models.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.companyCalls++
	if f.companyErr != nil {
		return nil, f.companyErr
	}
	return f.articles, nil
}

type stubWatchlist struct {
	symbols map[string][]string
}

func (s *stubWatchlist) SymbolsForEmail(ctx context.Context, email string) []string {
	return s.symbols[email]
}

// fakeLLM serves responses by call index; an entry in errs fails that call.
type fakeLLM struct {
	mu       sync.Mutex
	response string
	errs     []error
	calls    int
}

func (f *fakeLLM) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.calls
	f.calls++
	if idx < len(f.errs) && f.errs[idx] != nil {
		return "", f.errs[idx]
	}
	return f.response, nil
}

func (f *fakeLLM) HealthCheck(ctx context.Context) error { return nil }
func (f *fakeLLM) Close() error                          { return nil }

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeDispatcher records digest sends and can reject specific recipients.
type fakeDispatcher struct {
	mu      sync.Mutex
	sent    []interfaces.NewsSummaryEmailData
	failFor map[string]bool
}

func (f *fakeDispatcher) SendWelcomeEmail(ctx context.Context, data interfaces.WelcomeEmailData) error {
	return nil
}

func (f *fakeDispatcher) SendNewsSummaryEmail(ctx context.Context, data interfaces.NewsSummaryEmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[data.Email] {
		return errors.New("smtp rejected")
	}
	f.sent = append(f.sent, data)
	return nil
}

func (f *fakeDispatcher) recipients() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, d := range f.sent {
		out = append(out, d.Email)
	}
	return out
}

func testArticle() *models.Article {
	return &models.Article{
		ID:       1,
		Headline: "Chip makers extend rally",
		Summary:  "Semis up for a third session.",
		URL:      "https://example.com/chips",
		Datetime: time.Now().Add(-time.Hour).Unix(),
	}
}

func testUsers() []models.User {
	return []models.User{
		{ID: "u1", Email: "jane@example.com", Name: "Jane"},
		{ID: "u2", Email: "sam@example.com", Name: "Sam"},
	}
}

func newTestWorkflow(store *memStorage, news *fakeNews, llm *fakeLLM, dispatcher *fakeDispatcher) *Workflow {
	wl := &stubWatchlist{symbols: map[string][]string{
		"jane@example.com": {"AAPL"},
	}}
	return NewWorkflow(store, news, wl, llm, dispatcher, 5, "", common.GetLogger())
}

func TestWorkflow_Run_Success(t *testing.T) {
	store := newMemStorage(testUsers()...)
	news := &fakeNews{articles: []*models.Article{testArticle()}}
	llm := &fakeLLM{response: "Here is your market recap."}
	dispatcher := &fakeDispatcher{}

	wf := newTestWorkflow(store, news, llm, dispatcher)
	run, err := wf.Run(context.Background(), models.TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeSuccess, run.Outcome)
	assert.Equal(t, 2, run.UserCount)
	assert.Equal(t, 2, run.EmailsSent)
	require.NotNil(t, run.CompletedAt)

	assert.Equal(t, 2, llm.callCount())
	assert.ElementsMatch(t, []string{"jane@example.com", "sam@example.com"}, dispatcher.recipients())

	// Terminal non-failure runs leave no checkpoints behind.
	assert.Equal(t, 0, store.checkpointCount())

	saved, err := store.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeSuccess, saved.Outcome)
}

func TestWorkflow_Run_NoUsersIsPartial(t *testing.T) {
	store := newMemStorage()
	news := &fakeNews{}
	llm := &fakeLLM{response: "unused"}
	dispatcher := &fakeDispatcher{}

	wf := newTestWorkflow(store, news, llm, dispatcher)
	run, err := wf.Run(context.Background(), models.TriggerScheduled)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomePartial, run.Outcome)
	assert.NotEmpty(t, run.Message)
	require.NotNil(t, run.CompletedAt)
	assert.Equal(t, 0, llm.callCount())
	assert.Empty(t, dispatcher.recipients())
	assert.Equal(t, 0, news.companyCalls+news.generalCalls)
}

func TestWorkflow_Run_SummarizeFailureIsIsolated(t *testing.T) {
	store := newMemStorage(testUsers()...)
	news := &fakeNews{articles: []*models.Article{testArticle()}}
	// First user's AI call fails on all attempts; second user succeeds.
	llm := &fakeLLM{
		response: "Sam's recap.",
		errs:     []error{errors.New("quota"), errors.New("quota"), errors.New("quota")},
	}
	dispatcher := &fakeDispatcher{}

	wf := newTestWorkflow(store, news, llm, dispatcher)
	run, err := wf.Run(context.Background(), models.TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeSuccess, run.Outcome)
	assert.Equal(t, 1, run.EmailsSent)
	assert.Equal(t, []string{"sam@example.com"}, dispatcher.recipients())
	assert.Equal(t, stepMaxAttempts+1, llm.callCount())
}

func TestWorkflow_Run_UserFetchFailure(t *testing.T) {
	store := newMemStorage()
	store.listUsersErr = errors.New("store offline")
	wf := newTestWorkflow(store, &fakeNews{}, &fakeLLM{}, &fakeDispatcher{})

	run, err := wf.Run(context.Background(), models.TriggerManual)
	require.Error(t, err)

	saved, getErr := store.GetRun(context.Background(), run.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.OutcomeFailure, saved.Outcome)
	assert.NotEmpty(t, saved.Message)
	assert.Equal(t, stepMaxAttempts, store.listUsersCalls)
}

func TestWorkflow_Run_NewsFailureDegradesToEmpty(t *testing.T) {
	store := newMemStorage(testUsers()[0])
	news := &fakeNews{companyErr: errors.New("feed down"), generalErr: errors.New("feed down")}
	llm := &fakeLLM{response: "Quiet day, no market news."}
	dispatcher := &fakeDispatcher{}

	wf := newTestWorkflow(store, news, llm, dispatcher)
	run, err := wf.Run(context.Background(), models.TriggerManual)
	require.NoError(t, err)

	// The pipeline still completes; the model is asked to summarize an
	// empty article set.
	assert.Equal(t, models.OutcomeSuccess, run.Outcome)
	assert.Equal(t, 1, run.EmailsSent)
	assert.Equal(t, 1, llm.callCount())
}

func TestWorkflow_Resume_SkipsCompletedSteps(t *testing.T) {
	users := testUsers()
	store := newMemStorage(users...)
	news := &fakeNews{articles: []*models.Article{testArticle()}}
	llm := &fakeLLM{response: "Resumed recap."}
	dispatcher := &fakeDispatcher{}

	wf := newTestWorkflow(store, news, llm, dispatcher)
	run, err := wf.Begin(context.Background(), models.TriggerScheduled)
	require.NoError(t, err)

	ctx := context.Background()

	// Simulate an interrupted run: users and news are checkpointed, and the
	// first user's summary already exists.
	usersPayload, err := json.Marshal(users)
	require.NoError(t, err)
	require.NoError(t, store.SaveCheckpoint(ctx, &models.Checkpoint{
		RunID: run.ID, Step: models.StepFetchUsers, Payload: usersPayload,
	}))

	bundles := []models.UserNewsBundle{
		{User: users[0], Articles: []*models.Article{testArticle()}},
		{User: users[1], Articles: []*models.Article{testArticle()}},
	}
	bundlesPayload, err := json.Marshal(bundles)
	require.NoError(t, err)
	require.NoError(t, store.SaveCheckpoint(ctx, &models.Checkpoint{
		RunID: run.ID, Step: models.StepFetchNewsPerUser, Payload: bundlesPayload,
	}))

	janeText := "Jane's earlier recap."
	janePayload, err := json.Marshal(models.UserSummary{User: users[0], SummaryText: &janeText})
	require.NoError(t, err)
	require.NoError(t, store.SaveCheckpoint(ctx, &models.Checkpoint{
		RunID: run.ID, Step: models.StepSummarizePerUser, EntityKey: users[0].Email, Payload: janePayload,
	}))

	resumed, err := wf.Resume(ctx, run.ID)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeSuccess, resumed.Outcome)
	assert.Equal(t, 2, resumed.EmailsSent)

	// Completed steps were not re-executed.
	assert.Equal(t, 0, store.listUsersCalls)
	assert.Equal(t, 0, news.companyCalls)
	assert.Equal(t, 1, llm.callCount())

	// Jane's email used her checkpointed summary.
	for _, sent := range dispatcher.sent {
		if sent.Email == users[0].Email {
			assert.Equal(t, janeText, sent.NewsContent)
		}
	}
}

func TestWorkflow_Resume_TerminalRunIsUntouched(t *testing.T) {
	store := newMemStorage(testUsers()...)
	wf := newTestWorkflow(store, &fakeNews{}, &fakeLLM{}, &fakeDispatcher{})

	done := time.Now()
	require.NoError(t, store.SaveRun(context.Background(), &models.WorkflowRun{
		ID: "run_done", Outcome: models.OutcomeSuccess, CompletedAt: &done,
	}))

	run, err := wf.Resume(context.Background(), "run_done")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeSuccess, run.Outcome)
	assert.Equal(t, 0, store.listUsersCalls)
}

func TestWorkflow_DispatchSkipsFailedRecipients(t *testing.T) {
	store := newMemStorage(testUsers()...)
	news := &fakeNews{articles: []*models.Article{testArticle()}}
	llm := &fakeLLM{response: "Recap."}
	dispatcher := &fakeDispatcher{failFor: map[string]bool{"jane@example.com": true}}

	wf := newTestWorkflow(store, news, llm, dispatcher)
	run, err := wf.Run(context.Background(), models.TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeSuccess, run.Outcome)
	assert.Equal(t, 1, run.EmailsSent)
	assert.Equal(t, []string{"sam@example.com"}, dispatcher.recipients())
}

func TestFormatEmailDate(t *testing.T) {
	ts := time.Date(2025, time.March, 7, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "Friday, March 7, 2025", FormatEmailDate(ts))
}
