package digest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/signalist/internal/interfaces"
)

// welcomeRecorder captures welcome sends.
type welcomeRecorder struct {
	mu      sync.Mutex
	sent    []interfaces.WelcomeEmailData
	sendErr error
}

func (r *welcomeRecorder) SendWelcomeEmail(ctx context.Context, data interfaces.WelcomeEmailData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sendErr != nil {
		return r.sendErr
	}
	r.sent = append(r.sent, data)
	return nil
}

func (r *welcomeRecorder) SendNewsSummaryEmail(ctx context.Context, data interfaces.NewsSummaryEmailData) error {
	return nil
}

func signupProfile() SignupProfile {
	return SignupProfile{
		Email:             "jane@example.com",
		Name:              "Jane",
		Country:           "US",
		InvestmentGoals:   "Growth",
		RiskTolerance:     "Medium",
		PreferredIndustry: "Technology",
	}
}

func TestSendWelcome(t *testing.T) {
	t.Run("uses the generated intro", func(t *testing.T) {
		store := newMemStorage()
		llm := &fakeLLM{response: "Welcome aboard, growth investor."}
		recorder := &welcomeRecorder{}
		wf := NewWorkflow(store, &fakeNews{}, &stubWatchlist{}, llm, recorder, 5, "", nil)

		require.NoError(t, wf.SendWelcome(context.Background(), signupProfile()))
		require.Len(t, recorder.sent, 1)
		assert.Equal(t, "jane@example.com", recorder.sent[0].Email)
		assert.Equal(t, "Jane", recorder.sent[0].Name)
		assert.Equal(t, "Welcome aboard, growth investor.", recorder.sent[0].Intro)
	})

	t.Run("model failure falls back to the fixed intro", func(t *testing.T) {
		store := newMemStorage()
		llm := &fakeLLM{errs: []error{errors.New("quota")}}
		recorder := &welcomeRecorder{}
		wf := NewWorkflow(store, &fakeNews{}, &stubWatchlist{}, llm, recorder, 5, "", nil)

		require.NoError(t, wf.SendWelcome(context.Background(), signupProfile()))
		require.Len(t, recorder.sent, 1)
		assert.Equal(t, fallbackIntro, recorder.sent[0].Intro)
	})

	t.Run("dispatch failure is returned", func(t *testing.T) {
		store := newMemStorage()
		llm := &fakeLLM{response: "intro"}
		recorder := &welcomeRecorder{sendErr: errors.New("smtp rejected")}
		wf := NewWorkflow(store, &fakeNews{}, &stubWatchlist{}, llm, recorder, 5, "", nil)

		err := wf.SendWelcome(context.Background(), signupProfile())
		assert.Error(t, err)
	})
}
