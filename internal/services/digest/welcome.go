package digest

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/signalist/internal/interfaces"
	"github.com/ternarybob/signalist/internal/templates"
)

// fallbackIntro is used when the AI intro generation fails; sign-up email
// delivery never depends on model availability.
const fallbackIntro = "Thanks for joining Signalist. You now have the tools to track markets and make smarter moves."

// SignupProfile is the investment profile captured at sign-up, used to
// personalize the welcome email intro.
type SignupProfile struct {
	Email             string `json:"email"`
	Name              string `json:"name"`
	Country           string `json:"country"`
	InvestmentGoals   string `json:"investmentGoals"`
	RiskTolerance     string `json:"riskTolerance"`
	PreferredIndustry string `json:"preferredIndustry"`
}

// SendWelcome generates a personalized intro for a new user and dispatches
// the welcome email. Unlike the daily digest this path is not checkpointed;
// it runs once per sign-up event and a failed send is simply returned to
// the caller.
func (w *Workflow) SendWelcome(ctx context.Context, profile SignupProfile) error {
	intro := w.generateIntro(ctx, profile)

	data := interfaces.WelcomeEmailData{
		Email: profile.Email,
		Name:  profile.Name,
		Intro: intro,
	}
	if err := w.dispatcher.SendWelcomeEmail(ctx, data); err != nil {
		return fmt.Errorf("failed to send welcome email to %s: %w", profile.Email, err)
	}

	w.logger.Info().Str("email", profile.Email).Msg("Welcome email sent")
	return nil
}

// generateIntro asks the model for a one-paragraph personalized intro. Any
// failure falls back to a fixed sentence.
func (w *Workflow) generateIntro(ctx context.Context, profile SignupProfile) string {
	prompt, err := templates.GetPrompt("welcome_intro", w.templatesDir)
	if err != nil {
		w.logger.Warn().Err(err).Msg("Failed to load welcome intro prompt, using fallback")
		return fallbackIntro
	}

	content := strings.ReplaceAll(prompt.Prompt, "{{userProfile}}", profile.describe())
	response, err := w.llm.Chat(ctx, []interfaces.Message{{Role: "user", Content: content}})
	if err != nil || strings.TrimSpace(response) == "" {
		w.logger.Warn().Err(err).
			Str("email", profile.Email).
			Msg("Failed to generate welcome intro, using fallback")
		return fallbackIntro
	}
	return strings.TrimSpace(response)
}

// describe renders the profile as the bullet list the intro prompt expects.
func (p SignupProfile) describe() string {
	return fmt.Sprintf(
		"- Country: %s\n- Investment goals: %s\n- Risk tolerance: %s\n- Preferred industry: %s",
		p.Country, p.InvestmentGoals, p.RiskTolerance, p.PreferredIndustry,
	)
}
