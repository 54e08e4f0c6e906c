package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/signalist/internal/models"
)

// NewsService produces bounded, validated article sets for a date window.
type NewsService interface {
	// GeneralNews returns up to six de-duplicated general market articles.
	GeneralNews(ctx context.Context, from, to time.Time) ([]*models.Article, error)

	// CompanyNews round-robins the given symbols and returns up to six
	// articles sorted newest first. Empty symbol sets fall back to
	// GeneralNews.
	CompanyNews(ctx context.Context, symbols []string, from, to time.Time) ([]*models.Article, error)
}

// WatchlistService maps a user email to their tracked symbols. It never
// returns an error; all failure paths degrade to an empty list.
type WatchlistService interface {
	SymbolsForEmail(ctx context.Context, email string) []string
}

// WelcomeEmailData carries the rendered inputs for the sign-up email.
type WelcomeEmailData struct {
	Email string
	Name  string
	Intro string
}

// NewsSummaryEmailData carries the rendered inputs for the digest email.
type NewsSummaryEmailData struct {
	Email       string
	Date        string
	NewsContent string
}

// EmailDispatcher renders an email template and hands off to the mail
// transport. A rejected send surfaces as a DispatchError; the workflow
// treats that as a per-user failure, never a run failure.
type EmailDispatcher interface {
	SendWelcomeEmail(ctx context.Context, data WelcomeEmailData) error
	SendNewsSummaryEmail(ctx context.Context, data NewsSummaryEmailData) error
}
