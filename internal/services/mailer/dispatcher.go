package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/signalist/internal/interfaces"
	"github.com/ternarybob/signalist/internal/templates"
)

// DispatchError represents a rejected send from the mail transport.
type DispatchError struct {
	To  string
	Err error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("mail dispatch to %s failed: %v", e.To, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Dispatcher renders email templates and hands them to the SMTP service.
// It implements interfaces.EmailDispatcher.
type Dispatcher struct {
	mail         *Service
	templatesDir string
	logger       arbor.ILogger
}

// NewDispatcher creates a new email dispatcher
func NewDispatcher(mail *Service, templatesDir string, logger arbor.ILogger) *Dispatcher {
	return &Dispatcher{
		mail:         mail,
		templatesDir: templatesDir,
		logger:       logger,
	}
}

// SendWelcomeEmail renders and sends the sign-up welcome email.
func (d *Dispatcher) SendWelcomeEmail(ctx context.Context, data interfaces.WelcomeEmailData) error {
	tmpl, err := templates.GetEmailTemplate("welcome", d.templatesDir)
	if err != nil {
		return &DispatchError{To: data.Email, Err: err}
	}

	html := strings.NewReplacer(
		"{{name}}", data.Name,
		"{{intro}}", data.Intro,
	).Replace(tmpl)

	subject := "Welcome to Signalist - Your Journey to Financial Freedom Begins Here"
	text := "Welcome to Signalist! We are thrilled to have you on board. Your journey to financial freedom begins here."

	if err := d.mail.SendHTMLEmail(ctx, data.Email, subject, html, text); err != nil {
		return &DispatchError{To: data.Email, Err: err}
	}

	d.logger.Info().Str("to", data.Email).Msg("Welcome email sent")
	return nil
}

// SendNewsSummaryEmail renders and sends the daily digest email.
func (d *Dispatcher) SendNewsSummaryEmail(ctx context.Context, data interfaces.NewsSummaryEmailData) error {
	tmpl, err := templates.GetEmailTemplate("news_summary", d.templatesDir)
	if err != nil {
		return &DispatchError{To: data.Email, Err: err}
	}

	html := strings.NewReplacer(
		"{{date}}", data.Date,
		"{{newsContent}}", data.NewsContent,
	).Replace(tmpl)

	subject := fmt.Sprintf("Market News Summary Today - %s", data.Date)
	text := "Your Signalist daily market digest is ready. Open this email in an HTML-capable client to read it."

	if err := d.mail.SendHTMLEmail(ctx, data.Email, subject, html, text); err != nil {
		return &DispatchError{To: data.Email, Err: err}
	}

	d.logger.Info().Str("to", data.Email).Msg("News summary email sent")
	return nil
}
