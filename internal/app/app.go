// Package app wires configuration, storage, services and HTTP handlers into
// a single application container.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/signalist/internal/common"
	"github.com/ternarybob/signalist/internal/finnhub"
	"github.com/ternarybob/signalist/internal/handlers"
	"github.com/ternarybob/signalist/internal/interfaces"
	"github.com/ternarybob/signalist/internal/services/digest"
	"github.com/ternarybob/signalist/internal/services/llm"
	"github.com/ternarybob/signalist/internal/services/mailer"
	"github.com/ternarybob/signalist/internal/services/news"
	"github.com/ternarybob/signalist/internal/services/scheduler"
	"github.com/ternarybob/signalist/internal/services/search"
	"github.com/ternarybob/signalist/internal/services/watchlist"
	badgerstore "github.com/ternarybob/signalist/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Market data
	FinnhubClient *finnhub.Client
	NewsService   *news.Service
	SearchService *search.Service

	// Digest pipeline
	WatchlistService *watchlist.Service
	LLMService       interfaces.LLMService
	MailService      *mailer.Service
	Dispatcher       *mailer.Dispatcher
	Workflow         *digest.Workflow
	SchedulerService *scheduler.Service

	// HTTP handlers
	StatusHandler *handlers.StatusHandler
	DigestHandler *handlers.DigestHandler
	SearchHandler *handlers.SearchHandler
	EventHandler  *handlers.EventHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.initHandlers()

	return app, nil
}

func (a *App) initStorage() error {
	manager, err := badgerstore.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return err
	}
	a.StorageManager = manager

	if a.Config.Seed.UsersFile != "" {
		if err := badgerstore.LoadUsersFromFile(context.Background(), a.Config.Seed.UsersFile, manager.UserStorage(), a.Logger); err != nil {
			return err
		}
	}
	if a.Config.Seed.EmailFile != "" {
		if err := badgerstore.LoadEmailFromFile(context.Background(), a.Config.Seed.EmailFile, manager.KeyValueStorage(), a.Logger); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) initServices() error {
	finnhubTimeout := parseDurationOr(a.Config.Finnhub.Timeout, 30*time.Second)
	a.FinnhubClient = finnhub.NewClient(
		a.Config.Finnhub.APIKey,
		finnhub.WithBaseURL(a.Config.Finnhub.BaseURL),
		finnhub.WithHTTPClient(&http.Client{Timeout: finnhubTimeout}),
		finnhub.WithRateLimit(a.Config.Finnhub.RateLimit),
		finnhub.WithLogger(a.Logger),
	)

	a.NewsService = news.NewService(a.FinnhubClient, a.Logger)
	a.SearchService = search.NewService(a.FinnhubClient, a.Logger)
	a.WatchlistService = watchlist.NewService(a.StorageManager.UserStorage(), a.Logger)

	llmService, err := llm.NewLLMService(a.Config, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM service: %w", err)
	}
	a.LLMService = llmService

	a.MailService = mailer.NewService(a.Config.Mail, a.StorageManager.KeyValueStorage(), a.Logger)
	a.Dispatcher = mailer.NewDispatcher(a.MailService, a.Config.Templates.Dir, a.Logger)

	a.Workflow = digest.NewWorkflow(
		a.StorageManager,
		a.NewsService,
		a.WatchlistService,
		a.LLMService,
		a.Dispatcher,
		a.Config.Finnhub.NewsWindowDays,
		a.Config.Templates.Dir,
		a.Logger,
	)
	a.SchedulerService = scheduler.NewService(a.Config.Digest, a.Workflow, a.Logger)

	return nil
}

func (a *App) initHandlers() {
	a.StatusHandler = handlers.NewStatusHandler(a.Config, a.Logger)
	a.DigestHandler = handlers.NewDigestHandler(a.SchedulerService, a.StorageManager.RunStorage(), a.Logger)
	a.SearchHandler = handlers.NewSearchHandler(a.SearchService, a.Logger)
	a.EventHandler = handlers.NewEventHandler(a.StorageManager.UserStorage(), a.Workflow, a.Logger)
}

// Start brings up the background parts of the application: the LLM
// provider is verified, interrupted runs are resumed, then the digest
// schedule is registered.
func (a *App) Start(ctx context.Context) error {
	// Surfaces an invalid or placeholder API key at startup rather than
	// mid-run; summaries degrade per user if the provider fails later.
	if err := a.LLMService.HealthCheck(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("LLM service health check failed - summaries may be degraded")
	} else {
		a.Logger.Debug().Msg("LLM service health check passed")
	}

	if err := a.Workflow.ResumeIncomplete(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to resume interrupted digest runs")
	}
	return a.SchedulerService.Start(ctx)
}

// Close releases all application resources
func (a *App) Close() error {
	a.SchedulerService.Stop()

	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
	}
	return nil
}

func parseDurationOr(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
