// Package news turns raw provider feeds into bounded, validated article
// sets: general-feed deduplication and symbol round-robin collection.
package news

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/signalist/internal/models"
)

const (
	// MaxArticles bounds every aggregation result.
	MaxArticles = 6

	// maxRounds bounds upstream call volume for symbol-scoped collection
	// regardless of watchlist size.
	maxRounds = 6
)

// Feed is the upstream news source the aggregator draws from.
type Feed interface {
	GetGeneralNews(ctx context.Context) ([]models.RawArticle, error)
	GetCompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]models.RawArticle, error)
}

// Service implements interfaces.NewsService on top of a Feed.
type Service struct {
	feed   Feed
	logger arbor.ILogger
}

// NewService creates a new news aggregation service
func NewService(feed Feed, logger arbor.ILogger) *Service {
	return &Service{
		feed:   feed,
		logger: logger,
	}
}

// GeneralNews returns up to six articles from the general market feed.
// Invalid articles are dropped, duplicates collapse by (id, url, headline)
// in arrival order, and each kept article is tagged with its position index
// as rank.
func (s *Service) GeneralNews(ctx context.Context, from, to time.Time) ([]*models.Article, error) {
	raw, err := s.feed.GetGeneralNews(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	articles := make([]*models.Article, 0, MaxArticles)

	for i := range raw {
		if !raw[i].Valid() {
			continue
		}
		key := raw[i].DedupKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		articles = append(articles, models.NewArticle(&raw[i], "", len(articles)))
		if len(articles) >= MaxArticles {
			break
		}
	}

	return articles, nil
}

// CompanyNews collects up to six articles across the given symbols using
// bounded round-robin: round r queries symbol r mod N, takes the first
// valid article whose URL is not already accumulated, and tags it with the
// symbol and round index. One symbol's upstream failure never aborts the
// aggregation. The result is sorted newest first.
func (s *Service) CompanyNews(ctx context.Context, symbols []string, from, to time.Time) ([]*models.Article, error) {
	cleaned := NormalizeSymbols(symbols)
	if len(cleaned) == 0 {
		return s.GeneralNews(ctx, from, to)
	}

	seenURLs := make(map[string]struct{})
	articles := make([]*models.Article, 0, MaxArticles)

	for round := 0; round < maxRounds; round++ {
		symbol := cleaned[round%len(cleaned)]

		raw, err := s.feed.GetCompanyNews(ctx, symbol, from, to)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("symbol", symbol).
				Int("round", round).
				Msg("Company news fetch failed, continuing with next symbol")
			continue
		}

		for i := range raw {
			if !raw[i].Valid() {
				continue
			}
			if _, dup := seenURLs[raw[i].URL]; dup {
				continue
			}
			seenURLs[raw[i].URL] = struct{}{}
			articles = append(articles, models.NewArticle(&raw[i], symbol, round))
			break // first passing article per round per symbol
		}

		if len(articles) >= MaxArticles {
			break
		}
	}

	sort.Slice(articles, func(i, j int) bool {
		if articles[i].Datetime != articles[j].Datetime {
			return articles[i].Datetime > articles[j].Datetime
		}
		return articles[i].Rank < articles[j].Rank
	})

	return articles, nil
}

// NormalizeSymbols trims, uppercases, drops empties and collapses duplicates
// while preserving first-occurrence order.
func NormalizeSymbols(symbols []string) []string {
	seen := make(map[string]struct{})
	cleaned := make([]string, 0, len(symbols))

	for _, s := range symbols {
		sym := strings.ToUpper(strings.TrimSpace(s))
		if sym == "" {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		cleaned = append(cleaned, sym)
	}

	return cleaned
}
