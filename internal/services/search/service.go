// Package search resolves stock symbol lookups against Finnhub. An empty
// query returns a curated list of popular symbols so the UI always has
// something to show.
package search

import (
	"context"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/signalist/internal/common"
	"github.com/ternarybob/signalist/internal/finnhub"
)

const (
	// maxQueryResults caps results for a text search.
	maxQueryResults = 15
	// maxPopularResults caps the empty-query popular list.
	maxPopularResults = 10
)

// popularSymbols backs the empty-query response, ordered by how commonly
// watchlists include them.
var popularSymbols = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA",
	"TSLA", "META", "BRK.B", "JPM", "V",
	"UNH", "JNJ", "WMT", "PG", "MA",
}

// Finder is the slice of the Finnhub client the search service uses.
type Finder interface {
	SearchSymbols(ctx context.Context, query string) (*finnhub.SearchResponse, error)
	GetCompanyProfile(ctx context.Context, symbol string) (*finnhub.CompanyProfile, error)
}

type Service struct {
	client Finder
	logger arbor.ILogger
}

func NewService(client Finder, logger arbor.ILogger) *Service {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Service{client: client, logger: logger}
}

// Search returns symbol matches for a query. A blank query yields popular
// symbols instead of an error, and any provider failure degrades to an
// empty list.
func (s *Service) Search(ctx context.Context, query string) []finnhub.SymbolMatch {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.popular(ctx)
	}

	resp, err := s.client.SearchSymbols(ctx, query)
	if err != nil {
		s.logger.Warn().Err(err).Str("query", query).Msg("Symbol search failed")
		return []finnhub.SymbolMatch{}
	}

	matches := make([]finnhub.SymbolMatch, 0, maxQueryResults)
	for _, r := range resp.Result {
		if r.Symbol == "" {
			continue
		}
		name := r.Description
		if name == "" {
			name = r.Symbol
		}
		kind := r.Type
		if kind == "" {
			kind = "Stock"
		}
		exchange := "US"
		if r.DisplaySymbol != "" && r.DisplaySymbol != r.Symbol {
			exchange = r.DisplaySymbol
		}
		matches = append(matches, finnhub.SymbolMatch{
			Symbol:   strings.ToUpper(r.Symbol),
			Name:     name,
			Exchange: exchange,
			Type:     kind,
		})
		if len(matches) == maxQueryResults {
			break
		}
	}
	return matches
}

// popular resolves company profiles for the curated symbols concurrently.
// Symbols without a resolvable company name are dropped; order of the
// curated list is preserved for the rest.
func (s *Service) popular(ctx context.Context) []finnhub.SymbolMatch {
	symbols := popularSymbols
	if len(symbols) > maxPopularResults {
		symbols = symbols[:maxPopularResults]
	}

	resolved := make([]finnhub.SymbolMatch, len(symbols))
	var wg sync.WaitGroup
	for i, symbol := range symbols {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()

			profile, err := s.client.GetCompanyProfile(ctx, symbol)
			if err != nil {
				s.logger.Debug().Err(err).Str("symbol", symbol).Msg("Profile lookup failed for popular symbol")
				return
			}
			if profile.Name == "" {
				return
			}

			match := finnhub.SymbolMatch{
				Symbol:   symbol,
				Name:     profile.Name,
				Exchange: "US",
				Type:     "Stock",
			}
			if profile.Exchange != "" {
				match.Exchange = profile.Exchange
			}
			resolved[i] = match
		}(i, symbol)
	}
	wg.Wait()

	matches := make([]finnhub.SymbolMatch, 0, len(resolved))
	for _, match := range resolved {
		if match.Symbol != "" {
			matches = append(matches, match)
		}
	}
	return matches
}
