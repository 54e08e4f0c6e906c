package news

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/signalist/internal/common"
	"github.com/ternarybob/signalist/internal/models"
)

// fakeFeed serves scripted responses and records call order.
type fakeFeed struct {
	general      []models.RawArticle
	generalErr   error
	bySymbol     map[string][]models.RawArticle
	symbolErrs   map[string]error
	symbolCalls  []string
	generalCalls int
}

func (f *fakeFeed) GetGeneralNews(ctx context.Context) ([]models.RawArticle, error) {
	f.generalCalls++
	return f.general, f.generalErr
}

func (f *fakeFeed) GetCompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]models.RawArticle, error) {
	f.symbolCalls = append(f.symbolCalls, symbol)
	if err, ok := f.symbolErrs[symbol]; ok {
		return nil, err
	}
	return f.bySymbol[symbol], nil
}

func rawArticle(id int64, url string, age time.Duration) models.RawArticle {
	return models.RawArticle{
		ID:       id,
		Headline: fmt.Sprintf("Headline %d", id),
		Summary:  "Summary text",
		URL:      url,
		Source:   "TestWire",
		Datetime: time.Now().Add(-age).Unix(),
	}
}

func window() (time.Time, time.Time) {
	to := time.Now()
	return to.AddDate(0, 0, -5), to
}

func TestService_GeneralNews(t *testing.T) {
	logger := common.GetLogger()

	t.Run("drops invalid and duplicate articles", func(t *testing.T) {
		dup := rawArticle(1, "https://example.com/1", time.Hour)
		invalid := rawArticle(2, "https://example.com/2", time.Hour)
		invalid.Summary = ""

		feed := &fakeFeed{general: []models.RawArticle{
			rawArticle(1, "https://example.com/1", time.Hour),
			dup,
			invalid,
			rawArticle(3, "https://example.com/3", 2 * time.Hour),
		}}
		svc := NewService(feed, logger)

		from, to := window()
		articles, err := svc.GeneralNews(context.Background(), from, to)
		require.NoError(t, err)
		require.Len(t, articles, 2)
		assert.Equal(t, int64(1), articles[0].ID)
		assert.Equal(t, int64(3), articles[1].ID)
	})

	t.Run("caps at six and preserves arrival order with ranks", func(t *testing.T) {
		var raw []models.RawArticle
		for i := 1; i <= 10; i++ {
			raw = append(raw, rawArticle(int64(i), fmt.Sprintf("https://example.com/%d", i), time.Duration(i)*time.Hour))
		}
		svc := NewService(&fakeFeed{general: raw}, logger)

		from, to := window()
		articles, err := svc.GeneralNews(context.Background(), from, to)
		require.NoError(t, err)
		require.Len(t, articles, MaxArticles)
		for i, a := range articles {
			assert.Equal(t, int64(i+1), a.ID)
			assert.Equal(t, i, a.Rank)
			assert.Empty(t, a.RelatedSymbol)
		}
	})

	t.Run("propagates feed errors", func(t *testing.T) {
		svc := NewService(&fakeFeed{generalErr: errors.New("boom")}, logger)
		from, to := window()
		_, err := svc.GeneralNews(context.Background(), from, to)
		assert.Error(t, err)
	})
}

func TestService_CompanyNews(t *testing.T) {
	logger := common.GetLogger()
	from, to := window()

	t.Run("round-robins symbols and takes one article per round", func(t *testing.T) {
		feed := &fakeFeed{bySymbol: map[string][]models.RawArticle{
			"AAPL": {
				rawArticle(1, "https://example.com/aapl-1", 1 * time.Hour),
				rawArticle(2, "https://example.com/aapl-2", 2 * time.Hour),
			},
			"MSFT": {
				rawArticle(3, "https://example.com/msft-1", 3 * time.Hour),
			},
		}}
		svc := NewService(feed, logger)

		articles, err := svc.CompanyNews(context.Background(), []string{"AAPL", "MSFT"}, from, to)
		require.NoError(t, err)

		// Six rounds alternate AAPL, MSFT, AAPL, ...
		assert.Equal(t, []string{"AAPL", "MSFT", "AAPL", "MSFT", "AAPL", "MSFT"}, feed.symbolCalls)

		// AAPL contributes two distinct URLs, MSFT one; later rounds find
		// only already-collected URLs.
		require.Len(t, articles, 3)
		for _, a := range articles {
			assert.NotEmpty(t, a.RelatedSymbol)
		}
	})

	t.Run("sorts newest first with round as tie-break", func(t *testing.T) {
		feed := &fakeFeed{bySymbol: map[string][]models.RawArticle{
			"AAPL": {rawArticle(1, "https://example.com/old", 48 * time.Hour)},
			"MSFT": {rawArticle(2, "https://example.com/new", 1 * time.Hour)},
		}}
		svc := NewService(feed, logger)

		articles, err := svc.CompanyNews(context.Background(), []string{"AAPL", "MSFT"}, from, to)
		require.NoError(t, err)
		require.Len(t, articles, 2)
		assert.Equal(t, int64(2), articles[0].ID)
		assert.Equal(t, int64(1), articles[1].ID)
	})

	t.Run("one symbol failing does not abort the aggregation", func(t *testing.T) {
		feed := &fakeFeed{
			bySymbol: map[string][]models.RawArticle{
				"MSFT": {rawArticle(1, "https://example.com/msft", time.Hour)},
			},
			symbolErrs: map[string]error{"AAPL": errors.New("upstream 500")},
		}
		svc := NewService(feed, logger)

		articles, err := svc.CompanyNews(context.Background(), []string{"AAPL", "MSFT"}, from, to)
		require.NoError(t, err)
		require.Len(t, articles, 1)
		assert.Equal(t, "MSFT", articles[0].RelatedSymbol)
	})

	t.Run("empty symbol set falls back to general news", func(t *testing.T) {
		feed := &fakeFeed{general: []models.RawArticle{
			rawArticle(1, "https://example.com/1", time.Hour),
		}}
		svc := NewService(feed, logger)

		articles, err := svc.CompanyNews(context.Background(), []string{" ", ""}, from, to)
		require.NoError(t, err)
		assert.Equal(t, 1, feed.generalCalls)
		assert.Empty(t, feed.symbolCalls)
		require.Len(t, articles, 1)
	})

	t.Run("stops once six articles are collected", func(t *testing.T) {
		feed := &fakeFeed{bySymbol: map[string][]models.RawArticle{}}
		for i := 0; i < 8; i++ {
			sym := fmt.Sprintf("S%d", i)
			feed.bySymbol[sym] = []models.RawArticle{
				rawArticle(int64(i), fmt.Sprintf("https://example.com/%d", i), time.Duration(i+1)*time.Hour),
			}
		}
		svc := NewService(feed, logger)

		symbols := []string{"S0", "S1", "S2", "S3", "S4", "S5", "S6", "S7"}
		articles, err := svc.CompanyNews(context.Background(), symbols, from, to)
		require.NoError(t, err)
		assert.Len(t, articles, MaxArticles)
		assert.Len(t, feed.symbolCalls, MaxArticles)
	})
}

func TestNormalizeSymbols(t *testing.T) {
	got := NormalizeSymbols([]string{" aapl ", "MSFT", "", "msft", "googl"})
	assert.Equal(t, []string{"AAPL", "MSFT", "GOOGL"}, got)

	assert.Empty(t, NormalizeSymbols(nil))
	assert.Empty(t, NormalizeSymbols([]string{"  ", ""}))
}
