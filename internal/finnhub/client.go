package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/signalist/internal/models"
)

const (
	// DefaultBaseURL is the base URL for the Finnhub API.
	DefaultBaseURL = "https://finnhub.io/api/v1"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 10

	// profileCacheTTL caches /stock/profile2 responses for an hour.
	profileCacheTTL = time.Hour

	// searchCacheTTL caches /search responses for thirty minutes.
	searchCacheTTL = 30 * time.Minute
)

// Client is a Finnhub API client. There is no retry at this layer;
// retrying a failed call is the workflow's responsibility.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter

	cacheMu sync.Mutex
	cache   map[string]cacheEntry
}

type cacheEntry struct {
	body      []byte
	expiresAt time.Time
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewClient creates a new Finnhub API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		cache:   make(map[string]cacheEntry),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// get performs a GET request to the API. A cacheTTL greater than zero
// consults and populates the response cache with exactly that validity
// window; zero always refetches.
func (c *Client) get(ctx context.Context, path string, params url.Values, cacheTTL time.Duration, result interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	cacheKey := path + "?" + params.Encode()

	if cacheTTL > 0 {
		if body, ok := c.cachedResponse(cacheKey); ok {
			return json.Unmarshal(body, result)
		}
	}

	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return &RateLimitError{RetryAfter: time.Second}
	}

	// Add API token
	params.Set("token", c.apiKey)
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("url", c.baseURL+path).
			Msg("Finnhub API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if cacheTTL > 0 {
		c.storeResponse(cacheKey, body, cacheTTL)
	}

	return nil
}

func (c *Client) cachedResponse(key string) ([]byte, bool) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()

	entry, ok := c.cache[key]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(c.cache, key)
		return nil, false
	}
	return entry.body, true
}

func (c *Client) storeResponse(key string, body []byte, ttl time.Duration) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cache[key] = cacheEntry{body: body, expiresAt: time.Now().Add(ttl)}
}

// GetGeneralNews retrieves the general market news feed. The feed endpoint
// takes no date range; callers window and filter the result.
func (c *Client) GetGeneralNews(ctx context.Context) ([]models.RawArticle, error) {
	params := url.Values{}
	params.Set("category", "general")

	var result []models.RawArticle
	if err := c.get(ctx, "/news", params, 0, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetCompanyNews retrieves news for a single symbol within a date range.
func (c *Client) GetCompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]models.RawArticle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("from", from.Format("2006-01-02"))
	params.Set("to", to.Format("2006-01-02"))

	var result []models.RawArticle
	if err := c.get(ctx, "/company-news", params, 0, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// SearchSymbols queries the symbol search endpoint. Responses are cached.
func (c *Client) SearchSymbols(ctx context.Context, query string) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("q", query)

	var result SearchResponse
	if err := c.get(ctx, "/search", params, searchCacheTTL, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetCompanyProfile retrieves the company profile for a symbol. Responses
// are cached.
func (c *Client) GetCompanyProfile(ctx context.Context, symbol string) (*CompanyProfile, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var result CompanyProfile
	if err := c.get(ctx, "/stock/profile2", params, profileCacheTTL, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
