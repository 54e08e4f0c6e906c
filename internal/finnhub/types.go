// Package finnhub provides a client for the Finnhub market-news API.
// This package centralizes all Finnhub API interactions for the application.
package finnhub

import (
	"fmt"
	"time"
)

// APIError represents a non-success HTTP response from the Finnhub API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Finnhub API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// RateLimitError represents a client-side rate limit wait failure.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("Finnhub rate limit exceeded, retry after %v", e.RetryAfter)
}

// SearchResult is one entry of a /search response.
type SearchResult struct {
	Symbol        string `json:"symbol"`
	Description   string `json:"description"`
	DisplaySymbol string `json:"displaySymbol"`
	Type          string `json:"type"`
}

// SearchResponse is the /search response envelope.
type SearchResponse struct {
	Count  int            `json:"count"`
	Result []SearchResult `json:"result"`
}

// CompanyProfile is the /stock/profile2 response.
type CompanyProfile struct {
	Name     string `json:"name"`
	Ticker   string `json:"ticker"`
	Exchange string `json:"exchange"`
	Country  string `json:"country"`
	Currency string `json:"currency"`
	WebURL   string `json:"weburl"`
	Logo     string `json:"logo"`
	Industry string `json:"finnhubIndustry"`
}

// SymbolMatch is the normalized search result handed to callers. It carries
// the exchange explicitly instead of widening a provider type after the fact.
type SymbolMatch struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Type     string `json:"type"`
}
