package models

import (
	"fmt"
	"time"
)

// RemovedHeadline marks articles the provider has retracted. They still
// appear in feed responses and must be filtered out.
const RemovedHeadline = "(Removed)"

// RawArticle is the provider-native news record as returned by the
// market-news feed. It is transient and discarded after normalization.
type RawArticle struct {
	ID       int64  `json:"id"`
	Category string `json:"category,omitempty"`
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
	Source   string `json:"source"`
	Datetime int64  `json:"datetime"`
	Image    string `json:"image,omitempty"`
	Related  string `json:"related,omitempty"`
}

// Valid reports whether the raw article carries the minimum usable fields:
// non-empty headline, summary and URL, a non-retracted headline, and a
// past-or-present publish timestamp.
func (a *RawArticle) Valid() bool {
	if a.Headline == "" || a.Summary == "" || a.URL == "" {
		return false
	}
	if a.Headline == RemovedHeadline {
		return false
	}
	if a.Datetime <= 0 || a.Datetime > time.Now().Unix() {
		return false
	}
	return true
}

// DedupKey returns the composite identity used to collapse duplicate feed
// entries. First occurrence wins.
func (a *RawArticle) DedupKey() string {
	return fmt.Sprintf("%d-%s-%s", a.ID, a.URL, a.Headline)
}

// Article is the normalized, immutable record handed to summarization and
// email rendering. Rank records collection order for stable sort tie-breaks.
type Article struct {
	ID            int64  `json:"id"`
	Headline      string `json:"headline"`
	Summary       string `json:"summary"`
	Source        string `json:"source"`
	URL           string `json:"url"`
	Datetime      int64  `json:"datetime"`
	RelatedSymbol string `json:"relatedSymbol,omitempty"`
	Rank          int    `json:"rank"`
}

// NewArticle normalizes a raw article. relatedSymbol is empty for general
// (non symbol-scoped) news.
func NewArticle(raw *RawArticle, relatedSymbol string, rank int) *Article {
	return &Article{
		ID:            raw.ID,
		Headline:      raw.Headline,
		Summary:       raw.Summary,
		Source:        raw.Source,
		URL:           raw.URL,
		Datetime:      raw.Datetime,
		RelatedSymbol: relatedSymbol,
		Rank:          rank,
	}
}
