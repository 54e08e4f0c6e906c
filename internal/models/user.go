package models

import "time"

// User is the minimal identity record the digest pipeline needs. The
// authentication provider owns the full account; this store only mirrors
// what the lookup contract requires.
type User struct {
	ID        string    `json:"id" badgerhold:"key"`
	Email     string    `json:"email" badgerhold:"index"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// WatchlistItem is one tracked symbol for one user.
type WatchlistItem struct {
	Key     string    `json:"key" badgerhold:"key"` // userID/symbol
	UserID  string    `json:"user_id" badgerhold:"index"`
	Symbol  string    `json:"symbol"`
	AddedAt time.Time `json:"added_at"`
}

// UserNewsBundle carries one user's resolved symbols and fetched articles
// between the fetch and summarize steps. Transient within a run.
type UserNewsBundle struct {
	User     User       `json:"user"`
	Symbols  []string   `json:"symbols"`
	Articles []*Article `json:"articles"`
}

// UserSummary is the per-user summarization result. SummaryText is nil when
// the AI call failed or returned no usable text; downstream this means
// "skip email", not a fatal condition.
type UserSummary struct {
	User        User    `json:"user"`
	SummaryText *string `json:"summaryText"`
}
