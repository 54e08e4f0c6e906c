package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/signalist/internal/interfaces"
	"github.com/ternarybob/signalist/internal/models"
)

// UserStorage implements the UserStorage interface for Badger
type UserStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewUserStorage creates a new UserStorage instance
func NewUserStorage(db *BadgerDB, logger arbor.ILogger) interfaces.UserStorage {
	return &UserStorage{
		db:     db,
		logger: logger,
	}
}

// ListDigestUsers returns all users eligible for the daily digest,
// oldest account first.
func (s *UserStorage) ListDigestUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.Store().Find(&users, badgerhold.Where("ID").Ne("").SortBy("CreatedAt"))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// FindUserByEmail returns the user record for an email address.
func (s *UserStorage) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var users []models.User
	err := s.db.Store().Find(&users, badgerhold.Where("Email").Eq(email).Index("Email"))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if len(users) == 0 {
		return nil, interfaces.ErrKeyNotFound
	}
	return &users[0], nil
}

// ListWatchlistSymbols returns the symbols tracked by a user, in stored
// (added-at) order.
func (s *UserStorage) ListWatchlistSymbols(ctx context.Context, userID string) ([]string, error) {
	var items []models.WatchlistItem
	err := s.db.Store().Find(&items, badgerhold.Where("UserID").Eq(userID).Index("UserID").SortBy("AddedAt"))
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}

	symbols := make([]string, 0, len(items))
	for _, item := range items {
		symbols = append(symbols, item.Symbol)
	}
	return symbols, nil
}

// SaveUser inserts or updates a user record.
func (s *UserStorage) SaveUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		return fmt.Errorf("user ID is required")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	if err := s.db.Store().Upsert(user.ID, user); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// AddWatchlistSymbol adds a symbol to a user's watchlist. Adding an
// already-tracked symbol is a no-op upsert.
func (s *UserStorage) AddWatchlistSymbol(ctx context.Context, userID, symbol string) error {
	if userID == "" || symbol == "" {
		return fmt.Errorf("user ID and symbol are required")
	}

	item := models.WatchlistItem{
		Key:     userID + "/" + symbol,
		UserID:  userID,
		Symbol:  symbol,
		AddedAt: time.Now(),
	}

	var existing models.WatchlistItem
	if err := s.db.Store().Get(item.Key, &existing); err == nil {
		item.AddedAt = existing.AddedAt
	}

	if err := s.db.Store().Upsert(item.Key, &item); err != nil {
		return fmt.Errorf("failed to add watchlist symbol: %w", err)
	}
	return nil
}

// DeleteUser removes a user and their watchlist entries.
func (s *UserStorage) DeleteUser(ctx context.Context, userID string) error {
	if err := s.db.Store().Delete(userID, &models.User{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	var items []models.WatchlistItem
	if err := s.db.Store().Find(&items, badgerhold.Where("UserID").Eq(userID).Index("UserID")); err != nil {
		return fmt.Errorf("failed to list watchlist for deletion: %w", err)
	}
	for _, item := range items {
		if err := s.db.Store().Delete(item.Key, &models.WatchlistItem{}); err != nil {
			s.logger.Warn().Err(err).Str("key", item.Key).Msg("Failed to delete watchlist item")
		}
	}

	return nil
}
