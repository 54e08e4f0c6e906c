// Package watchlist maps user identities to their tracked symbols.
package watchlist

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/signalist/internal/interfaces"
)

// Service resolves watchlist symbols through the user store. It never
// returns an error: a user without an account record simply gets general
// news, and store failures degrade to an empty list with a logged
// diagnostic.
type Service struct {
	users  interfaces.UserStorage
	logger arbor.ILogger
}

// NewService creates a new watchlist resolution service
func NewService(users interfaces.UserStorage, logger arbor.ILogger) *Service {
	return &Service{
		users:  users,
		logger: logger,
	}
}

// SymbolsForEmail returns the symbols tracked by the user with the given
// email, in stored order.
func (s *Service) SymbolsForEmail(ctx context.Context, email string) []string {
	if email == "" {
		s.logger.Warn().Msg("Watchlist lookup requested without email")
		return []string{}
	}

	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		if err == interfaces.ErrKeyNotFound {
			s.logger.Debug().Str("email", email).Msg("No account record for email, falling back to general news")
		} else {
			s.logger.Warn().Err(err).Str("email", email).Msg("User lookup failed")
		}
		return []string{}
	}

	symbols, err := s.users.ListWatchlistSymbols(ctx, user.ID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("Watchlist lookup failed")
		return []string{}
	}

	return symbols
}
