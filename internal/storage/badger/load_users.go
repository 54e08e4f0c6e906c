package badger

import (
	"context"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/signalist/internal/interfaces"
	"github.com/ternarybob/signalist/internal/models"
)

// seedUser is one entry of a users seed file:
//
//	[[users]]
//	id = "u1"
//	email = "jane@example.com"
//	name = "Jane"
//	watchlist = ["AAPL", "MSFT"]
type seedUser struct {
	ID        string   `toml:"id"`
	Email     string   `toml:"email"`
	Name      string   `toml:"name"`
	Watchlist []string `toml:"watchlist"`
}

type seedFile struct {
	Users []seedUser `toml:"users"`
}

// LoadUsersFromFile seeds the user/watchlist store from a TOML file at
// startup. Missing file is not an error; in production the auth provider
// owns account writes and this loader is skipped.
func LoadUsersFromFile(ctx context.Context, path string, users interfaces.UserStorage, logger arbor.ILogger) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug().Str("path", path).Msg("No user seed file found, skipping")
			return nil
		}
		return fmt.Errorf("failed to read user seed file %s: %w", path, err)
	}

	var seed seedFile
	if err := toml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse user seed file %s: %w", path, err)
	}

	loaded := 0
	for _, su := range seed.Users {
		if su.ID == "" || su.Email == "" {
			logger.Warn().Str("email", su.Email).Msg("Skipping seed user without id or email")
			continue
		}

		user := &models.User{ID: su.ID, Email: su.Email, Name: su.Name}
		if err := users.SaveUser(ctx, user); err != nil {
			logger.Warn().Err(err).Str("email", su.Email).Msg("Failed to seed user")
			continue
		}
		for _, symbol := range su.Watchlist {
			if err := users.AddWatchlistSymbol(ctx, su.ID, symbol); err != nil {
				logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to seed watchlist symbol")
			}
		}
		loaded++
	}

	logger.Info().Int("count", loaded).Str("path", path).Msg("Seeded users from file")
	return nil
}
