package badger

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/signalist/internal/interfaces"
)

// emailSeed is the [email] section of an email seed file:
//
//	[email]
//	smtp_host = "smtp.gmail.com"
//	smtp_port = 587
//	smtp_username = "signalist@example.com"
//	smtp_password = "app-password"
//	smtp_from = "signalist@example.com"
//	smtp_from_name = "Signalist"
type emailSeed struct {
	SMTPHost     string `toml:"smtp_host"`
	SMTPPort     int    `toml:"smtp_port"`
	SMTPUsername string `toml:"smtp_username"`
	SMTPPassword string `toml:"smtp_password"`
	SMTPFrom     string `toml:"smtp_from"`
	SMTPFromName string `toml:"smtp_from_name"`
}

type emailSeedFile struct {
	Email emailSeed `toml:"email"`
}

// LoadEmailFromFile seeds SMTP settings into key/value storage from a TOML
// file at startup. The mailer reads smtp_* keys as a fallback for values
// missing from the main config, so credentials can be rotated by updating
// the KV store without a restart. Missing file is not an error.
func LoadEmailFromFile(ctx context.Context, path string, kv interfaces.KeyValueStorage, logger arbor.ILogger) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug().Str("path", path).Msg("No email seed file found, skipping")
			return nil
		}
		return fmt.Errorf("failed to read email seed file %s: %w", path, err)
	}

	var seed emailSeedFile
	if err := toml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse email seed file %s: %w", path, err)
	}

	email := seed.Email
	if email.SMTPHost == "" && email.SMTPUsername == "" {
		logger.Debug().Str("path", path).Msg("Email seed file has no [email] section, skipping")
		return nil
	}

	items := map[string]struct {
		value       string
		description string
	}{
		"smtp_host":      {email.SMTPHost, "SMTP server hostname"},
		"smtp_port":      {strconv.Itoa(email.SMTPPort), "SMTP server port"},
		"smtp_username":  {email.SMTPUsername, "SMTP username (email address)"},
		"smtp_password":  {email.SMTPPassword, "SMTP password or app password"},
		"smtp_from":      {email.SMTPFrom, "From email address"},
		"smtp_from_name": {email.SMTPFromName, "From display name"},
	}

	stored := 0
	for key, item := range items {
		// Zero port means use the mailer default
		if item.value == "" || (key == "smtp_port" && item.value == "0") {
			continue
		}
		if err := kv.Set(ctx, key, item.value, item.description); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Failed to store SMTP setting")
			continue
		}
		stored++
	}

	logger.Info().Int("count", stored).Str("path", path).Msg("Seeded SMTP settings from file")
	return nil
}
