// Package mailer sends email over SMTP using configured credentials.
// Config values come from signalist.toml with key/value storage fallback
// (smtp_* keys), so credentials can be rotated without a restart.
package mailer

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/signalist/internal/common"
	"github.com/ternarybob/signalist/internal/interfaces"
)

// Service provides email sending over SMTP.
type Service struct {
	config    common.MailConfig
	kvStorage interfaces.KeyValueStorage
	logger    arbor.ILogger
}

// NewService creates a new mailer service
func NewService(config common.MailConfig, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) *Service {
	return &Service{
		config:    config,
		kvStorage: kvStorage,
		logger:    logger,
	}
}

// resolveConfig merges file configuration with smtp_* keys from key/value
// storage. KV values fill gaps left by the file config.
func (s *Service) resolveConfig(ctx context.Context) common.MailConfig {
	config := s.config

	if s.kvStorage == nil {
		return config
	}

	if config.Host == "" {
		if host, err := s.kvStorage.Get(ctx, "smtp_host"); err == nil && host != "" {
			config.Host = host
		}
	}
	if config.Port == 0 {
		if portStr, err := s.kvStorage.Get(ctx, "smtp_port"); err == nil && portStr != "" {
			if port, err := strconv.Atoi(portStr); err == nil {
				config.Port = port
			}
		}
	}
	if config.Username == "" {
		if username, err := s.kvStorage.Get(ctx, "smtp_username"); err == nil {
			config.Username = username
		}
	}
	if config.Password == "" {
		if password, err := s.kvStorage.Get(ctx, "smtp_password"); err == nil {
			config.Password = password
		}
	}
	if config.From == "" {
		if from, err := s.kvStorage.Get(ctx, "smtp_from"); err == nil && from != "" {
			config.From = from
		}
	}
	if config.FromName == "" {
		if fromName, err := s.kvStorage.Get(ctx, "smtp_from_name"); err == nil && fromName != "" {
			config.FromName = fromName
		}
	}

	return config
}

// IsConfigured checks whether SMTP has the minimum required settings.
func (s *Service) IsConfigured(ctx context.Context) bool {
	config := s.resolveConfig(ctx)
	return config.Host != "" && config.Username != "" && config.Password != "" && config.From != ""
}

// SendHTMLEmail sends an email with HTML and/or plain text body.
func (s *Service) SendHTMLEmail(ctx context.Context, to, subject, htmlBody, textBody string) error {
	config := s.resolveConfig(ctx)

	if config.Host == "" {
		return fmt.Errorf("SMTP host not configured")
	}
	if config.Username == "" || config.Password == "" {
		return fmt.Errorf("SMTP credentials not configured")
	}
	if config.From == "" {
		return fmt.Errorf("from email not configured")
	}

	// Build email message
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s <%s>\r\n", config.FromName, config.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))

	if htmlBody != "" {
		// Multipart message with HTML and text
		boundary := generateBoundary()
		msg.WriteString("MIME-Version: 1.0\r\n")
		msg.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary))
		msg.WriteString("\r\n")

		if textBody != "" {
			msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
			msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
			msg.WriteString("Content-Transfer-Encoding: base64\r\n")
			msg.WriteString("\r\n")
			msg.WriteString(encodeBase64WithLineBreaks(textBody))
			msg.WriteString("\r\n")
		}

		// RFC 5322 limits line length to 998 chars; base64 ensures compliance
		msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
		msg.WriteString("Content-Transfer-Encoding: base64\r\n")
		msg.WriteString("\r\n")
		msg.WriteString(encodeBase64WithLineBreaks(htmlBody))
		msg.WriteString("\r\n")

		msg.WriteString(fmt.Sprintf("--%s--\r\n", boundary))
	} else {
		// Plain text only
		msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
		msg.WriteString("\r\n")
		msg.WriteString(textBody)
	}

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	auth := smtp.PlainAuth("", config.Username, config.Password, config.Host)

	if config.UseTLS {
		return s.sendWithTLS(addr, auth, config.From, to, msg.String())
	}

	return smtp.SendMail(addr, auth, config.From, []string{to}, []byte(msg.String()))
}

// sendWithTLS sends email using TLS connection (required for Gmail)
func (s *Service) sendWithTLS(addr string, auth smtp.Auth, from, to, msg string) error {
	host := strings.Split(addr, ":")[0]

	conn, err := tls.Dial("tcp", addr, &tls.Config{
		ServerName: host,
	})
	if err != nil {
		// Fallback to STARTTLS if direct TLS fails
		return s.sendWithSTARTTLS(addr, auth, from, to, msg)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set mail recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start data: %w", err)
	}
	if _, err = w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}

// sendWithSTARTTLS sends email using STARTTLS upgrade
func (s *Service) sendWithSTARTTLS(addr string, auth smtp.Auth, from, to, msg string) error {
	host := strings.Split(addr, ":")[0]

	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set mail recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start data: %w", err)
	}
	if _, err = w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}

// generateBoundary creates a unique MIME boundary string
func generateBoundary() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "signalist-boundary-fallback"
	}
	return "signalist-" + base64.RawURLEncoding.EncodeToString(b)
}

// encodeBase64WithLineBreaks encodes content as base64 with 76-char lines
// per RFC 2045.
func encodeBase64WithLineBreaks(content string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(content))

	var result strings.Builder
	for i := 0; i < len(encoded); i += 76 {
		end := i + 76
		if end > len(encoded) {
			end = len(encoded)
		}
		result.WriteString(encoded[i:end])
		result.WriteString("\r\n")
	}
	return result.String()
}
