package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/signalist/internal/common"
	"github.com/ternarybob/signalist/internal/interfaces"
)

type stubKV struct {
	values map[string]string
}

func (s *stubKV) Get(ctx context.Context, key string) (string, error) {
	if value, ok := s.values[key]; ok {
		return value, nil
	}
	return "", interfaces.ErrKeyNotFound
}

func (s *stubKV) Set(ctx context.Context, key, value, description string) error {
	s.values[key] = value
	return nil
}

func (s *stubKV) Delete(ctx context.Context, key string) error {
	delete(s.values, key)
	return nil
}

func (s *stubKV) List(ctx context.Context) ([]interfaces.KeyValuePair, error) { return nil, nil }

func (s *stubKV) GetAll(ctx context.Context) (map[string]string, error) {
	return s.values, nil
}

func TestResolveConfigKVFallback(t *testing.T) {
	logger := common.GetLogger()
	ctx := context.Background()

	t.Run("kv fills gaps left by file config", func(t *testing.T) {
		kv := &stubKV{values: map[string]string{
			"smtp_host":     "smtp.kv.example.com",
			"smtp_port":     "2525",
			"smtp_username": "kv-user",
			"smtp_password": "kv-pass",
			"smtp_from":     "kv@example.com",
		}}
		svc := NewService(common.MailConfig{}, kv, logger)

		resolved := svc.resolveConfig(ctx)
		assert.Equal(t, "smtp.kv.example.com", resolved.Host)
		assert.Equal(t, 2525, resolved.Port)
		assert.Equal(t, "kv-user", resolved.Username)
		assert.Equal(t, "kv@example.com", resolved.From)
		assert.True(t, svc.IsConfigured(ctx))
	})

	t.Run("file config wins over kv", func(t *testing.T) {
		kv := &stubKV{values: map[string]string{"smtp_host": "smtp.kv.example.com"}}
		svc := NewService(common.MailConfig{Host: "smtp.file.example.com"}, kv, logger)

		resolved := svc.resolveConfig(ctx)
		assert.Equal(t, "smtp.file.example.com", resolved.Host)
	})

	t.Run("not configured without credentials anywhere", func(t *testing.T) {
		svc := NewService(common.MailConfig{}, &stubKV{values: map[string]string{}}, logger)
		assert.False(t, svc.IsConfigured(ctx))
	})

	t.Run("nil kv storage is tolerated", func(t *testing.T) {
		svc := NewService(common.MailConfig{Host: "smtp.file.example.com"}, nil, logger)
		resolved := svc.resolveConfig(ctx)
		assert.Equal(t, "smtp.file.example.com", resolved.Host)
	})
}
