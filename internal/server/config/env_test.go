package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv(t *testing.T) {
	t.Setenv("DATABASE_DSN", "postgres://env")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("ACCESS_TOKEN_TTL", "30m")
	t.Setenv("STORAGE_TYPE", "memory")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")
	t.Setenv("QUEUE_TYPE", "sqs")
	t.Setenv("SQS_QUEUE_URL", "http://sqs/queue")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,,")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, "postgres://env", cfg.DatabaseDSN)
	assert.Equal(t, "env-secret", cfg.SecretKey)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenValidityDuration)
	assert.Equal(t, "memory", cfg.StorageType)
	assert.Equal(t, 2525, cfg.SMTPPort)
	assert.Equal(t, int64(1024), cfg.MaxUploadBytes)
	assert.Equal(t, "sqs", cfg.QueueType)
	assert.Equal(t, "http://sqs/queue", cfg.SQSQueueURL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)

	// untouched
	assert.Equal(t, ":8080", cfg.HTTPAddress)
}

func TestParseEnv_EmptyValueIgnored(t *testing.T) {
	t.Setenv("HTTP_ADDRESS", "")

	cfg := &Config{HTTPAddress: ":1"}
	parseEnv(cfg)

	assert.Equal(t, ":1", cfg.HTTPAddress)
}

func TestParseEnv_InvalidValuesPanic(t *testing.T) {
	t.Run("duration", func(t *testing.T) {
		t.Setenv("PROCESSOR_TIMEOUT", "soon")
		require.Panics(t, func() { parseEnv(&Config{}) })
	})
	t.Run("int", func(t *testing.T) {
		t.Setenv("WORKERS", "many")
		require.Panics(t, func() { parseEnv(&Config{}) })
	})
}
