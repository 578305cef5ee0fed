package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.InDelta(t, 0.7, cfg.Providers.ReviewThreshold, 1e-9)
	assert.False(t, cfg.Qdrant.Enabled())
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, 200, cfg.Chunking.Overlap)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SECRET_KEY", "s3cret")
	t.Setenv("BACKEND_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("QDRANT_HOST", "qdrant.internal")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("RATE_LIMIT_REQUESTS", "250")
	t.Setenv("RATE_LIMIT_WINDOW", "60")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "15")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_x")
	t.Setenv("DEFAULT_REGION", "TR")
	t.Setenv("DEFAULT_LOCALE", "tr-TR")

	cfg := DefaultConfig()
	loadFromEnv(cfg)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Server.SecretKey)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Qdrant.Enabled())
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 250, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 15, cfg.Auth.AccessTokenExpireMinutes)
	assert.Equal(t, "sk_test_x", cfg.Billing.StripeSecretKey)
	assert.Equal(t, "TR", cfg.Locale.DefaultRegion)
	assert.Equal(t, "tr-TR", cfg.Locale.DefaultLocale)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 0 }},
		{"overlap >= chunk size", func(c *Config) { c.Chunking.Overlap = c.Chunking.ChunkSize }},
		{"max chunk below min", func(c *Config) { c.Chunking.MaxChunkSize = c.Chunking.MinChunkSize }},
		{"zero embedding dimension", func(c *Config) { c.Embedding.Dimension = 0 }},
		{"review threshold above one", func(c *Config) { c.Providers.ReviewThreshold = 1.5 }},
		{"empty database url", func(c *Config) { c.Database.URL = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
