package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("REDIS_URI", "")
	t.Setenv("REAPER_MAX_AGE", "")
	t.Setenv("STRIPE_SECRET_KEY", "")
	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, time.Duration(0), cfg.ReaperMaxAge)
	assert.False(t, cfg.Stripe.Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("REDIS_URI", "redis://cache:6380")
	t.Setenv("REAPER_MAX_AGE", "720h")
	t.Setenv("WIZARD_SESSION_TTL", "not-a-duration")
	t.Setenv("CHECKOUT_PRICE_CENTS", "4900")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("PUBLIC_URL", "https://app.example.com/")

	cfg := Load()
	assert.Equal(t, "cache:6380", cfg.RedisAddr)
	assert.Equal(t, 720*time.Hour, cfg.ReaperMaxAge)
	assert.Equal(t, 24*time.Hour, cfg.WizardSessionTTL)
	assert.Equal(t, int64(4900), cfg.Stripe.PriceCents)
	assert.True(t, cfg.Stripe.Enabled())
	assert.Equal(t, "https://app.example.com", cfg.Stripe.PublicURL)
}
