package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is read from the environment once at startup
type Config struct {
	Port     string
	LogMode  string
	MongoURI string
	MongoDB  string
	// RedisAddr has any redis:// prefix stripped
	RedisAddr string
	JWTSecret string
	TokenTTL  time.Duration

	CORS CORSConfig

	CatalogCacheTTL  time.Duration
	WizardSessionTTL time.Duration

	Stripe StripeConfig

	// ReaperMaxAge of zero disables the abandoned questionnaire reaper
	ReaperMaxAge   time.Duration
	ReaperSchedule string
}

type CORSConfig struct {
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	PriceCents    int64
	Currency      string
	ProductName   string
	PublicURL     string
}

// Enabled reports whether checkout can create sessions
func (s StripeConfig) Enabled() bool {
	return s.SecretKey != ""
}

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogMode:  getEnv("LOG_MODE", "development"),
		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "preflight"),
		RedisAddr: strings.TrimPrefix(
			getEnv("REDIS_URI", "localhost:6379"), "redis://"),
		JWTSecret: getEnv("JWT_SECRET", "super-secret-key-change-in-production"),
		TokenTTL:  getDuration("TOKEN_TTL", 7*24*time.Hour),

		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET, POST, PUT, DELETE, OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type, Authorization, Stripe-Signature"),
		},

		CatalogCacheTTL:  getDuration("CATALOG_CACHE_TTL", 5*time.Minute),
		WizardSessionTTL: getDuration("WIZARD_SESSION_TTL", 24*time.Hour),

		Stripe: StripeConfig{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			PriceCents:    getInt("CHECKOUT_PRICE_CENTS", 2000),
			Currency:      getEnv("CHECKOUT_CURRENCY", "usd"),
			ProductName:   getEnv("CHECKOUT_PRODUCT_NAME", "PreFlight Access"),
			PublicURL:     strings.TrimSuffix(getEnv("PUBLIC_URL", "http://localhost:3000"), "/"),
		},

		ReaperMaxAge:   getDuration("REAPER_MAX_AGE", 0),
		ReaperSchedule: getEnv("REAPER_SCHEDULE", "@hourly"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return d
}

func getInt(key string, defaultVal int64) int64 {
	n, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil {
		return defaultVal
	}
	return n
}
