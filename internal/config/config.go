package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DatabaseURL    string
	HTTPListenAddr string
	LogLevel       string
	AppURL         string
	CORSOrigins    []string
	DevMode        bool
	AutoMigrate    bool

	// EncryptionKey is the 64-character hex AES-256 key for stored secrets.
	EncryptionKey string

	JWTSecret         string
	JWTIssuer         string
	AdminEmail        string
	AdminPasswordHash string

	MarketplaceAPIURL    string
	MarketplaceRateLimit float64
	OAuthTimeout         time.Duration

	GeminiAPIKey string
	GeminiModel  string

	// PlansFile optionally overrides the built-in plan limits.
	PlansFile string
}

func Load() (*Config, error) {
	origins := getEnv("CORS_ORIGINS", "http://localhost:3000")
	var corsList []string
	for _, o := range strings.Split(origins, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			corsList = append(corsList, trimmed)
		}
	}

	rateLimit, err := strconv.ParseFloat(getEnv("MARKETPLACE_RATE_LIMIT", "10"), 64)
	if err != nil {
		return nil, fmt.Errorf("parse MARKETPLACE_RATE_LIMIT: %w", err)
	}
	oauthTimeout, err := time.ParseDuration(getEnv("OAUTH_TIMEOUT", "20s"))
	if err != nil {
		return nil, fmt.Errorf("parse OAUTH_TIMEOUT: %w", err)
	}

	cfg := &Config{
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		HTTPListenAddr:       getEnv("HTTP_LISTEN_ADDR", ":8080"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		AppURL:               strings.TrimRight(getEnv("APP_URL", "http://localhost:3000"), "/"),
		CORSOrigins:          corsList,
		DevMode:              getEnv("DEV_MODE", "") == "true",
		AutoMigrate:          getEnv("AUTO_MIGRATE", "") == "true",
		EncryptionKey:        getEnv("ENCRYPTION_KEY", ""),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		JWTIssuer:            getEnv("JWT_ISSUER", "oportunia-api"),
		AdminEmail:           getEnv("ADMIN_EMAIL", ""),
		AdminPasswordHash:    getEnv("ADMIN_PASSWORD_HASH", ""),
		MarketplaceAPIURL:    strings.TrimRight(getEnv("MARKETPLACE_API_URL", "https://api.mercadolibre.com"), "/"),
		MarketplaceRateLimit: rateLimit,
		OAuthTimeout:         oauthTimeout,
		GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
		GeminiModel:          getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		PlansFile:            getEnv("PLANS_FILE", ""),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.EncryptionKey == "" {
		missing = append(missing, "ENCRYPTION_KEY")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	}
	if len(c.EncryptionKey) != 64 {
		return fmt.Errorf("ENCRYPTION_KEY must be 64 hex characters")
	}
	return nil
}

// RedirectURI is the OAuth callback registered with both providers.
func (c *Config) RedirectURI() string {
	return c.AppURL + "/oauth/callback"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
