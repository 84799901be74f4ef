package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	LogLevel    string
	HTTPAddr    string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	Gmail      GmailConfig
	Square     SquareConfig
	Wholesale  WholesaleConfig
	Summarizer SummarizerConfig
	Sync       SyncConfig
}

// GmailConfig carries mailbox OAuth credentials.
type GmailConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

func (c GmailConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// SquareConfig carries payment-processor credentials.
type SquareConfig struct {
	AccessToken string
	LocationID  string
	BaseURL     string
}

func (c SquareConfig) Configured() bool {
	return c.AccessToken != "" && c.LocationID != ""
}

// WholesaleConfig carries the upstream wholesale-order API credentials.
type WholesaleConfig struct {
	BaseURL string
	APIKey  string
}

func (c WholesaleConfig) Configured() bool {
	return c.BaseURL != "" && c.APIKey != ""
}

type SummarizerConfig struct {
	APIKey string
	Model  string
}

func (c SummarizerConfig) Configured() bool {
	return c.APIKey != ""
}

// SyncConfig controls the background reconciliation loop.
type SyncConfig struct {
	Enabled            bool
	Interval           time.Duration
	EmailLookback      time.Duration
	PaymentLookback    time.Duration
	WholesaleLookback  time.Duration
	AlertSweepInterval time.Duration
	AlertGraceDays     int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "orderflow"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "orderflow"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),

		Gmail: GmailConfig{
			ClientID:     getenv("GMAIL_CLIENT_ID", ""),
			ClientSecret: getenv("GMAIL_CLIENT_SECRET", ""),
			RefreshToken: getenv("GMAIL_REFRESH_TOKEN", ""),
		},
		Square: SquareConfig{
			AccessToken: getenv("SQUARE_ACCESS_TOKEN", ""),
			LocationID:  getenv("SQUARE_LOCATION_ID", ""),
			BaseURL:     getenv("SQUARE_API_BASE", "https://connect.squareup.com/v2"),
		},
		Wholesale: WholesaleConfig{
			BaseURL: getenv("WHOLESALE_API_BASE", ""),
			APIKey:  getenv("WHOLESALE_API_KEY", ""),
		},
		Summarizer: SummarizerConfig{
			APIKey: getenv("OPENAI_API_KEY", ""),
			Model:  getenv("SUMMARIZER_MODEL", "gpt-4o-mini"),
		},
		Sync: SyncConfig{
			Enabled:            getenvBool("SYNC_ENABLED", false),
			Interval:           time.Duration(getenvInt("SYNC_INTERVAL_MINUTES", 15)) * time.Minute,
			EmailLookback:      time.Duration(getenvInt("SYNC_EMAIL_LOOKBACK_HOURS", 2)) * time.Hour,
			PaymentLookback:    time.Duration(getenvInt("SYNC_PAYMENT_LOOKBACK_HOURS", 24)) * time.Hour,
			WholesaleLookback:  time.Duration(getenvInt("SYNC_WHOLESALE_LOOKBACK_MINUTES", 30)) * time.Minute,
			AlertSweepInterval: time.Duration(getenvInt("ALERT_SWEEP_INTERVAL_HOURS", 6)) * time.Hour,
			AlertGraceDays:     getenvInt("ALERT_GRACE_DAYS", 7),
		},
	}

	return cfg
}

func getenv(key, fallback string) string {
	if value, ok := lookupEnv(key); ok {
		return value
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	value, ok := lookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.ToLower(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvInt(key string, fallback int) int {
	value, ok := lookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// Module provides application configuration.
var Module = fx.Module("config",
	fx.Provide(Load),
)
