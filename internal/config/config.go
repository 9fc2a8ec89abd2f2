package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type Config struct {
	// HTTP Server
	Port               string
	TrustedProxies     []string
	RateLimitPerMinute int

	// Logging
	LogLevel string

	// Database
	DataBackend  string
	SQLiteDBPath string
	DatabaseURL  string

	// Auth
	JWTSecret string
	TokenTTL  time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Cache
	RedisAddr string
	CacheTTL  time.Duration

	// Google Sheets mirror
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleOAuthClientFile string
	GoogleOAuthTokenFile  string
	GoogleOAuthClientJSON string
	GoogleOAuthTokenJSON  string

	// Worker
	SyncBatchSize int
	SyncInterval  time.Duration

	// Reminders
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	SenderEmail       string
	DiscordBotToken   string
	DiscordChannelID  string
	ReminderSchedule  string
	ReminderDaysAhead int

	// Presentation
	LatestActivityLimit int
	CurrencyLocale      string

	// Client
	APIBaseURL string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		LogLevel:           getEnv("LOG_LEVEL", "info"),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/dompet.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		TokenTTL:  getEnvDuration("TOKEN_TTL", 24*time.Hour),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "dompet"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_transactions"),

		RedisAddr: getEnv("REDIS_ADDR", ""),
		CacheTTL:  getEnvDuration("CACHE_TTL", 2*time.Minute),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:       getEnv("GOOGLE_SHEET_NAME", "Transactions"),
		GoogleOAuthClientFile: getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenFile:  getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),
		GoogleOAuthClientJSON: getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthTokenJSON:  getEnv("GOOGLE_OAUTH_TOKEN_JSON", ""),

		SyncBatchSize: getEnvInt("SYNC_BATCH_SIZE", 10),
		SyncInterval:  getEnvDuration("SYNC_INTERVAL", 30*time.Second),

		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getEnvInt("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		SenderEmail:       getEnv("SENDER_EMAIL", ""),
		DiscordBotToken:   getEnv("DISCORD_BOT_TOKEN", ""),
		DiscordChannelID:  getEnv("DISCORD_CHANNEL_ID", ""),
		ReminderSchedule:  getEnv("REMINDER_SCHEDULE", "0 8 * * *"),
		ReminderDaysAhead: getEnvInt("REMINDER_DAYS_AHEAD", 3),

		LatestActivityLimit: getEnvInt("LATEST_ACTIVITY_LIMIT", 5),
		CurrencyLocale:      getEnv("CURRENCY_LOCALE", "id-ID"),

		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8081"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 per minute", c.RateLimitPerMinute))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.DatabaseURL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			errors = append(errors, fmt.Sprintf("invalid DATABASE_URL '%s': must be a postgres:// URL", c.DatabaseURL))
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [sqlite postgres]", c.DataBackend))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.TokenTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid token TTL %v: must be at least 1 minute", c.TokenTTL))
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}

	// Validate worker configuration
	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if c.ReminderSchedule != "" {
		if _, err := cron.ParseStandard(c.ReminderSchedule); err != nil {
			errors = append(errors, fmt.Sprintf("invalid reminder schedule '%s': %v", c.ReminderSchedule, err))
		}
	}
	if c.ReminderDaysAhead < 0 || c.ReminderDaysAhead > 31 {
		errors = append(errors, fmt.Sprintf("invalid reminder days ahead %d: must be between 0 and 31", c.ReminderDaysAhead))
	}
	if c.SMTPHost != "" && c.SenderEmail == "" {
		errors = append(errors, "SENDER_EMAIL is required when SMTP_HOST is set")
	}
	if (c.DiscordBotToken == "") != (c.DiscordChannelID == "") {
		errors = append(errors, "DISCORD_BOT_TOKEN and DISCORD_CHANNEL_ID must be set together")
	}

	if c.LatestActivityLimit < 1 || c.LatestActivityLimit > 100 {
		errors = append(errors, fmt.Sprintf("invalid latest activity limit %d: must be between 1 and 100", c.LatestActivityLimit))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateServer adds the checks only the API server needs.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("configuration validation failed:\n- JWT_SECRET must be at least 16 characters")
	}
	return nil
}

// SheetsEnabled reports whether the spreadsheet mirror is configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != "" &&
		(c.GoogleOAuthClientFile != "" || c.GoogleOAuthClientJSON != "") &&
		(c.GoogleOAuthTokenFile != "" || c.GoogleOAuthTokenJSON != "")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
