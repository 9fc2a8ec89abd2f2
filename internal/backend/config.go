package backend

import (
	"fmt"
	"time"

	"dompet/internal/config"
	gsheet "dompet/internal/sheets/google"
	"dompet/internal/storage"
)

// Config holds what the factory needs, lifted out of the app config.
type Config struct {
	Storage storage.Config

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	RedisAddr string
	CacheTTL  time.Duration

	SheetsEnabled bool
	Sheets        gsheet.Config
}

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	dialect := storage.Dialect(appConfig.DataBackend)
	if !dialect.IsValid() {
		return Config{}, fmt.Errorf("invalid data backend in config: %s", appConfig.DataBackend)
	}

	return Config{
		Storage: storage.Config{
			Dialect:     dialect,
			SQLitePath:  appConfig.SQLiteDBPath,
			DatabaseURL: appConfig.DatabaseURL,
		},

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		RedisAddr: appConfig.RedisAddr,
		CacheTTL:  appConfig.CacheTTL,

		SheetsEnabled: appConfig.SheetsEnabled(),
		Sheets: gsheet.Config{
			SpreadsheetID:   appConfig.GoogleSpreadsheetID,
			SheetName:       appConfig.GoogleSheetName,
			OAuthClientJSON: appConfig.GoogleOAuthClientJSON,
			OAuthClientFile: appConfig.GoogleOAuthClientFile,
			OAuthTokenJSON:  appConfig.GoogleOAuthTokenJSON,
			OAuthTokenFile:  appConfig.GoogleOAuthTokenFile,
		},
	}, nil
}

// Validate checks the parts the factory will be asked to build.
func (c Config) Validate(parts Part) error {
	switch c.Storage.Dialect {
	case storage.SQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case storage.Postgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres backend")
		}
	default:
		return fmt.Errorf("invalid storage dialect: %s", c.Storage.Dialect)
	}
	if parts&Bus != 0 && c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return fmt.Errorf("AMQP exchange and queue are required when AMQP URL is set")
	}
	if parts&Cache != 0 && c.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	return nil
}
