// Package cli provides common initialization for the dompet binaries.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"dompet/internal/config"
	"dompet/internal/log"
)

// LoadEnvFile loads .env for local development. A missing file is ignored.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger at LOG_LEVEL and installs it as the
// slog default.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and runs validate on it, exiting
// the process on failure.
func LoadAndValidateConfig(logger *log.Logger, validate func(*config.Config) error) *config.Config {
	cfg := config.Load()
	if validate == nil {
		validate = (*config.Config).Validate
	}
	if err := validate(cfg); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// Bootstrap is the common start of every daemon: env file, config, logger.
func Bootstrap(name string, validate func(*config.Config) error) (*config.Config, *log.Logger) {
	LoadEnvFile()
	logger := SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting "+name, log.FieldOperation, log.OpStartup)
	return LoadAndValidateConfig(logger, validate), logger
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// RunShutdown runs cleanup bounded by timeout once ctx is done.
func RunShutdown(ctx context.Context, logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) {
	<-ctx.Done()
	logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
	}()

	select {
	case <-done:
		logger.Info("Shutdown complete")
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached")
	}
}
