package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"dompet/internal/auth"
	"dompet/internal/backend"
	"dompet/internal/cli"
	"dompet/internal/config"
	apphttp "dompet/internal/http"
	"dompet/internal/log"
	"dompet/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap("dompet", (*config.Config).ValidateServer)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	ctx, stop := cli.SignalContext()
	defer stop()

	b, err := backend.NewFactory(logger).Open(ctx, bcfg, backend.Bus|backend.Cache)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	defer b.Close()

	reports := services.NewReportService(b.Repo, b.Caches, services.ReportConfig{
		LatestLimit: cfg.LatestActivityLimit,
	}, logger)
	ledger := services.NewLedgerService(b.Repo, b.Publisher(), reports, logger)
	accounts := services.NewAuthService(b.Repo, auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL), logger)

	checks := []apphttp.ReadinessCheck{{Name: "database", Check: b.Repo.Ping}}
	if b.AMQP != nil {
		checks = append(checks, apphttp.ReadinessCheck{Name: "amqp", Check: b.AMQP.Ping})
	}
	if b.Redis != nil {
		redis := b.Redis
		checks = append(checks, apphttp.ReadinessCheck{Name: "redis", Check: func(ctx context.Context) error {
			return redis.Ping(ctx).Err()
		}})
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Ledger:   ledger,
		Reports:  reports,
		Accounts: accounts,
		Checks:   checks,
		Logger:   logger,

		RequestsPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:    cfg.TrustedProxies,
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		cli.RunShutdown(ctx, logger, 30*time.Second, func(ctx context.Context) {
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("Server shutdown error", log.FieldError, err)
			}
		})
	}()

	logger.Info("Starting dompet server", "port", cfg.Port, "backend", cfg.DataBackend,
		"amqp_enabled", b.AMQP != nil, "redis_enabled", b.Redis != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		stop()
		<-done
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
