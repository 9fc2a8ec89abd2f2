package main

import (
	"context"
	"errors"
	"os"
	"time"

	"dompet/internal/backend"
	"dompet/internal/cli"
	"dompet/internal/log"
	"dompet/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap("dompet-worker", nil)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	ctx, stop := cli.SignalContext()
	defer stop()

	b, err := backend.NewFactory(logger).Open(ctx, bcfg, backend.Bus|backend.Mirror)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	defer b.Close()

	if b.MirrorIsMemory {
		logger.Warn("Google Sheets not configured - rows are mirrored in memory only")
	}

	syncWorker := worker.NewSyncWorker(b.Repo, b.Mirror, cfg.SyncBatchSize, logger)

	// Catch up on anything written while the worker was down.
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", log.FieldError, err)
	}

	sweeper := worker.NewSweeper(syncWorker, cfg.SyncInterval)
	if err := sweeper.Start(ctx); err != nil {
		logger.Error("Failed to start sweeper", log.FieldError, err)
		os.Exit(1)
	}

	if b.AMQP != nil {
		go func() {
			if err := b.AMQP.Consume(ctx, syncWorker.HandleMessage); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
				stop()
			}
		}()
	} else {
		logger.Info("AMQP disabled - relying on the periodic sweeper only")
	}

	cli.RunShutdown(ctx, logger, 30*time.Second, func(ctx context.Context) {
		if err := sweeper.Stop(ctx); err != nil {
			logger.Warn("Sweeper stop error", log.FieldError, err)
		}
	})
}
