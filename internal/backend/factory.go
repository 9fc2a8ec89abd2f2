package backend

import (
	"context"
	"fmt"
	"time"

	"dompet/internal/amqp"
	"dompet/internal/cache"
	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/services"
	gsheet "dompet/internal/sheets/google"
	"dompet/internal/sheets/memory"
	"dompet/internal/storage"
)

const (
	lruSize         = 1000
	cleanupInterval = time.Minute
)

// Factory opens backends.
type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &Factory{logger: logger.WithComponent(log.ComponentApp)}
}

// Open connects the repository and the requested parts. The broker and Redis
// are optional: a failed connection is logged and the part is left nil.
func (f *Factory) Open(ctx context.Context, cfg Config, parts Part) (*Backend, error) {
	if err := cfg.Validate(parts); err != nil {
		return nil, err
	}

	repo, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s repository: %w", cfg.Storage.Dialect, err)
	}
	b := &Backend{Repo: repo}
	b.cleanup = append(b.cleanup, repo.Close)
	f.logger.InfoContext(ctx, "Initialized repository", "dialect", cfg.Storage.Dialect)

	if parts&Bus != 0 {
		f.openBus(ctx, cfg, b)
	}
	if parts&Cache != 0 {
		f.openCaches(ctx, cfg, b)
	}
	if parts&Mirror != 0 {
		if err := f.openMirror(ctx, cfg, b); err != nil {
			b.Close()
			return nil, err
		}
	}
	return b, nil
}

func (f *Factory) openBus(ctx context.Context, cfg Config, b *Backend) {
	if cfg.AMQPURL == "" {
		f.logger.InfoContext(ctx, "AMQP disabled - no AMQP_URL provided")
		return
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, f.logger)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		return
	}
	b.AMQP = client
	b.cleanup = append(b.cleanup, client.Close)
	f.logger.InfoContext(ctx, "Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
}

func (f *Factory) openCaches(ctx context.Context, cfg Config, b *Backend) {
	if cfg.RedisAddr != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisAddr)
		if err == nil {
			b.Redis = client
			b.cleanup = append(b.cleanup, client.Close)
			b.Caches = services.ReportCaches{
				Dashboard: cache.NewRedisCache[core.DashboardSummary](client, "dashboard", cfg.CacheTTL, f.logger),
				Summary:   cache.NewRedisCache[core.KindSummary](client, "summary", cfg.CacheTTL, f.logger),
				Overview:  cache.NewRedisCache[core.Overview](client, "overview", cfg.CacheTTL, f.logger),
				Insights:  cache.NewRedisCache[core.Insights](client, "insights", cfg.CacheTTL, f.logger),
			}
			f.logger.InfoContext(ctx, "Initialized Redis report cache", "addr", cfg.RedisAddr)
			return
		}
		f.logger.WarnContext(ctx, "Failed to connect to Redis, using in-process cache", log.FieldError, err)
	}

	b.Caches = services.ReportCaches{
		Dashboard: cache.NewLRUCache[core.DashboardSummary](lruSize, cfg.CacheTTL),
		Summary:   cache.NewLRUCache[core.KindSummary](lruSize, cfg.CacheTTL),
		Overview:  cache.NewLRUCache[core.Overview](lruSize, cfg.CacheTTL),
		Insights:  cache.NewLRUCache[core.Insights](lruSize, cfg.CacheTTL),
	}
	m := cache.NewManager(f.logger)
	m.Register(b.Caches.Dashboard)
	m.Register(b.Caches.Summary)
	m.Register(b.Caches.Overview)
	m.Register(b.Caches.Insights)
	m.StartCleanup(cleanupInterval)
	b.CacheManager = m
	b.cleanup = append(b.cleanup, func() error {
		m.Stop()
		return nil
	})
	f.logger.InfoContext(ctx, "Initialized in-process report cache", "ttl", cfg.CacheTTL)
}

func (f *Factory) openMirror(ctx context.Context, cfg Config, b *Backend) error {
	if !cfg.SheetsEnabled {
		b.Mirror = memory.New()
		b.MirrorIsMemory = true
		f.logger.InfoContext(ctx, "Google Sheets disabled, mirroring in memory")
		return nil
	}
	client, err := gsheet.New(ctx, cfg.Sheets, f.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	b.Mirror = client
	f.logger.InfoContext(ctx, "Initialized Google Sheets mirror", "spreadsheet_id", cfg.Sheets.SpreadsheetID)
	return nil
}
