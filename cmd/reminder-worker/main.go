package main

import (
	"context"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"dompet/internal/backend"
	"dompet/internal/cli"
	"dompet/internal/config"
	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/notify"
	"dompet/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap("reminder-worker", nil)

	notifier := buildNotifier(cfg, logger)
	if notifier == nil {
		logger.Error("No reminder channel configured: set SMTP_HOST or DISCORD_BOT_TOKEN")
		os.Exit(1)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	ctx, stop := cli.SignalContext()
	defer stop()

	b, err := backend.NewFactory(logger).Open(ctx, bcfg, backend.Bus)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	defer b.Close()

	processor := services.NewReminderProcessor(b.Repo, cfg.ReminderDaysAhead, notifier, b.Publisher(), logger)
	run := func() {
		res, err := processor.Run(ctx, time.Now())
		if err != nil {
			logger.Error("Reminder run failed", log.FieldError, err)
			return
		}
		logger.Info("Reminder run complete", "checked", res.Checked, "sent", res.Sent, "failed", res.Failed)
	}

	logger.Info("Running initial reminder check...")
	run()

	c := cron.New()
	if _, err := c.AddFunc(cfg.ReminderSchedule, run); err != nil {
		logger.Error("Invalid reminder schedule", log.FieldError, err, "schedule", cfg.ReminderSchedule)
		os.Exit(1)
	}
	c.Start()
	logger.Info("Reminder schedule configured", "schedule", cfg.ReminderSchedule, "days_ahead", cfg.ReminderDaysAhead)

	cli.RunShutdown(ctx, logger, 30*time.Second, func(ctx context.Context) {
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
		}
	})
}

// buildNotifier returns every configured channel, or nil when none is.
func buildNotifier(cfg *config.Config, logger *log.Logger) notify.Notifier {
	locale := core.ParseLocale(cfg.CurrencyLocale)
	var channels notify.Multi
	if cfg.SMTPHost != "" {
		channels = append(channels, notify.NewEmailNotifier(notify.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SenderEmail,
		}, locale))
	}
	if cfg.DiscordBotToken != "" {
		d, err := notify.NewDiscordNotifier(cfg.DiscordBotToken, cfg.DiscordChannelID, locale)
		if err != nil {
			logger.Error("Failed to initialize Discord notifier", log.FieldError, err)
		} else {
			channels = append(channels, d)
		}
	}
	switch len(channels) {
	case 0:
		return nil
	case 1:
		return channels[0]
	default:
		return channels
	}
}
