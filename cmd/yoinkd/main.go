package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"yoink/internal/config"
	"yoink/internal/daemon"
	"yoink/internal/deps"
	"yoink/internal/logging"
	"yoink/internal/queue"
	"yoink/internal/telegram"
	"yoink/internal/webhook"
)

func main() {
	// A .env beside the binary can hold the bot token and storage keys.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(os.Getenv("YOINK_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	// Missing tools are not fatal at boot; jobs fail with a clear error and
	// the operator can install them without restarting.
	if err := deps.Require(deps.CheckBinaries(deps.Requirements(cfg))); err != nil {
		logger.Warn("external tools unavailable", logging.Error(err))
	}

	store, err := queue.Open(cfg)
	if err != nil {
		fatal(logger, "open queue store", err)
	}

	bot, err := telegram.New(cfg.Telegram.Token, telegram.WithBaseURL(cfg.Telegram.APIBaseURL))
	if err != nil {
		fatal(logger, "init telegram client", err)
	}

	manager, err := buildWorkflow(cfg, store, logger, bot)
	if err != nil {
		fatal(logger, "build workflow", err)
	}

	hook := webhook.NewHandler(cfg.Telegram.Token, bot, store, logger)
	d, err := daemon.New(cfg, store, logger, manager, hook)
	if err != nil {
		fatal(logger, "create daemon", err)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		fatal(logger, "daemon start", err)
	}

	registerWebhook(ctx, cfg, bot, logger)

	<-ctx.Done()
	logger.Info("yoinkd shutting down")
}

// registerWebhook points the Bot API at this deployment when a public base
// URL is configured. Without one the operator wires the webhook manually
// with `yoink webhook set`.
func registerWebhook(ctx context.Context, cfg *config.Config, bot *telegram.Client, logger *slog.Logger) {
	url := cfg.WebhookURL()
	if url == "" {
		logger.Info("webhook base url not configured, skipping webhook registration")
		return
	}
	callCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := bot.SetWebhook(callCtx, url); err != nil {
		logger.Warn("failed to register webhook", logging.Error(err))
		return
	}
	logger.Info("webhook registered", logging.String("url", url))
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, logging.Error(err))
	os.Exit(1)
}
