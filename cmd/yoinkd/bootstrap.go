package main

import (
	"log/slog"

	"yoink/internal/config"
	"yoink/internal/delivery"
	"yoink/internal/fetching"
	"yoink/internal/notifications"
	"yoink/internal/queue"
	"yoink/internal/telegram"
	"yoink/internal/transcoding"
	"yoink/internal/workflow"
)

// buildWorkflow wires the pipeline stages into a workflow manager.
func buildWorkflow(cfg *config.Config, store *queue.Store, logger *slog.Logger, bot *telegram.Client) (*workflow.Manager, error) {
	fetcher, err := fetching.NewFetcher(cfg, store, logger)
	if err != nil {
		return nil, err
	}
	transcoder, err := transcoding.NewTranscoder(cfg, store, logger)
	if err != nil {
		return nil, err
	}
	deliverer, err := delivery.NewDeliverer(cfg, store, logger)
	if err != nil {
		return nil, err
	}

	manager := workflow.NewManager(cfg, store, logger, notifications.NewService(cfg), bot)
	manager.ConfigureStages(workflow.StageSet{
		Fetcher:    fetcher,
		Transcoder: transcoder,
		Deliverer:  deliverer,
	})
	return manager, nil
}
