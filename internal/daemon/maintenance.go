package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"yoink/internal/config"
	"yoink/internal/logging"
	"yoink/internal/queue"
	"yoink/internal/workspace"
)

// maintenance periodically prunes completed jobs past their retention
// window and sweeps orphaned workspace directories out of staging.
type maintenance struct {
	cfg       *config.Config
	store     *queue.Store
	logger    *slog.Logger
	scheduler *cron.Cron
	retention time.Duration
}

func newMaintenance(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*maintenance, error) {
	retention := time.Duration(cfg.Workflow.CompletedRetentionHours) * time.Hour
	m := &maintenance{
		cfg:       cfg,
		store:     store,
		logger:    logging.WithComponent(logger, "maintenance"),
		scheduler: cron.New(),
		retention: retention,
	}
	if _, err := m.scheduler.AddFunc(cfg.Workflow.MaintenanceSchedule, m.run); err != nil {
		return nil, fmt.Errorf("invalid maintenance schedule %q: %w", cfg.Workflow.MaintenanceSchedule, err)
	}
	return m, nil
}

func (m *maintenance) start() {
	m.scheduler.Start()
}

func (m *maintenance) stop() {
	ctx := m.scheduler.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		m.logger.Warn("maintenance job did not finish before shutdown")
	}
}

func (m *maintenance) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-m.retention)
	pruned, err := m.store.DeleteCompletedBefore(ctx, cutoff)
	if err != nil {
		m.logger.Warn("failed to prune completed jobs", logging.Error(err))
	} else if pruned > 0 {
		m.logger.Info("pruned completed jobs",
			logging.Int64("removed", pruned),
			logging.String("cutoff", cutoff.Format(time.RFC3339)))
	}

	result := workspace.CleanStale(m.cfg.Paths.StagingDir, m.retention, m.logger)
	if len(result.Removed) > 0 {
		m.logger.Info("cleaned stale workspaces", logging.Int("removed", len(result.Removed)))
	}
}
