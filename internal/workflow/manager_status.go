package workflow

import (
	"context"

	"yoink/internal/logging"
	"yoink/internal/queue"
	"yoink/internal/stage"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool
	LastError   string
	LastJob     *queue.Job
	QueueStats  map[queue.Status]int
	StageHealth map[string]stage.Health
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastJob := m.lastJob
	stages := make([]pipelineStage, len(m.stageOrder))
	copy(stages, m.stageOrder)
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}

	health := make(map[string]stage.Health, len(stages))
	for _, stg := range stages {
		if stg.handler == nil {
			continue
		}
		health[stg.name] = stg.handler.HealthCheck(ctx)
	}

	summary := StatusSummary{Running: running, QueueStats: stats, StageHealth: health}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastJob != nil {
		copy := *lastJob
		summary.LastJob = &copy
	}
	return summary
}

// Ready reports whether every configured stage passes its health check.
func (m *Manager) Ready(ctx context.Context) (bool, []stage.Health) {
	m.mu.RLock()
	stages := make([]pipelineStage, len(m.stageOrder))
	copy(stages, m.stageOrder)
	m.mu.RUnlock()

	ready := true
	healths := make([]stage.Health, 0, len(stages))
	for _, stg := range stages {
		if stg.handler == nil {
			ready = false
			healths = append(healths, stage.Unhealthy(stg.name, "handler not configured"))
			continue
		}
		health := stg.handler.HealthCheck(ctx)
		if !health.Ready {
			ready = false
		}
		healths = append(healths, health)
	}
	return ready, healths
}
