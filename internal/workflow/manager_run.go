package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"yoink/internal/logging"
)

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if len(m.stageOrder) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	group, groupCtx := errgroup.WithContext(runCtx)
	m.group = group
	m.mu.Unlock()

	for lane := 0; lane < m.lanes; lane++ {
		// Only the first lane reclaims; the sweep covers every lane's jobs.
		group.Go(func() error {
			m.runLane(groupCtx, lane, lane == 0)
			return nil
		})
	}
	return nil
}

// Stop terminates background processing and waits for in-flight stages to
// finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	group := m.group
	m.running = false
	m.cancel = nil
	m.group = nil
	m.mu.Unlock()

	cancel()
	if group != nil {
		_ = group.Wait()
	}
}

// Running reports whether the manager has active lanes.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *Manager) runLane(ctx context.Context, lane int, reclaims bool) {
	logger := m.logger.With(logging.Int("lane", lane))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if reclaims {
			if err := m.heartbeat.ReclaimStaleJobs(ctx, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("reclaim stale processing failed; stuck jobs may remain", logging.Error(err))
			}
		}

		job, err := m.store.ClaimNext(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.handleClaimError(ctx, logger, err)
			continue
		}
		if job == nil {
			m.waitForJobOrShutdown(ctx)
			continue
		}

		if err := m.processJob(ctx, logger, job); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

func (m *Manager) handleClaimError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	logger.Error("failed to claim next job", logging.Error(err))
	retry := time.Duration(m.cfg.Workflow.ErrorRetryInterval) * time.Second
	if retry <= 0 {
		retry = m.pollInterval
	}
	select {
	case <-ctx.Done():
	case <-time.After(retry):
	}
}

func (m *Manager) waitForJobOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}

// MarkInterrupted resets in-flight jobs to pending during shutdown so a
// restart picks them up as fresh attempts.
func (m *Manager) MarkInterrupted(ctx context.Context) {
	count, err := m.store.ResetStuckProcessing(ctx)
	if err != nil {
		m.logger.Warn("failed to reset interrupted jobs", logging.Error(err))
		return
	}
	if count > 0 {
		m.logger.Info("reset interrupted jobs to pending", logging.Int64("count", count))
	}
}
