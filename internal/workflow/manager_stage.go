package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"yoink/internal/logging"
	"yoink/internal/queue"
	"yoink/internal/services"
)

func (m *Manager) processJob(ctx context.Context, laneLogger *slog.Logger, job *queue.Job) error {
	stg, ok := m.stageForStatus(job.Status)
	if !ok {
		laneLogger.Warn("no stage configured for status", logging.String("status", string(job.Status)))
		m.waitForJobOrShutdown(ctx)
		return nil
	}

	stageCtx := services.WithJobID(ctx, job.ID)
	stageCtx = services.WithStage(stageCtx, stg.name)
	stageCtx = services.WithRequestID(stageCtx, uuid.NewString())
	stageLogger := logging.WithContext(stageCtx, laneLogger)

	return m.executeStage(stageCtx, stageLogger, stg, job)
}

func (m *Manager) executeStage(ctx context.Context, stageLogger *slog.Logger, stg pipelineStage, job *queue.Job) error {
	stageStart := time.Now()
	stageLogger.Info("stage started",
		logging.String(logging.FieldVideoID, job.VideoID),
		logging.String(logging.FieldOperation, string(job.Operation)),
	)

	if stg.handler == nil {
		err := fmt.Errorf("stage %s missing handler", stg.name)
		m.handleStageFailure(ctx, stg.name, job, err)
		m.setLastError(err)
		return err
	}

	if err := stg.handler.Prepare(ctx, job); err != nil {
		m.handleStageFailure(ctx, stg.name, job, err)
		m.setLastError(err)
		return err
	}
	if err := m.store.Update(ctx, job); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		stageLogger.Error("failed to persist stage preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	execErr := m.executeWithHeartbeat(ctx, stg, job)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			stageLogger.Debug("stage interrupted by shutdown")
			return execErr
		}
		m.handleStageFailure(ctx, stg.name, job, execErr)
		m.setLastError(execErr)
		return execErr
	}

	job.Status = stg.doneStatus
	job.LastHeartbeat = nil
	if job.Status == queue.StatusCompleted {
		m.finishCompleted(ctx, stageLogger, job)
	}
	if err := m.store.Update(ctx, job); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		stageLogger.Error("failed to persist stage result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	stageLogger.Info("stage completed",
		logging.String("next_status", string(job.Status)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	m.setLastJob(job)
	return nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, stg pipelineStage, job *queue.Job) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, job.ID)

	execErr := stg.handler.Execute(ctx, job)
	hbCancel()
	hbWG.Wait()
	return execErr
}
