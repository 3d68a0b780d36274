package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"yoink/internal/logging"
	"yoink/internal/queue"
	"yoink/internal/services"
	"yoink/internal/telegram"
	"yoink/internal/workspace"
)

// finishCompleted retires a job's scratch space once delivery succeeded.
// The output already left the machine (chat upload or object storage), so
// nothing under the workspace is needed again.
func (m *Manager) finishCompleted(ctx context.Context, logger *slog.Logger, job *queue.Job) {
	job.SetProgress("Completed", "Done", 100)
	if job.WorkDir != "" {
		if err := workspace.Remove(job.WorkDir); err != nil {
			logger.Warn("failed to remove completed workspace",
				logging.String("work_dir", job.WorkDir),
				logging.Error(err),
			)
		}
	}
}

func (m *Manager) handleStageFailure(ctx context.Context, stageName string, job *queue.Job, stageErr error) {
	logger := logging.WithContext(ctx, m.logger)

	message := failureMessage(stageName, stageErr)
	job.Attempts++
	job.SetFailed(message)

	logger.Error("stage failed",
		logging.String(logging.FieldStage, stageName),
		logging.String(logging.FieldVideoID, job.VideoID),
		logging.String("error_message", message),
		logging.Bool("retryable", services.Retryable(stageErr)),
		logging.Error(stageErr),
	)

	if job.WorkDir != "" {
		if err := workspace.Remove(job.WorkDir); err != nil {
			logger.Warn("failed to remove failed workspace", logging.Error(err))
		}
	}

	if err := m.store.Update(ctx, job); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not persist stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}
	m.setLastJob(job)

	m.tellChat(ctx, logger, job, chatFailureText(job, stageErr))

	if m.notifier != nil {
		label := fmt.Sprintf("job %d (%s)", job.ID, job.VideoID)
		if err := m.notifier.NotifyError(ctx, stageErr, label); err != nil {
			logger.Warn("failure notification failed", logging.Error(err))
		}
	}
}

// tellChat surfaces the failure to the requesting chat, preferring to edit
// the job's status message so the chat does not accumulate stale progress
// text.
func (m *Manager) tellChat(ctx context.Context, logger *slog.Logger, job *queue.Job, text string) {
	if m.messenger == nil {
		return
	}
	if job.StatusMessageID != 0 {
		if err := m.messenger.EditMessageText(ctx, job.ChatID, job.StatusMessageID, text); err == nil {
			return
		}
	}
	params := telegram.SendMessageParams{
		ChatID:           job.ChatID,
		Text:             text,
		ReplyToMessageID: job.ReplyToMessageID,
		DisablePreview:   true,
	}
	if _, err := m.messenger.SendMessage(ctx, params); err != nil {
		logger.Warn("failed to notify chat of failure", logging.Error(err))
	}
}

func failureMessage(stageName string, stageErr error) string {
	if stageErr == nil {
		if stageName != "" {
			return fmt.Sprintf("%s failed without error detail", stageName)
		}
		return "workflow failed without error detail"
	}
	return strings.TrimSpace(stageErr.Error())
}

// chatFailureText maps the error taxonomy onto copy a chat user can act on.
func chatFailureText(job *queue.Job, err error) string {
	title := strings.TrimSpace(job.Title)
	if title == "" {
		title = "that video"
	}
	switch {
	case errors.Is(err, services.ErrValidation):
		return fmt.Sprintf("I couldn't process that request for %s. Send the link again to start over.", title)
	case errors.Is(err, services.ErrFetch):
		return fmt.Sprintf("I couldn't download %s. It may be private, region-locked, or removed. You can try again later.", title)
	case errors.Is(err, services.ErrTimeout):
		return fmt.Sprintf("Processing %s took too long and was cancelled. Shorter videos usually work; you can try again.", title)
	case errors.Is(err, services.ErrTranscode):
		return fmt.Sprintf("Converting %s failed. The source format may not be supported.", title)
	case errors.Is(err, services.ErrDelivery):
		return fmt.Sprintf("I converted %s but couldn't deliver the file. You can try again later.", title)
	case errors.Is(err, services.ErrConfiguration):
		return "The bot is misconfigured for this request. Ask the operator to check the logs."
	default:
		return fmt.Sprintf("Something went wrong while processing %s.", title)
	}
}
