package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"yoink/internal/artifacts"
	"yoink/internal/config"
	"yoink/internal/fileutil"
	"yoink/internal/logging"
	"yoink/internal/notifications"
	"yoink/internal/queue"
	"yoink/internal/services"
	"yoink/internal/stage"
	"yoink/internal/telegram"
)

// Uploader is the slice of the Bot API the delivery stage depends on.
type Uploader interface {
	SendAudio(ctx context.Context, upload telegram.AudioUpload) (*telegram.Message, error)
	SendVideo(ctx context.Context, upload telegram.VideoUpload) (*telegram.Message, error)
	SendMessage(ctx context.Context, params telegram.SendMessageParams) (*telegram.Message, error)
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
	EditMessageText(ctx context.Context, chatID, messageID int64, text string) error
}

// Deliverer sends finished outputs back to the requesting chat.
type Deliverer struct {
	store     *queue.Store
	cfg       *config.Config
	logger    *slog.Logger
	uploader  Uploader
	artifacts artifacts.Service
	notifier  notifications.Service
}

// NewDeliverer constructs the delivery stage handler with real collaborators.
func NewDeliverer(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*Deliverer, error) {
	client, err := telegram.New(cfg.Telegram.Token, telegram.WithBaseURL(cfg.Telegram.APIBaseURL))
	if err != nil {
		return nil, err
	}
	storage, err := artifacts.NewService(cfg)
	if err != nil {
		return nil, err
	}
	return NewDelivererWithDependencies(cfg, store, logger, client, storage, notifications.NewService(cfg)), nil
}

// NewDelivererWithDependencies allows injecting collaborators (used in tests).
func NewDelivererWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, uploader Uploader, storage artifacts.Service, notifier notifications.Service) *Deliverer {
	return &Deliverer{
		store:     store,
		cfg:       cfg,
		logger:    logging.WithComponent(logger, "delivery"),
		uploader:  uploader,
		artifacts: storage,
		notifier:  notifier,
	}
}

func (d *Deliverer) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, d.logger)
	job.SetProgress("Delivering", "Preparing delivery", 0)
	job.ErrorMessage = ""
	logger.Info("starting delivery preparation",
		logging.String(logging.FieldVideoID, job.VideoID),
		logging.String("output_file", job.OutputFile),
	)
	return nil
}

func (d *Deliverer) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, d.logger)

	output := strings.TrimSpace(job.OutputFile)
	if output == "" {
		return services.Wrap(
			services.ErrValidation, "delivering", "validate inputs",
			"No output file present for delivery; rerun the transcode stage", nil)
	}
	info, err := os.Stat(output)
	if err != nil {
		return services.Wrap(
			services.ErrValidation, "delivering", "validate inputs",
			"Output file is missing on disk; rerun the transcode stage", err)
	}

	named, err := d.applyDisplayName(job, output)
	if err != nil {
		return err
	}
	if named != output {
		job.OutputFile = named
		output = named
	}

	limit := d.cfg.MaxUploadBytes()
	if info.Size() > limit {
		logger.Info("output exceeds chat upload limit",
			logging.Int64("size_bytes", info.Size()),
			logging.Int64("limit_bytes", limit),
		)
		return d.deliverLink(ctx, job, output)
	}
	return d.deliverUpload(ctx, job, output)
}

// applyDisplayName renames the workspace output so the chat attachment
// carries the media title instead of the transcoder's fixed name.
func (d *Deliverer) applyDisplayName(job *queue.Job, output string) (string, error) {
	title := strings.TrimSpace(job.Title)
	if title == "" {
		return output, nil
	}
	target := filepath.Join(filepath.Dir(output), fileutil.SanitizeFileName(title)+filepath.Ext(output))
	if target == output {
		return output, nil
	}
	if err := os.Rename(output, target); err != nil {
		return "", services.Wrap(
			services.ErrDelivery, "delivering", "rename output",
			"Failed to prepare output file for delivery", err)
	}
	return target, nil
}

func (d *Deliverer) deliverUpload(ctx context.Context, job *queue.Job, output string) error {
	logger := logging.WithContext(ctx, d.logger)

	attempts := d.cfg.Workflow.DeliveryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		d.updateProgress(ctx, job, fmt.Sprintf("Uploading to chat (attempt %d/%d)", attempt, attempts), 50)
		lastErr = d.send(ctx, job, output)
		if lastErr == nil {
			d.finish(ctx, job, "Delivered to chat")
			return nil
		}
		logger.Warn("chat upload attempt failed",
			logging.Int("attempt", attempt),
			logging.Error(lastErr),
		)
	}
	return services.Wrap(
		services.ErrDelivery, "delivering", "upload to chat",
		fmt.Sprintf("Failed to upload to chat after %d attempts", attempts), lastErr)
}

func (d *Deliverer) send(ctx context.Context, job *queue.Job, output string) error {
	switch job.Operation {
	case queue.OperationExtractAudio:
		_, err := d.uploader.SendAudio(ctx, telegram.AudioUpload{
			ChatID:       job.ChatID,
			FilePath:     output,
			Title:        job.Title,
			DurationSecs: job.DurationSecs,
		})
		return err
	case queue.OperationTranscode:
		_, err := d.uploader.SendVideo(ctx, telegram.VideoUpload{
			ChatID:       job.ChatID,
			FilePath:     output,
			Caption:      job.Title,
			DurationSecs: job.DurationSecs,
			Width:        job.Width,
			Height:       job.Height,
		})
		return err
	default:
		return services.Wrap(
			services.ErrValidation, "delivering", "select upload",
			fmt.Sprintf("Unknown operation %q", job.Operation), nil)
	}
}

func (d *Deliverer) deliverLink(ctx context.Context, job *queue.Job, output string) error {
	logger := logging.WithContext(ctx, d.logger)

	d.updateProgress(ctx, job, "Uploading to object storage", 50)
	url, err := d.artifacts.Upload(ctx, output, artifacts.ObjectName(job))
	if err != nil {
		return err
	}
	job.ArtifactURL = url

	text := fmt.Sprintf("%s is too large to send here. Download it instead:\n%s", displayTitle(job), url)
	if _, err := d.uploader.SendMessage(ctx, telegram.SendMessageParams{
		ChatID:           job.ChatID,
		Text:             text,
		ReplyToMessageID: job.ReplyToMessageID,
		DisablePreview:   true,
	}); err != nil {
		return services.Wrap(
			services.ErrDelivery, "delivering", "send link message",
			"Failed to send download link to chat", err)
	}
	logger.Info("delivered as storage link", logging.String("artifact_url", url))
	d.finish(ctx, job, "Delivered as download link")
	return nil
}

// finish retires the status message and records completion progress. Status
// message cleanup is best effort; the delivery already landed.
func (d *Deliverer) finish(ctx context.Context, job *queue.Job, message string) {
	logger := logging.WithContext(ctx, d.logger)
	if job.StatusMessageID != 0 {
		if err := d.uploader.DeleteMessage(ctx, job.ChatID, job.StatusMessageID); err != nil {
			logger.Warn("failed to delete status message", logging.Error(err))
		} else {
			job.StatusMessageID = 0
		}
	}
	d.updateProgress(ctx, job, message, 100)
	if d.notifier != nil {
		if err := d.notifier.NotifyJobCompleted(ctx, displayTitle(job), string(job.Operation)); err != nil {
			logger.Warn("completion notification failed", logging.Error(err))
		}
	}
}

// HealthCheck verifies the stage can reach the Bot API configuration-wise.
func (d *Deliverer) HealthCheck(ctx context.Context) stage.Health {
	const name = "delivery"
	if d.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Telegram.Token) == "" {
		return stage.Unhealthy(name, "telegram token not configured")
	}
	if d.uploader == nil {
		return stage.Unhealthy(name, "telegram client unavailable")
	}
	return stage.Healthy(name)
}

func (d *Deliverer) updateProgress(ctx context.Context, job *queue.Job, message string, percent float64) {
	logger := logging.WithContext(ctx, d.logger)
	copy := *job
	copy.SetProgress("Delivering", message, percent)
	if err := d.store.Update(ctx, &copy); err != nil {
		logger.Warn("failed to persist delivery progress", logging.Error(err))
		return
	}
	*job = copy
}

func displayTitle(job *queue.Job) string {
	if title := strings.TrimSpace(job.Title); title != "" {
		return title
	}
	return job.VideoID
}
