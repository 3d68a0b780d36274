package transcoding

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"yoink/internal/config"
	"yoink/internal/fileutil"
	"yoink/internal/logging"
	"yoink/internal/media/ffprobe"
	"yoink/internal/queue"
	"yoink/internal/services"
	"yoink/internal/stage"
	"yoink/internal/transcode"
)

// Converter is the slice of the ffmpeg client the stage depends on.
type Converter interface {
	Convert(ctx context.Context, req transcode.Request) (string, error)
}

// Inspector validates produced files; it matches ffprobe.Inspect.
type Inspector func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Transcoder converts fetched media into the requested output format.
type Transcoder struct {
	store     *queue.Store
	cfg       *config.Config
	logger    *slog.Logger
	converter Converter
	inspect   Inspector
}

// NewTranscoder constructs the transcode stage handler with a real ffmpeg
// client.
func NewTranscoder(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*Transcoder, error) {
	client, err := transcode.New(cfg.Transcode)
	if err != nil {
		return nil, err
	}
	return NewTranscoderWithDependencies(cfg, store, logger, client, ffprobe.Inspect), nil
}

// NewTranscoderWithDependencies allows injecting collaborators (used in tests).
func NewTranscoderWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, converter Converter, inspect Inspector) *Transcoder {
	return &Transcoder{
		store:     store,
		cfg:       cfg,
		logger:    logging.WithComponent(logger, "transcoding"),
		converter: converter,
		inspect:   inspect,
	}
}

func (t *Transcoder) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, t.logger)
	job.SetProgress("Transcoding", "Preparing conversion", 0)
	job.ErrorMessage = ""
	logger.Info("starting transcode preparation",
		logging.String(logging.FieldVideoID, job.VideoID),
		logging.String(logging.FieldOperation, string(job.Operation)),
	)
	return nil
}

func (t *Transcoder) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, t.logger)

	workDir, err := stage.RequireWorkDir(job)
	if err != nil {
		return err
	}
	input, err := stage.RequireFetchedFile(job)
	if err != nil {
		return err
	}

	output, reused := t.reuseCompliantSource(ctx, job, workDir, input)
	if reused {
		logger.Info("source already satisfies output constraints, copied without re-encoding",
			logging.String(logging.FieldVideoID, job.VideoID),
		)
	} else {
		t.updateProgress(ctx, job, "Converting "+job.Title, 0)

		lastReported := -1.0
		converted, err := t.converter.Convert(ctx, transcode.Request{
			Input:        input,
			OutputDir:    workDir,
			Operation:    job.Operation,
			MaxHeight:    t.cfg.Fetch.MaxVideoHeight,
			DurationSecs: job.DurationSecs,
			Progress: func(percent float64) {
				if percent-lastReported < 1 {
					return
				}
				lastReported = percent
				t.updateProgress(ctx, job, "Converting "+job.Title, percent)
			},
		})
		if err != nil {
			return err
		}
		output = converted
	}

	if err := t.validateOutput(ctx, job, output); err != nil {
		return err
	}

	job.OutputFile = output
	t.updateProgress(ctx, job, "Conversion complete", 100)
	logger.Info("transcode completed",
		logging.String(logging.FieldVideoID, job.VideoID),
		logging.String("output_file", output),
	)
	return nil
}

// reuseCompliantSource copies the fetched file into place when converting it
// would change nothing: an mp4 whose video is already h264 within the height
// cap and whose audio streams are all aac. A failed probe or copy falls back
// to a normal conversion rather than failing the job.
func (t *Transcoder) reuseCompliantSource(ctx context.Context, job *queue.Job, workDir, input string) (string, bool) {
	if job.Operation != queue.OperationTranscode || !strings.EqualFold(filepath.Ext(input), ".mp4") {
		return "", false
	}
	probe, err := t.inspect(ctx, t.cfg.Transcode.FFprobeBinary, input)
	if err != nil {
		return "", false
	}

	hasVideo := false
	maxHeight := int64(t.cfg.Fetch.MaxVideoHeight)
	for _, stream := range probe.Streams {
		switch {
		case strings.EqualFold(stream.CodecType, "video"):
			if !strings.EqualFold(stream.CodecName, "h264") {
				return "", false
			}
			if stream.Height <= 0 || (maxHeight > 0 && stream.Height > maxHeight) {
				return "", false
			}
			hasVideo = true
		case strings.EqualFold(stream.CodecType, "audio"):
			if !strings.EqualFold(stream.CodecName, "aac") {
				return "", false
			}
		}
	}
	if !hasVideo {
		return "", false
	}

	output := filepath.Join(workDir, "output"+job.Operation.OutputExt())
	if err := fileutil.CopyFile(input, output); err != nil {
		return "", false
	}
	return output, true
}

// validateOutput probes the produced file and rejects streams ffmpeg wrote
// but left unusable (zero duration, missing track for the operation).
func (t *Transcoder) validateOutput(ctx context.Context, job *queue.Job, output string) error {
	result, err := t.inspect(ctx, t.cfg.Transcode.FFprobeBinary, output)
	if err != nil {
		return services.Wrap(
			services.ErrTranscode, "transcoding", "probe output",
			"Produced file could not be probed", err)
	}
	if result.DurationSeconds() <= 0 {
		return services.Wrap(
			services.ErrTranscode, "transcoding", "validate output",
			"Produced file has no duration", nil)
	}
	switch job.Operation {
	case queue.OperationExtractAudio:
		if !result.HasAudio() {
			return services.Wrap(
				services.ErrTranscode, "transcoding", "validate output",
				"Produced file has no audio track", nil)
		}
	case queue.OperationTranscode:
		if !result.HasVideo() {
			return services.Wrap(
				services.ErrTranscode, "transcoding", "validate output",
				"Produced file has no video track", nil)
		}
		if width, height := result.Dimensions(); width > 0 && height > 0 {
			job.Width = width
			job.Height = height
		}
	}
	return nil
}

// HealthCheck verifies the ffmpeg and ffprobe binaries resolve.
func (t *Transcoder) HealthCheck(ctx context.Context) stage.Health {
	const name = "transcoding"
	if t.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	for _, binary := range []string{t.cfg.Transcode.FFmpegBinary, t.cfg.Transcode.FFprobeBinary} {
		binary = strings.TrimSpace(binary)
		if binary == "" {
			return stage.Unhealthy(name, "ffmpeg binaries not configured")
		}
		if _, err := exec.LookPath(binary); err != nil {
			return stage.Unhealthy(name, fmt.Sprintf("binary %q not found", binary))
		}
	}
	return stage.Healthy(name)
}

func (t *Transcoder) updateProgress(ctx context.Context, job *queue.Job, message string, percent float64) {
	logger := logging.WithContext(ctx, t.logger)
	copy := *job
	copy.SetProgress("Transcoding", message, percent)
	if err := t.store.Update(ctx, &copy); err != nil {
		logger.Warn("failed to persist transcode progress", logging.Error(err))
		return
	}
	*job = copy
}
