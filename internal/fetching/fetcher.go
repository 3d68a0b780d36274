package fetching

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"yoink/internal/config"
	"yoink/internal/logging"
	"yoink/internal/queue"
	"yoink/internal/services"
	"yoink/internal/stage"
	"yoink/internal/workspace"
	"yoink/internal/ytdlp"
)

// MediaSource is the slice of the yt-dlp client the stage depends on.
type MediaSource interface {
	Probe(ctx context.Context, url string) (*ytdlp.Metadata, error)
	Fetch(ctx context.Context, url string, op queue.Operation, destDir string, progress func(float64)) (string, error)
}

// Fetcher downloads source media into the job workspace.
type Fetcher struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
	source MediaSource
}

// NewFetcher constructs the fetch stage handler with a real yt-dlp client.
func NewFetcher(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*Fetcher, error) {
	client, err := ytdlp.New(cfg.Fetch)
	if err != nil {
		return nil, err
	}
	return NewFetcherWithSource(cfg, store, logger, client), nil
}

// NewFetcherWithSource allows injecting the media source (used in tests).
func NewFetcherWithSource(cfg *config.Config, store *queue.Store, logger *slog.Logger, source MediaSource) *Fetcher {
	return &Fetcher{
		store:  store,
		cfg:    cfg,
		logger: logging.WithComponent(logger, "fetching"),
		source: source,
	}
}

func (f *Fetcher) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, f.logger)

	if strings.TrimSpace(job.WorkDir) == "" {
		dir, err := workspace.Create(f.cfg.Paths.StagingDir, job.ID)
		if err != nil {
			return services.Wrap(
				services.ErrConfiguration, "fetching", "create workspace",
				"Failed to create job working directory; check staging_dir permissions", err)
		}
		job.WorkDir = dir
	}

	job.SetProgress("Fetching", "Preparing download", 0)
	job.ErrorMessage = ""
	logger.Info("starting fetch preparation",
		logging.String(logging.FieldVideoID, job.VideoID),
		logging.String("work_dir", job.WorkDir),
	)
	return nil
}

func (f *Fetcher) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, f.logger)

	workDir, err := stage.RequireWorkDir(job)
	if err != nil {
		return err
	}
	url := strings.TrimSpace(job.SourceURL)
	if url == "" {
		return services.Wrap(
			services.ErrValidation, "fetching", "validate inputs",
			"Job has no source URL", nil)
	}

	meta, err := f.source.Probe(ctx, url)
	if err != nil {
		return err
	}
	job.Title = strings.TrimSpace(meta.Title)
	job.DurationSecs = int64(meta.DurationSecs)
	job.Width = meta.Width
	job.Height = meta.Height
	f.updateProgress(ctx, job, fmt.Sprintf("Downloading %s", job.Title), 0)
	logger.Info("source probed",
		logging.String(logging.FieldVideoID, job.VideoID),
		logging.String("title", job.Title),
		logging.Int64("duration_secs", job.DurationSecs),
	)

	lastReported := -1.0
	fetched, err := f.source.Fetch(ctx, url, job.Operation, workDir, func(percent float64) {
		// Persisting every --newline tick would hammer the store.
		if percent-lastReported < 1 {
			return
		}
		lastReported = percent
		f.updateProgress(ctx, job, fmt.Sprintf("Downloading %s", job.Title), percent)
	})
	if err != nil {
		return err
	}

	job.FetchedFile = fetched
	f.updateProgress(ctx, job, "Download complete", 100)
	logger.Info("fetch completed",
		logging.String(logging.FieldVideoID, job.VideoID),
		logging.String("fetched_file", fetched),
	)
	return nil
}

// HealthCheck verifies the yt-dlp binary and the staging root are usable.
func (f *Fetcher) HealthCheck(ctx context.Context) stage.Health {
	const name = "fetching"
	if f.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	binary := strings.TrimSpace(f.cfg.Fetch.Binary)
	if binary == "" {
		return stage.Unhealthy(name, "yt-dlp binary not configured")
	}
	if _, err := exec.LookPath(binary); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("binary %q not found", binary))
	}
	if info, err := os.Stat(f.cfg.Paths.StagingDir); err != nil || !info.IsDir() {
		return stage.Unhealthy(name, "staging directory unavailable")
	}
	return stage.Healthy(name)
}

func (f *Fetcher) updateProgress(ctx context.Context, job *queue.Job, message string, percent float64) {
	logger := logging.WithContext(ctx, f.logger)
	copy := *job
	copy.SetProgress("Fetching", message, percent)
	if err := f.store.Update(ctx, &copy); err != nil {
		logger.Warn("failed to persist fetch progress", logging.Error(err))
		return
	}
	*job = copy
}
