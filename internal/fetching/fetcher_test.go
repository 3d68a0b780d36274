package fetching_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"yoink/internal/config"
	"yoink/internal/fetching"
	"yoink/internal/queue"
	"yoink/internal/services"
	"yoink/internal/ytdlp"
)

type fakeSource struct {
	meta     *ytdlp.Metadata
	probeErr error
	fetchErr error
	fetched  string
	percents []float64
}

func (f *fakeSource) Probe(_ context.Context, _ string) (*ytdlp.Metadata, error) {
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	return f.meta, nil
}

func (f *fakeSource) Fetch(_ context.Context, _ string, _ queue.Operation, destDir string, progress func(float64)) (string, error) {
	if f.fetchErr != nil {
		return "", f.fetchErr
	}
	for _, p := range []float64{10, 10.2, 55, 100} {
		progress(p)
		f.percents = append(f.percents, p)
	}
	path := filepath.Join(destDir, "source.webm")
	if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
		return "", err
	}
	f.fetched = path
	return path, nil
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.StagingDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	return &cfg
}

func openStore(t *testing.T) *queue.Store {
	t.Helper()
	store, err := queue.OpenPath(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newJob(t *testing.T, store *queue.Store) *queue.Job {
	t.Helper()
	job, err := store.NewJob(t.Context(), 42, 10, "dQw4w9WgXcQ",
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ", queue.OperationExtractAudio)
	if err != nil {
		t.Fatal(err)
	}
	return job
}

func TestPrepareCreatesWorkspace(t *testing.T) {
	cfg := newTestConfig(t)
	store := openStore(t)
	fetcher := fetching.NewFetcherWithSource(cfg, store, nil, &fakeSource{})
	job := newJob(t, store)

	if err := fetcher.Prepare(t.Context(), job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if job.WorkDir == "" {
		t.Fatal("WorkDir not assigned")
	}
	info, err := os.Stat(job.WorkDir)
	if err != nil || !info.IsDir() {
		t.Fatalf("work dir missing: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(job.WorkDir), "job-") {
		t.Errorf("work dir name = %q", filepath.Base(job.WorkDir))
	}
}

func TestPrepareKeepsExistingWorkspace(t *testing.T) {
	cfg := newTestConfig(t)
	store := openStore(t)
	fetcher := fetching.NewFetcherWithSource(cfg, store, nil, &fakeSource{})
	job := newJob(t, store)
	existing := t.TempDir()
	job.WorkDir = existing

	if err := fetcher.Prepare(t.Context(), job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if job.WorkDir != existing {
		t.Errorf("WorkDir = %q, want %q", job.WorkDir, existing)
	}
}

func TestExecuteFetchesAndRecordsMetadata(t *testing.T) {
	cfg := newTestConfig(t)
	store := openStore(t)
	source := &fakeSource{meta: &ytdlp.Metadata{
		ID:           "dQw4w9WgXcQ",
		Title:        "Never Gonna Give You Up",
		DurationSecs: 212.4,
		Width:        1920,
		Height:       1080,
	}}
	fetcher := fetching.NewFetcherWithSource(cfg, store, nil, source)
	job := newJob(t, store)

	if err := fetcher.Prepare(t.Context(), job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := fetcher.Execute(t.Context(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if job.Title != "Never Gonna Give You Up" {
		t.Errorf("Title = %q", job.Title)
	}
	if job.DurationSecs != 212 || job.Width != 1920 || job.Height != 1080 {
		t.Errorf("metadata = %d/%d/%d", job.DurationSecs, job.Width, job.Height)
	}
	if job.FetchedFile != source.fetched {
		t.Errorf("FetchedFile = %q, want %q", job.FetchedFile, source.fetched)
	}

	// Progress survives in the store too.
	stored, err := store.GetByID(t.Context(), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.ProgressPercent != 100 {
		t.Errorf("stored progress = %v", stored.ProgressPercent)
	}
}

func TestExecuteWithoutWorkDirFailsValidation(t *testing.T) {
	cfg := newTestConfig(t)
	store := openStore(t)
	fetcher := fetching.NewFetcherWithSource(cfg, store, nil, &fakeSource{meta: &ytdlp.Metadata{}})
	job := newJob(t, store)

	err := fetcher.Execute(t.Context(), job)
	if !errors.Is(err, services.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestExecutePropagatesFetchErrors(t *testing.T) {
	cfg := newTestConfig(t)
	store := openStore(t)
	wrapped := services.Wrap(services.ErrFetch, "fetching", "run yt-dlp", "Download failed", errors.New("403"))
	source := &fakeSource{meta: &ytdlp.Metadata{Title: "x"}, fetchErr: wrapped}
	fetcher := fetching.NewFetcherWithSource(cfg, store, nil, source)
	job := newJob(t, store)

	if err := fetcher.Prepare(t.Context(), job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	err := fetcher.Execute(t.Context(), job)
	if !errors.Is(err, services.ErrFetch) {
		t.Errorf("err = %v, want ErrFetch", err)
	}
	if job.FetchedFile != "" {
		t.Errorf("FetchedFile = %q, want empty", job.FetchedFile)
	}
}

func TestHealthCheckReportsMissingBinary(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Fetch.Binary = "clearly-not-present-binary"
	store := openStore(t)
	fetcher := fetching.NewFetcherWithSource(cfg, store, nil, &fakeSource{})

	health := fetcher.HealthCheck(t.Context())
	if health.Ready {
		t.Fatalf("health = %+v, want unready", health)
	}
	if !strings.Contains(health.Detail, "not found") {
		t.Errorf("detail = %q", health.Detail)
	}
}
