package transcoding_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"yoink/internal/config"
	"yoink/internal/media/ffprobe"
	"yoink/internal/queue"
	"yoink/internal/services"
	"yoink/internal/transcode"
	"yoink/internal/transcoding"
)

type fakeConverter struct {
	req     transcode.Request
	err     error
	written string
}

func (f *fakeConverter) Convert(_ context.Context, req transcode.Request) (string, error) {
	f.req = req
	if f.err != nil {
		return "", f.err
	}
	if req.Progress != nil {
		for _, p := range []float64{25, 25.5, 90} {
			req.Progress(p)
		}
	}
	output := filepath.Join(req.OutputDir, "output"+req.Operation.OutputExt())
	if err := os.WriteFile(output, []byte("converted"), 0o644); err != nil {
		return "", err
	}
	f.written = output
	return output, nil
}

func goodAudioProbe(_ context.Context, _, _ string) (ffprobe.Result, error) {
	return ffprobe.Result{
		Streams: []ffprobe.Stream{{CodecType: "audio", CodecName: "mp3", Channels: 2}},
		Format:  ffprobe.Format{Duration: "212.4", Size: "3145728"},
	}, nil
}

func goodVideoProbe(_ context.Context, _, _ string) (ffprobe.Result, error) {
	return ffprobe.Result{
		Streams: []ffprobe.Stream{
			{CodecType: "video", CodecName: "h264", Width: 1280, Height: 720},
			{CodecType: "audio", CodecName: "aac", Channels: 2},
		},
		Format: ffprobe.Format{Duration: "212.4", Size: "9437184"},
	}, nil
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

func fetchedJob(t *testing.T, store *queue.Store, op queue.Operation) *queue.Job {
	t.Helper()
	job, err := store.NewJob(t.Context(), 42, 10, "dQw4w9WgXcQ",
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ", op)
	if err != nil {
		t.Fatal(err)
	}
	job.WorkDir = t.TempDir()
	job.Title = "Never Gonna Give You Up"
	job.DurationSecs = 212
	job.FetchedFile = filepath.Join(job.WorkDir, "source.webm")
	if err := os.WriteFile(job.FetchedFile, []byte("media"), 0o644); err != nil {
		t.Fatal(err)
	}
	return job
}

func TestExecuteProducesAudioOutput(t *testing.T) {
	cfg := newTestConfig(t)
	store := openStore(t)
	converter := &fakeConverter{}
	tr := transcoding.NewTranscoderWithDependencies(cfg, store, nil, converter, goodAudioProbe)
	job := fetchedJob(t, store, queue.OperationExtractAudio)

	if err := tr.Prepare(t.Context(), job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := tr.Execute(t.Context(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if job.OutputFile != converter.written {
		t.Errorf("OutputFile = %q, want %q", job.OutputFile, converter.written)
	}
	if filepath.Ext(job.OutputFile) != ".mp3" {
		t.Errorf("output ext = %q", filepath.Ext(job.OutputFile))
	}
	if converter.req.Input != job.FetchedFile {
		t.Errorf("converter input = %q", converter.req.Input)
	}
	if converter.req.DurationSecs != 212 {
		t.Errorf("converter duration = %d", converter.req.DurationSecs)
	}
}

func TestExecuteRecordsOutputDimensions(t *testing.T) {
	cfg := newTestConfig(t)
	store := openStore(t)
	tr := transcoding.NewTranscoderWithDependencies(cfg, store, nil, &fakeConverter{}, goodVideoProbe)
	job := fetchedJob(t, store, queue.OperationTranscode)
	job.Width = 1920
	job.Height = 1080

	if err := tr.Execute(t.Context(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	// The delivered dimensions come from the capped output, not the source.
	if job.Width != 1280 || job.Height != 720 {
		t.Errorf("dimensions = %dx%d, want 1280x720", job.Width, job.Height)
	}
}

func TestExecutePassesHeightCap(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Fetch.MaxVideoHeight = 480
	store := openStore(t)
	converter := &fakeConverter{}
	tr := transcoding.NewTranscoderWithDependencies(cfg, store, nil, converter, goodVideoProbe)
	job := fetchedJob(t, store, queue.OperationTranscode)

	if err := tr.Execute(t.Context(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if converter.req.MaxHeight != 480 {
		t.Errorf("MaxHeight = %d, want 480", converter.req.MaxHeight)
	}
}

func TestExecuteReusesCompliantMP4Source(t *testing.T) {
	cfg := newTestConfig(t)
	store := openStore(t)
	converter := &fakeConverter{}
	tr := transcoding.NewTranscoderWithDependencies(cfg, store, nil, converter, goodVideoProbe)
	job := fetchedJob(t, store, queue.OperationTranscode)
	job.FetchedFile = filepath.Join(job.WorkDir, "source.mp4")
	if err := os.WriteFile(job.FetchedFile, []byte("already compliant"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := tr.Execute(t.Context(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if converter.written != "" {
		t.Error("converter ran for a source already within limits")
	}
	want := filepath.Join(job.WorkDir, "output.mp4")
	if job.OutputFile != want {
		t.Errorf("OutputFile = %q, want %q", job.OutputFile, want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "already compliant" {
		t.Errorf("output content = %q, want the source bytes", data)
	}
}

func TestExecuteConvertsOversizedMP4Source(t *testing.T) {
	cfg := newTestConfig(t)
	store := openStore(t)
	oversizedProbe := func(_ context.Context, _, _ string) (ffprobe.Result, error) {
		return ffprobe.Result{
			Streams: []ffprobe.Stream{
				{CodecType: "video", CodecName: "h264", Width: 1920, Height: 1080},
				{CodecType: "audio", CodecName: "aac", Channels: 2},
			},
			Format: ffprobe.Format{Duration: "212.4", Size: "52428800"},
		}, nil
	}
	converter := &fakeConverter{}
	tr := transcoding.NewTranscoderWithDependencies(cfg, store, nil, converter, oversizedProbe)
	job := fetchedJob(t, store, queue.OperationTranscode)
	job.FetchedFile = filepath.Join(job.WorkDir, "source.mp4")
	if err := os.WriteFile(job.FetchedFile, []byte("too tall"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := tr.Execute(t.Context(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if converter.written == "" {
		t.Error("expected conversion for a source above the height cap")
	}
}

func TestExecuteWithoutFetchedFileFailsValidation(t *testing.T) {
	cfg := newTestConfig(t)
	store := openStore(t)
	tr := transcoding.NewTranscoderWithDependencies(cfg, store, nil, &fakeConverter{}, goodAudioProbe)
	job := fetchedJob(t, store, queue.OperationExtractAudio)
	job.FetchedFile = ""

	if err := tr.Execute(t.Context(), job); !errors.Is(err, services.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestExecuteRejectsOutputMissingExpectedTrack(t *testing.T) {
	cfg := newTestConfig(t)
	store := openStore(t)
	silentProbe := func(_ context.Context, _, _ string) (ffprobe.Result, error) {
		return ffprobe.Result{
			Streams: []ffprobe.Stream{{CodecType: "video", CodecName: "h264"}},
			Format:  ffprobe.Format{Duration: "10"},
		}, nil
	}
	tr := transcoding.NewTranscoderWithDependencies(cfg, store, nil, &fakeConverter{}, silentProbe)
	job := fetchedJob(t, store, queue.OperationExtractAudio)

	err := tr.Execute(t.Context(), job)
	if !errors.Is(err, services.ErrTranscode) {
		t.Errorf("err = %v, want ErrTranscode", err)
	}
	if job.OutputFile != "" {
		t.Errorf("OutputFile = %q, want empty after validation failure", job.OutputFile)
	}
}

func TestExecuteRejectsZeroDurationOutput(t *testing.T) {
	cfg := newTestConfig(t)
	store := openStore(t)
	emptyProbe := func(_ context.Context, _, _ string) (ffprobe.Result, error) {
		return ffprobe.Result{
			Streams: []ffprobe.Stream{{CodecType: "audio"}},
			Format:  ffprobe.Format{Duration: "0"},
		}, nil
	}
	tr := transcoding.NewTranscoderWithDependencies(cfg, store, nil, &fakeConverter{}, emptyProbe)
	job := fetchedJob(t, store, queue.OperationExtractAudio)

	if err := tr.Execute(t.Context(), job); !errors.Is(err, services.ErrTranscode) {
		t.Errorf("err = %v, want ErrTranscode", err)
	}
}

func TestExecutePropagatesConverterErrors(t *testing.T) {
	cfg := newTestConfig(t)
	store := openStore(t)
	wrapped := services.Wrap(services.ErrTimeout, "transcoding", "run ffmpeg", "ffmpeg exceeded 2m0s and was killed", nil)
	tr := transcoding.NewTranscoderWithDependencies(cfg, store, nil, &fakeConverter{err: wrapped}, goodAudioProbe)
	job := fetchedJob(t, store, queue.OperationExtractAudio)

	if err := tr.Execute(t.Context(), job); !errors.Is(err, services.ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
}

func TestHealthCheckReportsMissingFFmpeg(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Transcode.FFmpegBinary = "clearly-not-present-binary"
	store := openStore(t)
	tr := transcoding.NewTranscoderWithDependencies(cfg, store, nil, &fakeConverter{}, goodAudioProbe)

	if health := tr.HealthCheck(t.Context()); health.Ready {
		t.Errorf("health = %+v, want unready", health)
	}
}
