package queue_test

import (
	"path/filepath"
	"testing"
	"time"

	"yoink/internal/queue"
)

func openStore(t *testing.T) *queue.Store {
	t.Helper()
	store, err := queue.OpenPath(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestParseOperation(t *testing.T) {
	cases := []struct {
		in   string
		want queue.Operation
		ok   bool
	}{
		{"extract-audio", queue.OperationExtractAudio, true},
		{" Transcode ", queue.OperationTranscode, true},
		{"mp3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := queue.ParseOperation(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseOperation(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNewJobDefaults(t *testing.T) {
	store := openStore(t)
	ctx := t.Context()

	job, err := store.NewJob(ctx, 1001, 55, "dQw4w9WgXcQ", "https://youtu.be/dQw4w9WgXcQ", queue.OperationExtractAudio)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if job.Status != queue.StatusPending {
		t.Errorf("Status = %q, want pending", job.Status)
	}
	if job.ChatID != 1001 || job.ReplyToMessageID != 55 {
		t.Errorf("chat fields = %d/%d", job.ChatID, job.ReplyToMessageID)
	}
	if job.Operation != queue.OperationExtractAudio {
		t.Errorf("Operation = %q", job.Operation)
	}
	if job.CreatedAt.IsZero() || job.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}
}

func TestUpdateRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := t.Context()

	job, err := store.NewJob(ctx, 5, 0, "abc123", "https://youtu.be/abc123", queue.OperationTranscode)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}

	job.Status = queue.StatusFetched
	job.Title = "Test clip"
	job.DurationSecs = 212
	job.Width = 1280
	job.Height = 720
	job.WorkDir = "/tmp/job"
	job.FetchedFile = "/tmp/job/source.mp4"
	now := time.Now().UTC()
	job.LastHeartbeat = &now
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusFetched || got.Title != "Test clip" {
		t.Errorf("got %q/%q", got.Status, got.Title)
	}
	if got.DurationSecs != 212 || got.Width != 1280 || got.Height != 720 {
		t.Errorf("media fields = %d/%dx%d", got.DurationSecs, got.Width, got.Height)
	}
	if got.LastHeartbeat == nil {
		t.Error("heartbeat not persisted")
	}
}

func TestGetByIDMissing(t *testing.T) {
	store := openStore(t)
	job, err := store.GetByID(t.Context(), 999)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if job != nil {
		t.Errorf("expected nil for missing job, got %+v", job)
	}
}

func TestFindActiveSkipsTerminal(t *testing.T) {
	store := openStore(t)
	ctx := t.Context()

	job, err := store.NewJob(ctx, 9, 0, "vid9", "https://youtu.be/vid9", queue.OperationTranscode)
	if err != nil {
		t.Fatal(err)
	}

	active, err := store.FindActive(ctx, 9, "vid9", queue.OperationTranscode)
	if err != nil {
		t.Fatalf("FindActive: %v", err)
	}
	if active == nil || active.ID != job.ID {
		t.Fatalf("expected active job %d, got %+v", job.ID, active)
	}

	job.SetFailed("boom")
	if err := store.Update(ctx, job); err != nil {
		t.Fatal(err)
	}

	active, err = store.FindActive(ctx, 9, "vid9", queue.OperationTranscode)
	if err != nil {
		t.Fatalf("FindActive after fail: %v", err)
	}
	if active != nil {
		t.Errorf("failed job should not count as active: %+v", active)
	}
}

func TestRetryFailedClearsStageProducts(t *testing.T) {
	store := openStore(t)
	ctx := t.Context()

	job, err := store.NewJob(ctx, 2, 0, "vidX", "https://youtu.be/vidX", queue.OperationExtractAudio)
	if err != nil {
		t.Fatal(err)
	}
	job.WorkDir = "/tmp/old"
	job.FetchedFile = "/tmp/old/in.webm"
	job.OutputFile = "/tmp/old/out.mp3"
	job.SetFailed("network reset")
	if err := store.Update(ctx, job); err != nil {
		t.Fatal(err)
	}

	count, err := store.RetryFailed(ctx, job.ID)
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if count != 1 {
		t.Fatalf("RetryFailed count = %d, want 1", count)
	}

	got, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != queue.StatusPending {
		t.Errorf("Status = %q, want pending", got.Status)
	}
	if got.WorkDir != "" || got.FetchedFile != "" || got.OutputFile != "" {
		t.Errorf("stage products survived retry: %q %q %q", got.WorkDir, got.FetchedFile, got.OutputFile)
	}
	if got.ErrorMessage != "" {
		t.Errorf("error message survived retry: %q", got.ErrorMessage)
	}
}

func TestRetryFailedIgnoresNonFailed(t *testing.T) {
	store := openStore(t)
	ctx := t.Context()

	job, err := store.NewJob(ctx, 2, 0, "vidY", "https://youtu.be/vidY", queue.OperationExtractAudio)
	if err != nil {
		t.Fatal(err)
	}

	count, err := store.RetryFailed(ctx, job.ID)
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if count != 0 {
		t.Errorf("retried %d pending jobs, want 0", count)
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	store := openStore(t)
	ctx := t.Context()

	job, err := store.NewJob(ctx, 3, 0, "vidZ", "https://youtu.be/vidZ", queue.OperationTranscode)
	if err != nil {
		t.Fatal(err)
	}
	stale := time.Now().UTC().Add(-10 * time.Minute)
	job.Status = queue.StatusTranscoding
	job.LastHeartbeat = &stale
	if err := store.Update(ctx, job); err != nil {
		t.Fatal(err)
	}

	count, err := store.ReclaimStaleProcessing(ctx, time.Now().UTC().Add(-5*time.Minute))
	if err != nil {
		t.Fatalf("ReclaimStaleProcessing: %v", err)
	}
	if count != 1 {
		t.Fatalf("reclaimed %d, want 1", count)
	}

	got, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != queue.StatusPending {
		t.Errorf("Status = %q, want pending", got.Status)
	}
	if got.LastHeartbeat != nil {
		t.Error("heartbeat should be cleared on reclaim")
	}
}

func TestReclaimLeavesFreshJobs(t *testing.T) {
	store := openStore(t)
	ctx := t.Context()

	job, err := store.NewJob(ctx, 3, 0, "vidW", "https://youtu.be/vidW", queue.OperationTranscode)
	if err != nil {
		t.Fatal(err)
	}
	job.Status = queue.StatusFetching
	if err := store.Update(ctx, job); err != nil {
		t.Fatal(err)
	}
	if err := store.UpdateHeartbeat(ctx, job.ID); err != nil {
		t.Fatal(err)
	}

	count, err := store.ReclaimStaleProcessing(ctx, time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("reclaimed %d fresh jobs, want 0", count)
	}
}

func TestHealthCounts(t *testing.T) {
	store := openStore(t)
	ctx := t.Context()

	pending, err := store.NewJob(ctx, 1, 0, "a", "https://youtu.be/a", queue.OperationExtractAudio)
	if err != nil {
		t.Fatal(err)
	}
	_ = pending

	inflight, err := store.NewJob(ctx, 1, 0, "b", "https://youtu.be/b", queue.OperationExtractAudio)
	if err != nil {
		t.Fatal(err)
	}
	inflight.Status = queue.StatusDelivering
	if err := store.Update(ctx, inflight); err != nil {
		t.Fatal(err)
	}

	done, err := store.NewJob(ctx, 1, 0, "c", "https://youtu.be/c", queue.OperationExtractAudio)
	if err != nil {
		t.Fatal(err)
	}
	done.Status = queue.StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatal(err)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != 3 || health.Pending != 1 || health.Processing != 1 || health.Completed != 1 {
		t.Errorf("health = %+v", health)
	}
}

func TestDeleteCompletedBefore(t *testing.T) {
	store := openStore(t)
	ctx := t.Context()

	job, err := store.NewJob(ctx, 1, 0, "old", "https://youtu.be/old", queue.OperationExtractAudio)
	if err != nil {
		t.Fatal(err)
	}
	job.Status = queue.StatusCompleted
	if err := store.Update(ctx, job); err != nil {
		t.Fatal(err)
	}

	count, err := store.DeleteCompletedBefore(ctx, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("DeleteCompletedBefore: %v", err)
	}
	if count != 1 {
		t.Errorf("pruned %d, want 1", count)
	}

	count, err = store.DeleteCompletedBefore(ctx, time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("pruned %d with past cutoff, want 0", count)
	}
}

func TestRemoveReportsWhetherJobExisted(t *testing.T) {
	store := openStore(t)
	ctx := t.Context()

	job, err := store.NewJob(ctx, 1, 0, "gone", "https://youtu.be/gone", queue.OperationExtractAudio)
	if err != nil {
		t.Fatal(err)
	}

	removed, err := store.Remove(ctx, job.ID)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !removed {
		t.Error("expected removal of existing job")
	}

	removed, err = store.Remove(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if removed {
		t.Error("expected no removal for missing job")
	}
}

func TestClearEmptiesQueue(t *testing.T) {
	store := openStore(t)
	ctx := t.Context()

	for _, vid := range []string{"a", "b"} {
		if _, err := store.NewJob(ctx, 1, 0, vid, "https://youtu.be/"+vid, queue.OperationTranscode); err != nil {
			t.Fatal(err)
		}
	}

	count, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if count != 2 {
		t.Errorf("cleared %d, want 2", count)
	}

	jobs, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 0 {
		t.Errorf("jobs remaining = %d", len(jobs))
	}
}

func TestCheckHealth(t *testing.T) {
	store := openStore(t)
	health, err := store.CheckHealth(t.Context())
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists {
		t.Errorf("health = %+v", health)
	}
	if !health.IntegrityCheck {
		t.Error("integrity check failed")
	}
}

func TestClaimNextAdvancesStatus(t *testing.T) {
	store := openStore(t)
	ctx := t.Context()

	job, err := store.NewJob(ctx, 1, 2, "vid-a", "https://youtu.be/vid-a", queue.OperationTranscode)
	if err != nil {
		t.Fatal(err)
	}

	claimed, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if claimed == nil || claimed.ID != job.ID {
		t.Fatalf("claimed = %+v", claimed)
	}
	if claimed.Status != queue.StatusFetching {
		t.Errorf("Status = %q, want fetching", claimed.Status)
	}
	if claimed.LastHeartbeat == nil {
		t.Error("heartbeat not set on claim")
	}

	// Nothing claimable while the job is in flight.
	second, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if second != nil {
		t.Errorf("claimed in-flight job %d twice", second.ID)
	}

	claimed.Status = queue.StatusFetched
	if err := store.Update(ctx, claimed); err != nil {
		t.Fatal(err)
	}
	third, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if third == nil || third.Status != queue.StatusTranscoding {
		t.Fatalf("third claim = %+v, want transcoding", third)
	}
}

func TestClaimNextPrefersOldest(t *testing.T) {
	store := openStore(t)
	ctx := t.Context()

	first, err := store.NewJob(ctx, 1, 0, "vid-a", "https://youtu.be/vid-a", queue.OperationExtractAudio)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := store.NewJob(ctx, 1, 0, "vid-b", "https://youtu.be/vid-b", queue.OperationExtractAudio); err != nil {
		t.Fatal(err)
	}

	claimed, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if claimed == nil || claimed.ID != first.ID {
		t.Errorf("claimed = %+v, want oldest job %d", claimed, first.ID)
	}
}

func TestStatusProgressionMaps(t *testing.T) {
	for _, start := range queue.StartStatuses() {
		processing, ok := queue.ProcessingStatusFor(start)
		if !ok {
			t.Fatalf("no processing status for %q", start)
		}
		if _, ok := queue.DoneStatusFor(processing); !ok {
			t.Fatalf("no done status for %q", processing)
		}
	}
	if done, _ := queue.DoneStatusFor(queue.StatusDelivering); done != queue.StatusCompleted {
		t.Errorf("delivering completes to %q", done)
	}
	if _, ok := queue.ProcessingStatusFor(queue.StatusCompleted); ok {
		t.Error("completed should not be claimable")
	}
}
