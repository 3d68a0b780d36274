package main

import (
	"strings"
	"testing"

	"yoink/internal/api"
	"yoink/internal/queue"
)

func TestParseStatusFilters(t *testing.T) {
	statuses, err := parseStatusFilters([]string{"Failed", " pending "})
	if err != nil {
		t.Fatalf("parseStatusFilters: %v", err)
	}
	if len(statuses) != 2 || statuses[0] != queue.StatusFailed || statuses[1] != queue.StatusPending {
		t.Fatalf("statuses = %v", statuses)
	}

	_, err = parseStatusFilters([]string{"bogus"})
	if err == nil {
		t.Fatal("expected error for unknown status")
	}
	if !strings.Contains(err.Error(), `"bogus"`) || !strings.Contains(err.Error(), "pending") {
		t.Fatalf("err = %v, want the unknown value and the known set", err)
	}
}

func TestBuildQueueStatusRowsOrdersPipelineFirst(t *testing.T) {
	stats := map[string]int{
		"failed":    2,
		"pending":   5,
		"completed": 9,
		"fetching":  1,
	}

	rows := buildQueueStatusRows(stats)
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	order := []string{"pending", "fetching", "completed", "failed"}
	for i, status := range order {
		if rows[i][0] != status {
			t.Fatalf("expected %q at row %d, got %q", status, i, rows[i][0])
		}
	}
	if rows[0][1] != "5" {
		t.Fatalf("expected pending count 5, got %q", rows[0][1])
	}
}

func TestBuildQueueStatusRowsSkipsZeroCounts(t *testing.T) {
	rows := buildQueueStatusRows(map[string]int{"pending": 0, "failed": 1})
	if len(rows) != 1 || rows[0][0] != "failed" {
		t.Fatalf("expected only failed row, got %v", rows)
	}
}

func TestBuildQueueListRowsFallsBackToVideoID(t *testing.T) {
	jobs := []api.MediaJob{
		{
			ID:        3,
			VideoID:   "dQw4w9WgXcQ",
			Operation: "extract-audio",
			Status:    "fetching",
			Progress:  api.QueueProgress{Stage: "Fetching", Percent: 40},
		},
		{
			ID:        4,
			VideoID:   "abc123defgh",
			Title:     "Some Talk",
			Operation: "transcode",
			Status:    "completed",
			Progress:  api.QueueProgress{Stage: "Completed", Percent: 100},
		},
	}

	rows := buildQueueListRows(jobs)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][3] != "dQw4w9WgXcQ" {
		t.Fatalf("expected video id fallback title, got %q", rows[0][3])
	}
	if rows[1][3] != "Some Talk" {
		t.Fatalf("expected title, got %q", rows[1][3])
	}
	if !strings.Contains(rows[0][5], "40%") || !strings.Contains(rows[0][5], "Fetching") {
		t.Fatalf("unexpected progress cell: %q", rows[0][5])
	}
}
