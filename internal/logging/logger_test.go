package logging_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"yoink/internal/logging"
	"yoink/internal/services"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "yoink.log")
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", Paths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("daemon started", logging.String("bind", "127.0.0.1:7575"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "INFO") || !strings.Contains(line, "daemon started") {
		t.Errorf("unexpected log line: %q", line)
	}
	if !strings.Contains(line, "bind=127.0.0.1:7575") {
		t.Errorf("missing attribute in log line: %q", line)
	}
}

func TestConsoleHandlerHoistsComponent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, err := logging.New(logging.Options{Format: "console", Paths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logging.WithComponent(logger, "workflow").Info("job claimed", logging.Int64("job_id", 7))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	line := string(data)
	if !strings.Contains(line, "workflow: job claimed") {
		t.Errorf("component not hoisted into prefix: %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Errorf("component should not repeat as attribute: %q", line)
	}
}

func TestLevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, err := logging.New(logging.Options{Level: "warn", Format: "console", Paths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("hidden")
	logger.Warn("visible")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "hidden") {
		t.Error("info line leaked past warn level")
	}
	if !strings.Contains(string(data), "visible") {
		t.Error("warn line missing")
	}
}

func TestWithContextAddsJobFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := services.WithJobID(t.Context(), 42)
	ctx = services.WithStage(ctx, "fetching")

	logging.WithContext(ctx, logger).Info("working")

	line := buf.String()
	if !strings.Contains(line, "job_id=42") {
		t.Errorf("missing job_id: %q", line)
	}
	if !strings.Contains(line, "stage=fetching") {
		t.Errorf("missing stage: %q", line)
	}
}
