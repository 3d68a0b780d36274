package deps

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"yoink/internal/config"
	"yoink/internal/services"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unconfigured", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected status for unconfigured command: %#v", results[2])
	}
}

func TestRequireTagsMissingTools(t *testing.T) {
	statuses := []Status{
		{Name: "yt-dlp", Available: true},
		{Name: "FFmpeg", Available: false},
		{Name: "Extra", Available: false, Optional: true},
	}

	err := Require(statuses)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("err = %v, want ErrExternalTool", err)
	}
	if !strings.Contains(err.Error(), "FFmpeg") {
		t.Errorf("err = %v, want FFmpeg named", err)
	}
	if strings.Contains(err.Error(), "Extra") {
		t.Errorf("err = %v, optional tool should not be required", err)
	}

	statuses[1].Available = true
	if err := Require(statuses); err != nil {
		t.Errorf("err = %v, want nil when required tools resolve", err)
	}
}

func TestRequirementsCoversPipelineBinaries(t *testing.T) {
	cfg := config.Default()
	reqs := Requirements(&cfg)
	if len(reqs) != 3 {
		t.Fatalf("expected 3 requirements, got %d", len(reqs))
	}
	commands := map[string]string{}
	for _, req := range reqs {
		commands[req.Name] = req.Command
	}
	if commands["yt-dlp"] != cfg.Fetch.Binary {
		t.Errorf("yt-dlp command = %q", commands["yt-dlp"])
	}
	if commands["FFmpeg"] != cfg.Transcode.FFmpegBinary {
		t.Errorf("ffmpeg command = %q", commands["FFmpeg"])
	}
	if commands["FFprobe"] != cfg.Transcode.FFprobeBinary {
		t.Errorf("ffprobe command = %q", commands["FFprobe"])
	}
}
