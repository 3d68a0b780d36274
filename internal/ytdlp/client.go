// Package ytdlp wraps the yt-dlp CLI for probing and downloading source
// media into a job workspace.
package ytdlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"yoink/internal/config"
	"yoink/internal/execx"
	"yoink/internal/queue"
	"yoink/internal/services"
)

const stage = "fetching"

// Metadata describes a probed source video.
type Metadata struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	DurationSecs float64 `json:"duration"`
	Width        int64   `json:"width"`
	Height       int64   `json:"height"`
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec execx.Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps yt-dlp CLI interactions.
type Client struct {
	binary        string
	timeout       time.Duration
	maxHeight     int
	playerClients []string
	exec          execx.Executor
}

// New constructs a yt-dlp client from the fetch config section.
func New(cfg config.Fetch, opts ...Option) (*Client, error) {
	binary := strings.TrimSpace(cfg.Binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	client := &Client{
		binary:        binary,
		timeout:       time.Duration(cfg.Timeout) * time.Second,
		maxHeight:     cfg.MaxVideoHeight,
		playerClients: cfg.PlayerClients,
		exec:          execx.New(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Probe fetches source metadata without downloading media.
func (c *Client) Probe(ctx context.Context, url string) (*Metadata, error) {
	args := []string{"--dump-json", "--no-playlist", "--no-warnings"}
	args = append(args, c.extractorArgs()...)
	args = append(args, "--", url)

	var jsonLine string
	result, err := c.exec.Run(ctx, execx.Command{
		Binary:  c.binary,
		Args:    args,
		Timeout: c.timeout,
		OnStdout: func(line string) {
			if strings.HasPrefix(strings.TrimSpace(line), "{") {
				jsonLine = line
			}
		},
	})
	if err != nil {
		return nil, c.classify("probe", result, err)
	}
	if jsonLine == "" {
		return nil, services.Wrap(services.ErrFetch, stage, "probe", "yt-dlp produced no metadata", nil)
	}

	var meta Metadata
	if decodeErr := json.Unmarshal([]byte(jsonLine), &meta); decodeErr != nil {
		return nil, services.Wrap(services.ErrFetch, stage, "probe", "parse metadata", decodeErr)
	}
	return &meta, nil
}

// Fetch downloads the source for the given operation into destDir and
// returns the downloaded file path. Progress receives download percent
// when yt-dlp reports it.
func (c *Client) Fetch(ctx context.Context, url string, op queue.Operation, destDir string, progress func(float64)) (string, error) {
	if strings.TrimSpace(destDir) == "" {
		return "", services.Wrap(services.ErrFetch, stage, "download", "destination directory required", nil)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrFetch, stage, "download", "create destination", err)
	}

	args := []string{
		"--no-playlist",
		"--no-warnings",
		"--newline",
		"-f", c.formatSelector(op),
		"-o", filepath.Join(destDir, "source.%(ext)s"),
	}
	args = append(args, c.extractorArgs()...)
	args = append(args, "--", url)

	result, err := c.exec.Run(ctx, execx.Command{
		Binary:  c.binary,
		Args:    args,
		Timeout: c.timeout,
		OnStdout: func(line string) {
			if progress == nil {
				return
			}
			if percent, ok := parseDownloadProgress(line); ok {
				progress(percent)
			}
		},
	})
	if err != nil {
		return "", c.classify("download", result, err)
	}

	path, err := findDownloaded(destDir)
	if err != nil {
		return "", services.Wrap(services.ErrFetch, stage, "download", "locate downloaded file", err)
	}
	return path, nil
}

func (c *Client) formatSelector(op queue.Operation) string {
	if op == queue.OperationExtractAudio {
		return "bestaudio/best"
	}
	h := strconv.Itoa(c.maxHeight)
	return "bestvideo[height<=" + h + "]+bestaudio/best[height<=" + h + "]/best"
}

func (c *Client) extractorArgs() []string {
	if len(c.playerClients) == 0 {
		return nil
	}
	return []string{"--extractor-args", "youtube:player_client=" + strings.Join(c.playerClients, ",")}
}

func (c *Client) classify(operation string, result execx.Result, err error) error {
	if result.TimedOut {
		return services.Wrap(services.ErrTimeout, stage, operation,
			fmt.Sprintf("yt-dlp exceeded %s", c.timeout), err)
	}
	message := "yt-dlp failed"
	if tail := strings.TrimSpace(result.StderrTail); tail != "" {
		message = fmt.Sprintf("yt-dlp failed: %s", lastLine(tail))
	}
	return services.Wrap(services.ErrFetch, stage, operation, message, err)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// parseDownloadProgress extracts the percent from yt-dlp progress lines of
// the form "[download]  42.3% of 9.54MiB at 1.2MiB/s".
func parseDownloadProgress(line string) (float64, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "[download]") {
		return 0, false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "[download]"))
	fields := strings.Fields(rest)
	if len(fields) == 0 || !strings.HasSuffix(fields[0], "%") {
		return 0, false
	}
	percent, err := strconv.ParseFloat(strings.TrimSuffix(fields[0], "%"), 64)
	if err != nil || percent < 0 || percent > 100 {
		return 0, false
	}
	return percent, true
}

// findDownloaded returns the newest source.* file in dir. yt-dlp decides
// the final extension, so the exact name is not known up front.
func findDownloaded(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var (
		best     string
		bestTime time.Time
	)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "source.") {
			continue
		}
		// Skip yt-dlp partial files.
		if strings.HasSuffix(entry.Name(), ".part") || strings.HasSuffix(entry.Name(), ".ytdl") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if best == "" || info.ModTime().After(bestTime) {
			best = filepath.Join(dir, entry.Name())
			bestTime = info.ModTime()
		}
	}
	if best == "" {
		return "", errors.New("no downloaded file found")
	}
	return best, nil
}
