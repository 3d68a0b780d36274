// Package transcode wraps the ffmpeg CLI for converting fetched media into
// the artifact each operation promises: an mp3 for audio extraction, an
// h264/aac mp4 for video conversion.
package transcode

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"yoink/internal/config"
	"yoink/internal/execx"
	"yoink/internal/queue"
	"yoink/internal/services"
)

const stage = "transcoding"

// Request describes one conversion.
type Request struct {
	Input     string
	OutputDir string
	Operation queue.Operation
	// MaxHeight caps video output height; source below the cap is kept
	// as-is. Ignored for audio extraction.
	MaxHeight int
	// DurationSecs of the source, used to turn ffmpeg's out_time
	// progress into a percentage. Zero disables percentage reporting.
	DurationSecs int64
	Progress     func(float64)
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

// Client wraps ffmpeg CLI interactions.
type Client struct {
	binary       string
	timeout      time.Duration
	audioBitrate string
	videoPreset  string
	videoCRF     int
	exec         execx.Executor
}

// New constructs an ffmpeg client from the transcode config section.
func New(cfg config.Transcode, opts ...Option) (*Client, error) {
	binary := strings.TrimSpace(cfg.FFmpegBinary)
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	client := &Client{
		binary:       binary,
		timeout:      time.Duration(cfg.Timeout) * time.Second,
		audioBitrate: cfg.AudioBitrate,
		videoPreset:  cfg.VideoPreset,
		videoCRF:     cfg.VideoCRF,
		exec:         execx.New(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Convert runs ffmpeg and returns the produced file path. On timeout the
// process group is killed and the error carries the timeout marker; any
// other non-zero exit is a transcode failure with the stderr tail attached.
func (c *Client) Convert(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Input) == "" {
		return "", services.Wrap(services.ErrTranscode, stage, string(req.Operation), "input file required", nil)
	}
	if strings.TrimSpace(req.OutputDir) == "" {
		return "", services.Wrap(services.ErrTranscode, stage, string(req.Operation), "output directory required", nil)
	}

	output := filepath.Join(req.OutputDir, "output"+req.Operation.OutputExt())
	args := c.buildArgs(req, output)

	result, err := c.exec.Run(ctx, execx.Command{
		Binary:  c.binary,
		Args:    args,
		Timeout: c.timeout,
		OnStdout: func(line string) {
			if req.Progress == nil || req.DurationSecs <= 0 {
				return
			}
			if seconds, ok := parseOutTime(line); ok {
				percent := seconds / float64(req.DurationSecs) * 100
				if percent > 100 {
					percent = 100
				}
				req.Progress(percent)
			}
		},
	})
	if err != nil {
		if result.TimedOut {
			return "", services.Wrap(services.ErrTimeout, stage, string(req.Operation),
				fmt.Sprintf("ffmpeg exceeded %s and was killed", c.timeout), err)
		}
		message := "ffmpeg failed"
		if tail := strings.TrimSpace(result.StderrTail); tail != "" {
			message = fmt.Sprintf("ffmpeg failed: %s", lastLine(tail))
		}
		return "", services.Wrap(services.ErrTranscode, stage, string(req.Operation), message, err)
	}
	return output, nil
}

func (c *Client) buildArgs(req Request, output string) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-nostats",
		"-i", req.Input,
	}

	switch req.Operation {
	case queue.OperationExtractAudio:
		args = append(args,
			"-vn",
			"-c:a", "libmp3lame",
			"-b:a", c.audioBitrate,
		)
	default:
		if req.MaxHeight > 0 {
			// -2 keeps the width even, as libx264 requires.
			args = append(args, "-vf", fmt.Sprintf("scale=-2:'min(%d,ih)'", req.MaxHeight))
		}
		args = append(args,
			"-c:v", "libx264",
			"-preset", c.videoPreset,
			"-crf", strconv.Itoa(c.videoCRF),
			"-c:a", "aac",
			"-movflags", "+faststart",
		)
	}

	args = append(args, "-progress", "pipe:1", output)
	return args
}

// parseOutTime extracts elapsed output seconds from ffmpeg -progress
// key=value lines (out_time_us, with out_time_ms kept for older builds).
func parseOutTime(line string) (float64, bool) {
	trimmed := strings.TrimSpace(line)
	for _, key := range []string{"out_time_us=", "out_time_ms="} {
		if !strings.HasPrefix(trimmed, key) {
			continue
		}
		value, err := strconv.ParseInt(strings.TrimPrefix(trimmed, key), 10, 64)
		if err != nil || value < 0 {
			return 0, false
		}
		return float64(value) / 1e6, true
	}
	return 0, false
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
