package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for problems the daemon cannot work
// around. Called automatically by Load after normalization.
func (c *Config) Validate() error {
	if err := c.Paths.validate(); err != nil {
		return err
	}
	if err := c.Telegram.validate(); err != nil {
		return err
	}
	if err := c.Fetch.validate(); err != nil {
		return err
	}
	if err := c.Transcode.validate(); err != nil {
		return err
	}
	if err := c.Storage.validate(); err != nil {
		return err
	}
	if err := c.Workflow.validate(); err != nil {
		return err
	}
	return c.Logging.validate()
}

func (p *Paths) validate() error {
	if p.StagingDir == "" {
		return fmt.Errorf("paths.staging_dir is required")
	}
	if p.LogDir == "" {
		return fmt.Errorf("paths.log_dir is required")
	}
	if p.APIBind == "" {
		return fmt.Errorf("paths.api_bind is required")
	}
	return nil
}

func (t *Telegram) validate() error {
	if t.Token == "" {
		return fmt.Errorf("telegram.token is required. Set TELEGRAM_TOKEN env var or edit the config file (create with 'yoink config init')")
	}
	if strings.ContainsAny(t.Token, " \t/") {
		return fmt.Errorf("telegram.token contains invalid characters")
	}
	if base := t.WebhookBaseURL; base != "" && !strings.HasPrefix(base, "https://") {
		return fmt.Errorf("telegram.webhook_base_url must be an https URL, got %q", base)
	}
	return nil
}

func (f *Fetch) validate() error {
	if f.Binary == "" {
		return fmt.Errorf("fetch.binary is required")
	}
	return nil
}

func (t *Transcode) validate() error {
	if t.FFmpegBinary == "" {
		return fmt.Errorf("transcode.ffmpeg_binary is required")
	}
	if t.FFprobeBinary == "" {
		return fmt.Errorf("transcode.ffprobe_binary is required")
	}
	if t.VideoCRF < 0 || t.VideoCRF > 51 {
		return fmt.Errorf("transcode.video_crf must be between 0 and 51, got %d", t.VideoCRF)
	}
	return nil
}

func (s *Storage) validate() error {
	if !s.Enabled {
		return nil
	}
	if s.Endpoint == "" {
		return fmt.Errorf("storage.endpoint is required when storage is enabled")
	}
	if s.AccessKey == "" || s.SecretKey == "" {
		return fmt.Errorf("storage.access_key and storage.secret_key are required when storage is enabled")
	}
	if s.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage is enabled")
	}
	return nil
}

func (w *Workflow) validate() error {
	if w.HeartbeatTimeout <= w.HeartbeatInterval {
		return fmt.Errorf("workflow.heartbeat_timeout (%d) must exceed workflow.heartbeat_interval (%d)", w.HeartbeatTimeout, w.HeartbeatInterval)
	}
	return nil
}

func (l *Logging) validate() error {
	switch l.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", l.Format)
	}
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", l.Level)
	}
	return nil
}
