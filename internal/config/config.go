package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and API surface configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
	APIToken   string `toml:"api_token"`
}

// Telegram contains Bot API connection and delivery limits.
type Telegram struct {
	Token          string `toml:"token"`
	APIBaseURL     string `toml:"api_base_url"`
	WebhookBaseURL string `toml:"webhook_base_url"`
	MaxUploadMiB   int    `toml:"max_upload_mib"`
}

// Fetch contains configuration for source media retrieval.
type Fetch struct {
	Binary         string   `toml:"binary"`
	Timeout        int      `toml:"timeout"`
	Retries        int      `toml:"retries"`
	MaxVideoHeight int      `toml:"max_video_height"`
	PlayerClients  []string `toml:"player_clients"`
}

// Transcode contains ffmpeg invocation settings.
type Transcode struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	Timeout       int    `toml:"timeout"`
	AudioBitrate  string `toml:"audio_bitrate"`
	VideoPreset   string `toml:"video_preset"`
	VideoCRF      int    `toml:"video_crf"`
}

// Storage contains S3-compatible object storage settings used for artifacts
// too large to upload to the chat directly.
type Storage struct {
	Enabled       bool   `toml:"enabled"`
	Endpoint      string `toml:"endpoint"`
	AccessKey     string `toml:"access_key"`
	SecretKey     string `toml:"secret_key"`
	Bucket        string `toml:"bucket"`
	UseSSL        bool   `toml:"use_ssl"`
	PublicBaseURL string `toml:"public_base_url"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Completions    bool   `toml:"completions"`
	Errors         bool   `toml:"errors"`
}

// Workflow contains queue timing and retry policy.
type Workflow struct {
	Lanes                   int    `toml:"lanes"`
	QueuePollInterval       int    `toml:"queue_poll_interval"`
	ErrorRetryInterval      int    `toml:"error_retry_interval"`
	HeartbeatInterval       int    `toml:"heartbeat_interval"`
	HeartbeatTimeout        int    `toml:"heartbeat_timeout"`
	DeliveryAttempts        int    `toml:"delivery_attempts"`
	CompletedRetentionHours int    `toml:"completed_retention_hours"`
	MaintenanceSchedule     string `toml:"maintenance_schedule"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for yoink, grouped by
// subsystem: paths, telegram, fetch, transcode, storage, notifications,
// workflow, logging.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Telegram      Telegram      `toml:"telegram"`
	Fetch         Fetch         `toml:"fetch"`
	Transcode     Transcode     `toml:"transcode"`
	Storage       Storage       `toml:"storage"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/yoink/config.toml")
}

// Load locates, parses, and validates a configuration file. It returns the
// parsed config, the resolved path, and whether a file existed there. When
// no file exists the defaults are validated and returned.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	projectPath, err := filepath.Abs("yoink.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon needs at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// MaxUploadBytes returns the chat upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Telegram.MaxUploadMiB) * 1024 * 1024
}

// WebhookPath returns the secret webhook path derived from the bot token.
func (c *Config) WebhookPath() string {
	return "/webhook/" + strings.TrimSpace(c.Telegram.Token)
}

// WebhookURL returns the externally visible webhook URL, or empty when no
// webhook base is configured.
func (c *Config) WebhookURL() string {
	base := strings.TrimRight(strings.TrimSpace(c.Telegram.WebhookBaseURL), "/")
	if base == "" {
		return ""
	}
	return base + c.WebhookPath()
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the config path expansion rules (~ and relative paths)
// for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the embedded sample configuration file to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
