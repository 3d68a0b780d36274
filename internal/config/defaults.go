package config

// Default configuration values.
const (
	DefaultStagingDir = "~/.local/share/yoink/staging"
	DefaultLogDir     = "~/.local/share/yoink/logs"
	DefaultAPIBind    = "127.0.0.1:7575"

	DefaultTelegramAPIBaseURL = "https://api.telegram.org"
	DefaultMaxUploadMiB       = 50

	DefaultFetchBinary    = "yt-dlp"
	DefaultFetchTimeout   = 300
	DefaultFetchRetries   = 2
	DefaultMaxVideoHeight = 720

	DefaultFFmpegBinary  = "ffmpeg"
	DefaultFFprobeBinary = "ffprobe"
	// Transcode timeout in seconds. On expiry the ffmpeg process group is
	// killed and the job fails with a timeout error.
	DefaultTranscodeTimeout = 120
	DefaultAudioBitrate     = "192k"
	DefaultVideoPreset      = "veryfast"
	DefaultVideoCRF         = 23

	DefaultNtfyRequestTimeout = 10

	DefaultLanes                   = 1
	DefaultQueuePollInterval       = 2
	DefaultErrorRetryInterval      = 30
	DefaultHeartbeatInterval       = 10
	DefaultHeartbeatTimeout        = 90
	DefaultDeliveryAttempts        = 3
	DefaultCompletedRetentionHours = 24
	DefaultMaintenanceSchedule     = "@hourly"

	DefaultLogFormat = "console"
	DefaultLogLevel  = "info"
)

// Default returns a Config populated with default values. Paths are not yet
// expanded; Load and tests call normalize for that.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: DefaultStagingDir,
			LogDir:     DefaultLogDir,
			APIBind:    DefaultAPIBind,
		},
		Telegram: Telegram{
			APIBaseURL:   DefaultTelegramAPIBaseURL,
			MaxUploadMiB: DefaultMaxUploadMiB,
		},
		Fetch: Fetch{
			Binary:         DefaultFetchBinary,
			Timeout:        DefaultFetchTimeout,
			Retries:        DefaultFetchRetries,
			MaxVideoHeight: DefaultMaxVideoHeight,
		},
		Transcode: Transcode{
			FFmpegBinary:  DefaultFFmpegBinary,
			FFprobeBinary: DefaultFFprobeBinary,
			Timeout:       DefaultTranscodeTimeout,
			AudioBitrate:  DefaultAudioBitrate,
			VideoPreset:   DefaultVideoPreset,
			VideoCRF:      DefaultVideoCRF,
		},
		Notifications: Notifications{
			RequestTimeout: DefaultNtfyRequestTimeout,
			Completions:    true,
			Errors:         true,
		},
		Workflow: Workflow{
			Lanes:                   DefaultLanes,
			QueuePollInterval:       DefaultQueuePollInterval,
			ErrorRetryInterval:      DefaultErrorRetryInterval,
			HeartbeatInterval:       DefaultHeartbeatInterval,
			HeartbeatTimeout:        DefaultHeartbeatTimeout,
			DeliveryAttempts:        DefaultDeliveryAttempts,
			CompletedRetentionHours: DefaultCompletedRetentionHours,
			MaintenanceSchedule:     DefaultMaintenanceSchedule,
		},
		Logging: Logging{
			Format: DefaultLogFormat,
			Level:  DefaultLogLevel,
		},
	}
}
