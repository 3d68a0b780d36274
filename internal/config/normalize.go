package config

import (
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.Paths.normalize(); err != nil {
		return err
	}
	c.Telegram.normalize()
	c.Fetch.normalize()
	c.Transcode.normalize()
	c.Storage.normalize()
	c.Notifications.normalize()
	c.Workflow.normalize()
	c.Logging.normalize()
	return nil
}

func (p *Paths) normalize() error {
	var err error
	if p.StagingDir, err = expandPath(p.StagingDir); err != nil {
		return err
	}
	if p.LogDir, err = expandPath(p.LogDir); err != nil {
		return err
	}
	p.APIBind = strings.TrimSpace(p.APIBind)
	p.APIToken = strings.TrimSpace(p.APIToken)
	return nil
}

func (t *Telegram) normalize() {
	t.Token = strings.TrimSpace(t.Token)
	// Environment takes precedence so the token can stay out of the
	// config file in shared deployments.
	if env := strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")); env != "" {
		t.Token = env
	}
	t.APIBaseURL = strings.TrimRight(strings.TrimSpace(t.APIBaseURL), "/")
	if t.APIBaseURL == "" {
		t.APIBaseURL = DefaultTelegramAPIBaseURL
	}
	t.WebhookBaseURL = strings.TrimSpace(t.WebhookBaseURL)
	if t.MaxUploadMiB <= 0 {
		t.MaxUploadMiB = DefaultMaxUploadMiB
	}
}

func (f *Fetch) normalize() {
	f.Binary = strings.TrimSpace(f.Binary)
	if f.Binary == "" {
		f.Binary = DefaultFetchBinary
	}
	if f.Timeout <= 0 {
		f.Timeout = DefaultFetchTimeout
	}
	if f.Retries < 0 {
		f.Retries = 0
	}
	if f.MaxVideoHeight <= 0 {
		f.MaxVideoHeight = DefaultMaxVideoHeight
	}
	clients := f.PlayerClients[:0]
	for _, client := range f.PlayerClients {
		if trimmed := strings.TrimSpace(client); trimmed != "" {
			clients = append(clients, trimmed)
		}
	}
	f.PlayerClients = clients
}

func (t *Transcode) normalize() {
	t.FFmpegBinary = strings.TrimSpace(t.FFmpegBinary)
	if t.FFmpegBinary == "" {
		t.FFmpegBinary = DefaultFFmpegBinary
	}
	t.FFprobeBinary = strings.TrimSpace(t.FFprobeBinary)
	if t.FFprobeBinary == "" {
		t.FFprobeBinary = DefaultFFprobeBinary
	}
	if t.Timeout <= 0 {
		t.Timeout = DefaultTranscodeTimeout
	}
	t.AudioBitrate = strings.TrimSpace(t.AudioBitrate)
	if t.AudioBitrate == "" {
		t.AudioBitrate = DefaultAudioBitrate
	}
	t.VideoPreset = strings.TrimSpace(t.VideoPreset)
	if t.VideoPreset == "" {
		t.VideoPreset = DefaultVideoPreset
	}
	if t.VideoCRF <= 0 {
		t.VideoCRF = DefaultVideoCRF
	}
}

func (s *Storage) normalize() {
	s.Endpoint = strings.TrimSpace(s.Endpoint)
	s.AccessKey = strings.TrimSpace(s.AccessKey)
	s.SecretKey = strings.TrimSpace(s.SecretKey)
	s.Bucket = strings.TrimSpace(s.Bucket)
	s.PublicBaseURL = strings.TrimRight(strings.TrimSpace(s.PublicBaseURL), "/")
}

func (n *Notifications) normalize() {
	n.NtfyTopic = strings.TrimSpace(n.NtfyTopic)
	if n.RequestTimeout <= 0 {
		n.RequestTimeout = DefaultNtfyRequestTimeout
	}
}

func (w *Workflow) normalize() {
	if w.Lanes <= 0 {
		w.Lanes = DefaultLanes
	}
	if w.QueuePollInterval <= 0 {
		w.QueuePollInterval = DefaultQueuePollInterval
	}
	if w.ErrorRetryInterval <= 0 {
		w.ErrorRetryInterval = DefaultErrorRetryInterval
	}
	if w.HeartbeatInterval <= 0 {
		w.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if w.HeartbeatTimeout <= 0 {
		w.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if w.DeliveryAttempts <= 0 {
		w.DeliveryAttempts = DefaultDeliveryAttempts
	}
	if w.CompletedRetentionHours < 0 {
		w.CompletedRetentionHours = 0
	}
	w.MaintenanceSchedule = strings.TrimSpace(w.MaintenanceSchedule)
	if w.MaintenanceSchedule == "" {
		w.MaintenanceSchedule = DefaultMaintenanceSchedule
	}
}

func (l *Logging) normalize() {
	l.Format = strings.ToLower(strings.TrimSpace(l.Format))
	if l.Format == "" {
		l.Format = DefaultLogFormat
	}
	l.Level = strings.ToLower(strings.TrimSpace(l.Level))
	if l.Level == "" {
		l.Level = DefaultLogLevel
	}
}
