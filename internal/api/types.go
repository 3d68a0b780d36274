package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// MediaJob describes a queue entry in a transport-friendly format.
type MediaJob struct {
	ID              int64         `json:"id"`
	ChatID          int64         `json:"chatId"`
	VideoID         string        `json:"videoId"`
	SourceURL       string        `json:"sourceUrl"`
	Operation       string        `json:"operation"`
	Title           string        `json:"title,omitempty"`
	DurationSecs    int64         `json:"durationSecs,omitempty"`
	Width           int64         `json:"width,omitempty"`
	Height          int64         `json:"height,omitempty"`
	Status          string        `json:"status"`
	Progress        QueueProgress `json:"progress"`
	ErrorMessage    string        `json:"errorMessage,omitempty"`
	WorkDir         string        `json:"workDir,omitempty"`
	FetchedFile     string        `json:"fetchedFile,omitempty"`
	OutputFile      string        `json:"outputFile,omitempty"`
	ArtifactURL     string        `json:"artifactUrl,omitempty"`
	Attempts        int64         `json:"attempts"`
	CreatedAt       string        `json:"createdAt,omitempty"`
	UpdatedAt       string        `json:"updatedAt,omitempty"`
	StatusMessageID int64         `json:"statusMessageId,omitempty"`
}

// QueueProgress captures stage progress information for a queue entry.
type QueueProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	QueueStats  map[string]int `json:"queueStats"`
	LastError   string         `json:"lastError,omitempty"`
	LastJob     *MediaJob      `json:"lastJob,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	QueueDBPath  string             `json:"queueDbPath"`
	LockFilePath string             `json:"lockFilePath"`
	WebhookPath  string             `json:"webhookPath,omitempty"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// QueueStatsResponse provides a normalized queue stats payload.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// QueueListResponse wraps a collection of jobs for API responses.
type QueueListResponse struct {
	Jobs []MediaJob `json:"jobs"`
}

// QueueJobResponse wraps a single job.
type QueueJobResponse struct {
	Job MediaJob `json:"job"`
}

// QueueActionResponse reports how many jobs a mutation touched.
type QueueActionResponse struct {
	Updated int64 `json:"updated"`
}

// QueueHealthResponse carries database diagnostics.
type QueueHealthResponse struct {
	DBPath           string `json:"dbPath"`
	DatabaseExists   bool   `json:"databaseExists"`
	DatabaseReadable bool   `json:"databaseReadable"`
	TableExists      bool   `json:"tableExists"`
	IntegrityCheck   bool   `json:"integrityCheck"`
	TotalJobs        int    `json:"totalJobs"`
	Error            string `json:"error,omitempty"`
}
