package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a media job. Transitions only move
// forward through the pipeline; a retry resets a failed job to pending as a
// fresh attempt.
type Status string

const (
	StatusPending     Status = "pending"
	StatusFetching    Status = "fetching"
	StatusFetched     Status = "fetched"
	StatusTranscoding Status = "transcoding"
	StatusTranscoded  Status = "transcoded"
	StatusDelivering  Status = "delivering"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusFetching,
	StatusFetched,
	StatusTranscoding,
	StatusTranscoded,
	StatusDelivering,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusFetching:    {},
	StatusTranscoding: {},
	StatusDelivering:  {},
}

// startToProcessing maps a stage's ready status to its in-flight status.
// Claiming a job moves it across this edge atomically.
var startToProcessing = map[Status]Status{
	StatusPending:    StatusFetching,
	StatusFetched:    StatusTranscoding,
	StatusTranscoded: StatusDelivering,
}

// processingToDone maps an in-flight status to the status a successful
// stage run leaves behind.
var processingToDone = map[Status]Status{
	StatusFetching:    StatusFetched,
	StatusTranscoding: StatusTranscoded,
	StatusDelivering:  StatusCompleted,
}

// StartStatuses returns the statuses a worker may claim work from, in
// pipeline order.
func StartStatuses() []Status {
	return []Status{StatusPending, StatusFetched, StatusTranscoded}
}

// ProcessingStatusFor returns the in-flight status for a claimable status.
func ProcessingStatusFor(start Status) (Status, bool) {
	processing, ok := startToProcessing[start]
	return processing, ok
}

// DoneStatusFor returns the status a successful stage run transitions to.
func DoneStatusFor(processing Status) (Status, bool) {
	done, ok := processingToDone[processing]
	return done, ok
}

// DaemonStopReason is the error message set on jobs interrupted by shutdown.
const DaemonStopReason = "Daemon stopped"

// Operation is the closed set of conversions a job can request.
type Operation string

const (
	// OperationExtractAudio produces an mp3 from the source's audio track.
	OperationExtractAudio Operation = "extract-audio"
	// OperationTranscode produces an h264/aac mp4 capped to the configured
	// height.
	OperationTranscode Operation = "transcode"
)

// ParseOperation converts a string into a known Operation. Unknown values
// are rejected rather than passed through.
func ParseOperation(value string) (Operation, bool) {
	normalized := Operation(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case OperationExtractAudio, OperationTranscode:
		return normalized, true
	default:
		return "", false
	}
}

// OutputExt returns the container extension the operation produces.
func (o Operation) OutputExt() string {
	if o == OperationExtractAudio {
		return ".mp3"
	}
	return ".mp4"
}

// Job represents a media request persisted in SQLite. The service stores
// only the external reference (SourceURL/VideoID), never upstream media;
// fetched and produced files live in the job's scoped WorkDir.
type Job struct {
	ID               int64
	ChatID           int64
	ReplyToMessageID int64
	StatusMessageID  int64
	VideoID          string
	SourceURL        string
	Operation        Operation
	Title            string
	DurationSecs     int64
	Width            int64
	Height           int64
	Status           Status
	WorkDir          string
	FetchedFile      string
	OutputFile       string
	ArtifactURL      string
	ErrorMessage     string
	ProgressStage    string
	ProgressPercent  float64
	ProgressMessage  string
	Attempts         int64
	LastHeartbeat    *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	IntegrityCheck   bool
	TotalJobs        int
	Error            string
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Completed  int
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight stage.
func (j Job) IsProcessing() bool {
	return IsProcessingStatus(j.Status)
}

// IsTerminal reports whether the job finished, successfully or not.
func (j Job) IsTerminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// IsProcessingStatus reports whether a status reflects an in-flight stage.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// SetProgress updates all three progress fields together.
func (j *Job) SetProgress(stage, message string, percent float64) {
	j.ProgressStage = stage
	j.ProgressMessage = message
	j.ProgressPercent = percent
}

// SetFailed marks the job as failed with the given error message and clears
// the heartbeat.
func (j *Job) SetFailed(message string) {
	j.Status = StatusFailed
	j.ErrorMessage = message
	j.ProgressStage = "Failed"
	j.ProgressPercent = 0
	j.ProgressMessage = message
	j.LastHeartbeat = nil
}
