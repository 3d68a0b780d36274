package api

import (
	"slices"

	"yoink/internal/deps"
	"yoink/internal/queue"
	"yoink/internal/workflow"
)

// FromJob converts a queue record to its API representation.
func FromJob(job *queue.Job) MediaJob {
	if job == nil {
		return MediaJob{}
	}

	dto := MediaJob{
		ID:        job.ID,
		ChatID:    job.ChatID,
		VideoID:   job.VideoID,
		SourceURL: job.SourceURL,
		Operation: string(job.Operation),
		Title:     job.Title,
		Status:    string(job.Status),
		Progress: QueueProgress{
			Stage:   job.ProgressStage,
			Percent: job.ProgressPercent,
			Message: job.ProgressMessage,
		},
		DurationSecs:    job.DurationSecs,
		Width:           job.Width,
		Height:          job.Height,
		ErrorMessage:    job.ErrorMessage,
		WorkDir:         job.WorkDir,
		FetchedFile:     job.FetchedFile,
		OutputFile:      job.OutputFile,
		ArtifactURL:     job.ArtifactURL,
		Attempts:        job.Attempts,
		StatusMessageID: job.StatusMessageID,
	}
	if !job.CreatedAt.IsZero() {
		dto.CreatedAt = job.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !job.UpdatedAt.IsZero() {
		dto.UpdatedAt = job.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromJobs converts a slice of queue records into API DTOs.
func FromJobs(jobs []*queue.Job) []MediaJob {
	if len(jobs) == 0 {
		return nil
	}
	out := make([]MediaJob, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}

// FromStatusSummary converts a workflow status summary to its API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	healthNames := make([]string, 0, len(summary.StageHealth))
	for name := range summary.StageHealth {
		healthNames = append(healthNames, name)
	}
	slices.Sort(healthNames)

	health := make([]StageHealth, 0, len(healthNames))
	for _, name := range healthNames {
		h := summary.StageHealth[name]
		health = append(health, StageHealth{
			Name:   name,
			Ready:  h.Ready,
			Detail: h.Detail,
		})
	}

	stats := make(map[string]int, len(summary.QueueStats))
	for status, count := range summary.QueueStats {
		stats[string(status)] = count
	}

	wf := WorkflowStatus{
		Running:     summary.Running,
		QueueStats:  stats,
		StageHealth: health,
	}
	if summary.LastError != "" {
		wf.LastError = summary.LastError
	}
	if summary.LastJob != nil {
		last := FromJob(summary.LastJob)
		wf.LastJob = &last
	}
	return wf
}

// FromDependencyStatuses converts dependency checks to API payloads.
func FromDependencyStatuses(statuses []deps.Status) []DependencyStatus {
	if len(statuses) == 0 {
		return nil
	}
	out := make([]DependencyStatus, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, DependencyStatus{
			Name:        status.Name,
			Command:     status.Command,
			Description: status.Description,
			Optional:    status.Optional,
			Available:   status.Available,
			Detail:      status.Detail,
		})
	}
	return out
}

// FromDatabaseHealth converts queue diagnostics to the API payload.
func FromDatabaseHealth(health queue.DatabaseHealth) QueueHealthResponse {
	return QueueHealthResponse{
		DBPath:           health.DBPath,
		DatabaseExists:   health.DatabaseExists,
		DatabaseReadable: health.DatabaseReadable,
		TableExists:      health.TableExists,
		IntegrityCheck:   health.IntegrityCheck,
		TotalJobs:        health.TotalJobs,
		Error:            health.Error,
	}
}
