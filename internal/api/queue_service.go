package api

import (
	"context"
	"fmt"

	"yoink/internal/queue"
	"yoink/internal/services"
)

// QueueStore abstracts queue persistence interactions needed by the API.
type QueueStore interface {
	List(ctx context.Context, statuses ...queue.Status) ([]*queue.Job, error)
	Stats(ctx context.Context) (map[queue.Status]int, error)
	GetByID(ctx context.Context, id int64) (*queue.Job, error)
	RetryFailed(ctx context.Context, ids ...int64) (int64, error)
	Remove(ctx context.Context, id int64) (bool, error)
	ClearCompleted(ctx context.Context) (int64, error)
	ClearFailed(ctx context.Context) (int64, error)
	Clear(ctx context.Context) (int64, error)
	CheckHealth(ctx context.Context) (queue.DatabaseHealth, error)
}

// QueueService exposes queue operations returning API DTOs.
type QueueService struct {
	store QueueStore
}

// NewQueueService constructs a QueueService around the provided store.
func NewQueueService(store QueueStore) *QueueService {
	if store == nil {
		return nil
	}
	return &QueueService{store: store}
}

// List returns jobs filtered by status.
func (s *QueueService) List(ctx context.Context, statuses ...queue.Status) ([]MediaJob, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	jobs, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromJobs(jobs), nil
}

// Stats returns queue summary counts keyed by status string.
func (s *QueueService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out, nil
}

// Describe fetches a single job.
func (s *QueueService) Describe(ctx context.Context, id int64) (*MediaJob, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	job, err := s.store.GetByID(ctx, id)
	if err != nil || job == nil {
		return nil, err
	}
	dto := FromJob(job)
	return &dto, nil
}

// Retry resets failed jobs (optionally a subset) back to pending.
func (s *QueueService) Retry(ctx context.Context, ids []int64) (int64, error) {
	if s == nil || s.store == nil {
		return 0, nil
	}
	return s.store.RetryFailed(ctx, ids...)
}

// Remove deletes a single job outright, whatever its status. A missing id
// reports services.ErrNotFound so transports can map it to 404.
func (s *QueueService) Remove(ctx context.Context, id int64) error {
	if s == nil || s.store == nil {
		return nil
	}
	removed, err := s.store.Remove(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("job %d: %w", id, services.ErrNotFound)
	}
	return nil
}

// ClearCompleted removes completed jobs.
func (s *QueueService) ClearCompleted(ctx context.Context) (int64, error) {
	if s == nil || s.store == nil {
		return 0, nil
	}
	return s.store.ClearCompleted(ctx)
}

// ClearFailed removes failed jobs.
func (s *QueueService) ClearFailed(ctx context.Context) (int64, error) {
	if s == nil || s.store == nil {
		return 0, nil
	}
	return s.store.ClearFailed(ctx)
}

// Clear removes every job regardless of status.
func (s *QueueService) Clear(ctx context.Context) (int64, error) {
	if s == nil || s.store == nil {
		return 0, nil
	}
	return s.store.Clear(ctx)
}

// Health runs queue database diagnostics.
func (s *QueueService) Health(ctx context.Context) (QueueHealthResponse, error) {
	if s == nil || s.store == nil {
		return QueueHealthResponse{}, nil
	}
	health, err := s.store.CheckHealth(ctx)
	if err != nil {
		return QueueHealthResponse{}, err
	}
	return FromDatabaseHealth(health), nil
}
