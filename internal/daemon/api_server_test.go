package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"yoink/internal/api"
	"yoink/internal/logging"
	"yoink/internal/queue"
)

type queueStoreStub struct {
	jobs    []*queue.Job
	retried []int64
	removed []int64
	cleared string
}

func (s *queueStoreStub) List(context.Context, ...queue.Status) ([]*queue.Job, error) {
	return s.jobs, nil
}

func (s *queueStoreStub) Stats(context.Context) (map[queue.Status]int, error) {
	return map[queue.Status]int{queue.StatusPending: len(s.jobs)}, nil
}

func (s *queueStoreStub) GetByID(_ context.Context, id int64) (*queue.Job, error) {
	for _, job := range s.jobs {
		if job.ID == id {
			return job, nil
		}
	}
	return nil, nil
}

func (s *queueStoreStub) RetryFailed(_ context.Context, ids ...int64) (int64, error) {
	s.retried = ids
	return int64(len(ids)), nil
}

func (s *queueStoreStub) Remove(_ context.Context, id int64) (bool, error) {
	for i, job := range s.jobs {
		if job.ID == id {
			s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
			s.removed = append(s.removed, id)
			return true, nil
		}
	}
	return false, nil
}

func (s *queueStoreStub) ClearCompleted(context.Context) (int64, error) {
	s.cleared = "completed"
	return 3, nil
}

func (s *queueStoreStub) ClearFailed(context.Context) (int64, error) {
	s.cleared = "failed"
	return 1, nil
}

func (s *queueStoreStub) Clear(context.Context) (int64, error) {
	s.cleared = "all"
	return 5, nil
}

func (s *queueStoreStub) CheckHealth(context.Context) (queue.DatabaseHealth, error) {
	return queue.DatabaseHealth{IntegrityCheck: true, TotalJobs: len(s.jobs)}, nil
}

func newTestAPIServer(store *queueStoreStub) *apiServer {
	return &apiServer{
		logger:   logging.NewNop(),
		queueSvc: api.NewQueueService(store),
	}
}

func TestAPIServerHandleQueue(t *testing.T) {
	store := &queueStoreStub{jobs: []*queue.Job{{ID: 1, VideoID: "dQw4w9WgXcQ", Status: queue.StatusPending}}}
	srv := newTestAPIServer(store)

	req := httptest.NewRequest(http.MethodGet, "/api/queue", nil)
	w := httptest.NewRecorder()
	srv.handleQueue(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var resp api.QueueListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(resp.Jobs))
	}
	if resp.Jobs[0].VideoID != "dQw4w9WgXcQ" {
		t.Fatalf("unexpected video id: %q", resp.Jobs[0].VideoID)
	}
}

func TestAPIServerHandleQueueRejectsUnknownStatus(t *testing.T) {
	srv := newTestAPIServer(&queueStoreStub{})

	req := httptest.NewRequest(http.MethodGet, "/api/queue?status=bogus", nil)
	w := httptest.NewRecorder()
	srv.handleQueue(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", w.Code)
	}
}

func TestAPIServerHandleQueueJob(t *testing.T) {
	store := &queueStoreStub{jobs: []*queue.Job{{ID: 7, VideoID: "abc123defgh", Status: queue.StatusFailed}}}
	srv := newTestAPIServer(store)

	req := httptest.NewRequest(http.MethodGet, "/api/queue/7", nil)
	w := httptest.NewRecorder()
	srv.handleQueueJob(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var resp api.QueueJobResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Job.ID != 7 || resp.Job.Status != "failed" {
		t.Fatalf("unexpected job: %+v", resp.Job)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/queue/999", nil)
	w = httptest.NewRecorder()
	srv.handleQueueJob(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing job, got %d", w.Code)
	}
}

func TestAPIServerHandleQueueJobDelete(t *testing.T) {
	store := &queueStoreStub{jobs: []*queue.Job{{ID: 7, VideoID: "abc123defgh", Status: queue.StatusFailed}}}
	srv := newTestAPIServer(store)

	req := httptest.NewRequest(http.MethodDelete, "/api/queue/7", nil)
	w := httptest.NewRecorder()
	srv.handleQueueJob(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	if len(store.removed) != 1 || store.removed[0] != 7 {
		t.Fatalf("unexpected removed ids: %v", store.removed)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/queue/7", nil)
	w = httptest.NewRecorder()
	srv.handleQueueJob(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for already-removed job, got %d", w.Code)
	}
}

func TestAPIServerHandleQueueRetry(t *testing.T) {
	store := &queueStoreStub{}
	srv := newTestAPIServer(store)

	req := httptest.NewRequest(http.MethodPost, "/api/queue/retry", strings.NewReader(`{"ids":[4,8]}`))
	w := httptest.NewRecorder()
	srv.handleQueueRetry(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var resp api.QueueActionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Updated != 2 {
		t.Fatalf("expected 2 updated, got %d", resp.Updated)
	}
	if len(store.retried) != 2 || store.retried[0] != 4 {
		t.Fatalf("unexpected retried ids: %v", store.retried)
	}
}

func TestAPIServerHandleQueueClearScopes(t *testing.T) {
	store := &queueStoreStub{}
	srv := newTestAPIServer(store)

	req := httptest.NewRequest(http.MethodPost, "/api/queue/clear?scope=failed", nil)
	w := httptest.NewRecorder()
	srv.handleQueueClear(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	if store.cleared != "failed" {
		t.Fatalf("expected failed scope, got %q", store.cleared)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/queue/clear?scope=all", nil)
	w = httptest.NewRecorder()
	srv.handleQueueClear(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK for all scope, got %d", w.Code)
	}
	if store.cleared != "all" {
		t.Fatalf("expected all scope, got %q", store.cleared)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/queue/clear?scope=pending", nil)
	w = httptest.NewRecorder()
	srv.handleQueueClear(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown scope, got %d", w.Code)
	}
}

func TestAPIServerMethodGuards(t *testing.T) {
	srv := newTestAPIServer(&queueStoreStub{})

	req := httptest.NewRequest(http.MethodPost, "/api/queue", nil)
	w := httptest.NewRecorder()
	srv.handleQueue(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for POST queue list, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/queue/retry", nil)
	w = httptest.NewRecorder()
	srv.handleQueueRetry(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET retry, got %d", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	var called bool
	next := func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}

	t.Run("empty token passes through", func(t *testing.T) {
		called = false
		handler := authMiddleware("", next)
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
		if !called || w.Code != http.StatusOK {
			t.Fatalf("expected pass-through, called=%v code=%d", called, w.Code)
		}
	})

	t.Run("valid token", func(t *testing.T) {
		called = false
		handler := authMiddleware("secret", next)
		req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
		req.Header.Set("Authorization", "Bearer secret")
		w := httptest.NewRecorder()
		handler(w, req)
		if !called || w.Code != http.StatusOK {
			t.Fatalf("expected success, called=%v code=%d", called, w.Code)
		}
	})

	t.Run("wrong token rejected", func(t *testing.T) {
		called = false
		handler := authMiddleware("secret", next)
		req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
		req.Header.Set("Authorization", "Bearer nope")
		w := httptest.NewRecorder()
		handler(w, req)
		if called || w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, called=%v code=%d", called, w.Code)
		}
	})

	t.Run("missing header rejected", func(t *testing.T) {
		called = false
		handler := authMiddleware("secret", next)
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
		if called || w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, called=%v code=%d", called, w.Code)
		}
	})
}
