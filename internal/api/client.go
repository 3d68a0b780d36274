package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client provides HTTP access to a running daemon's admin API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient constructs an admin API client for the given bind address.
func NewClient(bind, token string) *Client {
	base := strings.TrimSpace(bind)
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		token:   strings.TrimSpace(token),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.baseURL, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("daemon returned %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Ping probes the daemon's keep-alive endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/ping", nil, nil)
}

// Status retrieves aggregated daemon status.
func (c *Client) Status(ctx context.Context) (*DaemonStatus, error) {
	var status DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// QueueList returns jobs, optionally filtered by status values.
func (c *Client) QueueList(ctx context.Context, statuses ...string) ([]MediaJob, error) {
	path := "/api/queue"
	if len(statuses) > 0 {
		params := make([]string, 0, len(statuses))
		for _, status := range statuses {
			if trimmed := strings.TrimSpace(status); trimmed != "" {
				params = append(params, "status="+trimmed)
			}
		}
		if len(params) > 0 {
			path += "?" + strings.Join(params, "&")
		}
	}
	var resp QueueListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// QueueJob fetches a single job by id.
func (c *Client) QueueJob(ctx context.Context, id int64) (*MediaJob, error) {
	var resp QueueJobResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/queue/%d", id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Job, nil
}

// QueueRetry resets failed jobs back to pending. Empty ids retries all
// failed jobs.
func (c *Client) QueueRetry(ctx context.Context, ids []int64) (int64, error) {
	payload := map[string][]int64{"ids": ids}
	var resp QueueActionResponse
	if err := c.do(ctx, http.MethodPost, "/api/queue/retry", payload, &resp); err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

// QueueRemove deletes a single job by id.
func (c *Client) QueueRemove(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/queue/%d", id), nil, nil)
}

// QueueClear removes jobs in bulk. Scope is "completed", "failed", or "all".
func (c *Client) QueueClear(ctx context.Context, scope string) (int64, error) {
	var resp QueueActionResponse
	if err := c.do(ctx, http.MethodPost, "/api/queue/clear?scope="+strings.TrimSpace(scope), nil, &resp); err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

// QueueHealth runs queue database diagnostics.
func (c *Client) QueueHealth(ctx context.Context) (*QueueHealthResponse, error) {
	var resp QueueHealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/queue/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
