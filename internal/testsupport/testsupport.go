// Package testsupport provides shared helpers for package tests: temp-dir
// configurations with fast timing knobs and pre-opened queue stores.
package testsupport

import (
	"path/filepath"
	"testing"

	"yoink/internal/config"
	"yoink/internal/queue"
)

// NewConfig returns a config rooted in the test's temp directory with
// timing intervals tightened for fast tests.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Telegram.Token = "123456:testtoken"
	cfg.Workflow.QueuePollInterval = 0
	cfg.Workflow.ErrorRetryInterval = 0
	cfg.Workflow.HeartbeatInterval = 1
	cfg.Workflow.HeartbeatTimeout = 5
	return &cfg
}

// MustOpenStore opens the queue database for cfg and closes it when the
// test finishes.
func MustOpenStore(t *testing.T, cfg *config.Config) *queue.Store {
	t.Helper()
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open queue store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
