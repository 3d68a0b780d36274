// Package workspace manages the per-job scoped directories under the
// staging root. Every job gets a private uuid-named directory when it
// leaves pending and the directory is removed on every terminal path, so
// concurrent jobs can never collide and no partial files survive a
// completed, failed, or retried job.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"yoink/internal/logging"
)

const dirPrefix = "job-"

// Create makes a fresh scoped directory for a job under root and returns
// its path.
func Create(root string, jobID int64) (string, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return "", fmt.Errorf("staging root is empty")
	}
	name := fmt.Sprintf("%s%d-%s", dirPrefix, jobID, uuid.NewString())
	path := filepath.Join(root, name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", fmt.Errorf("create workspace: %w", err)
	}
	return path, nil
}

// Remove deletes a job workspace. A missing directory is not an error; the
// release must be idempotent because it runs on every exit path.
func Remove(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove workspace: %w", err)
	}
	return nil
}

// CleanupResult contains the outcome of a stale workspace sweep.
type CleanupResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes job directories older than maxAge. Directories
// belonging to live jobs keep a fresh mtime through stage writes, so only
// leftovers from crashed runs match.
func CleanStale(root string, maxAge time.Duration, logger *slog.Logger) CleanupResult {
	result := CleanupResult{}

	root = strings.TrimSpace(root)
	if root == "" {
		return result
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: root, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), dirPrefix) {
			continue
		}
		dirPath := filepath.Join(root, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			if logger != nil {
				logger.Warn("failed to remove stale workspace",
					logging.String("path", dirPath),
					logging.Error(err),
				)
			}
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		if logger != nil {
			logger.Info("removed stale workspace",
				logging.String("path", dirPath),
				logging.Duration("age", time.Since(info.ModTime())),
			)
		}
	}
	return result
}
