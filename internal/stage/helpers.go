package stage

import (
	"errors"
	"os"
	"strings"

	"yoink/internal/queue"
	"yoink/internal/services"
)

// RequireFetchedFile verifies that an earlier stage left a readable fetched
// file on the job. On failure it returns a services.ErrValidation suitable
// for stage Execute methods.
func RequireFetchedFile(job *queue.Job) (string, error) {
	path := strings.TrimSpace(job.FetchedFile)
	if path == "" {
		return "", services.Wrap(
			services.ErrValidation, "stage", "require fetched file",
			"Job has no fetched file; rerun the fetch stage", nil)
	}
	if _, err := os.Stat(path); err != nil {
		return "", services.Wrap(
			services.ErrValidation, "stage", "require fetched file",
			"Fetched file is missing on disk; rerun the fetch stage", err)
	}
	return path, nil
}

// RequireWorkDir verifies that the job owns a scratch directory.
func RequireWorkDir(job *queue.Job) (string, error) {
	dir := strings.TrimSpace(job.WorkDir)
	if dir == "" {
		return "", services.Wrap(
			services.ErrValidation, "stage", "require work dir",
			"Job has no working directory assigned", nil)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", services.Wrap(
			services.ErrValidation, "stage", "require work dir",
			"Job working directory is missing", err)
	}
	if !info.IsDir() {
		return "", services.Wrap(
			services.ErrValidation, "stage", "require work dir",
			"Job working directory path is not a directory",
			errors.New(dir))
	}
	return dir, nil
}
