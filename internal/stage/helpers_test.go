package stage_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"yoink/internal/queue"
	"yoink/internal/services"
	"yoink/internal/stage"
)

func TestRequireFetchedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "source.webm")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	job := &queue.Job{FetchedFile: path}
	got, err := stage.RequireFetchedFile(job)
	if err != nil {
		t.Fatalf("RequireFetchedFile: %v", err)
	}
	if got != path {
		t.Errorf("path = %q, want %q", got, path)
	}
}

func TestRequireFetchedFileMissing(t *testing.T) {
	cases := map[string]*queue.Job{
		"empty":   {},
		"deleted": {FetchedFile: filepath.Join(t.TempDir(), "gone.webm")},
	}
	for name, job := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := stage.RequireFetchedFile(job); !errors.Is(err, services.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestRequireWorkDir(t *testing.T) {
	dir := t.TempDir()
	job := &queue.Job{WorkDir: dir}
	got, err := stage.RequireWorkDir(job)
	if err != nil {
		t.Fatalf("RequireWorkDir: %v", err)
	}
	if got != dir {
		t.Errorf("dir = %q, want %q", got, dir)
	}

	if _, err := stage.RequireWorkDir(&queue.Job{}); !errors.Is(err, services.ErrValidation) {
		t.Errorf("empty work dir err = %v, want ErrValidation", err)
	}
}
