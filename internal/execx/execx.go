// Package execx runs external media tools as supervised subprocesses. Every
// child runs in its own process group so a timeout or cancellation kills
// the whole tree; ffmpeg and yt-dlp both spawn helpers that a plain
// Process.Kill would orphan.
package execx

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// stderrTailLines bounds how much stderr is retained for error reporting.
const stderrTailLines = 20

// Command describes one subprocess invocation.
type Command struct {
	Binary string
	Args   []string
	Dir    string
	// Timeout bounds the run; zero means the caller's context governs.
	Timeout time.Duration
	// OnStdout and OnStderr receive output lines as they arrive. Either
	// may be nil.
	OnStdout func(string)
	OnStderr func(string)
}

// Result reports how a subprocess finished.
type Result struct {
	ExitCode   int
	TimedOut   bool
	Duration   time.Duration
	StderrTail string
}

// Executor abstracts subprocess execution for testability.
type Executor interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// New returns the production executor.
func New() Executor {
	return processExecutor{}
}

type processExecutor struct{}

func (processExecutor) Run(ctx context.Context, spec Command) (Result, error) {
	if strings.TrimSpace(spec.Binary) == "" {
		return Result{}, errors.New("binary required")
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if spec.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := exec.Command(spec.Binary, spec.Args...) //nolint:gosec
	cmd.Dir = spec.Dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, fmt.Errorf("stderr pipe: %w", err)
	}

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("start %s: %w", spec.Binary, err)
	}

	// Kill the process group, not just the leader, when the deadline
	// passes or the caller cancels.
	killDone := make(chan struct{})
	go func() {
		select {
		case <-runCtx.Done():
			_ = unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
		case <-killDone:
		}
	}()

	tail := newTailBuffer(stderrTailLines)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if spec.OnStdout != nil {
				spec.OnStdout(scanner.Text())
			}
		}
	}()
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			tail.add(line)
			if spec.OnStderr != nil {
				spec.OnStderr(line)
			}
		}
	}()

	wg.Wait()
	waitErr := cmd.Wait()
	close(killDone)

	result := Result{
		Duration:   time.Since(started),
		StderrTail: tail.String(),
		TimedOut:   errors.Is(runCtx.Err(), context.DeadlineExceeded),
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if result.TimedOut {
		return result, fmt.Errorf("%s timed out after %s", spec.Binary, spec.Timeout)
	}
	if ctxErr := runCtx.Err(); ctxErr != nil {
		return result, ctxErr
	}
	if waitErr != nil {
		return result, fmt.Errorf("%s exited: %w", spec.Binary, waitErr)
	}
	return result, nil
}

// tailBuffer keeps the last n lines written to it.
type tailBuffer struct {
	mu    sync.Mutex
	lines []string
	limit int
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (b *tailBuffer) add(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, line)
	if len(b.lines) > b.limit {
		b.lines = b.lines[len(b.lines)-b.limit:]
	}
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.lines, "\n")
}
