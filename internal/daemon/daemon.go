package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"yoink/internal/config"
	"yoink/internal/deps"
	"yoink/internal/logging"
	"yoink/internal/queue"
	"yoink/internal/workflow"
)

// Daemon coordinates the background services and enforces single-instance
// execution through a lock file under the log directory.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager
	hook     http.Handler

	api         *apiServer
	maintenance *maintenance

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	QueueDBPath  string
	LockFilePath string
	WebhookPath  string
	Workflow     workflow.StatusSummary
	Dependencies []deps.Status
}

// New constructs a daemon with initialized dependencies. hook handles
// Telegram webhook deliveries and may be nil when no bot token is set.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager, hook http.Handler) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, logger, and workflow manager")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "yoinkd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		store:    store,
		workflow: wf,
		hook:     hook,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api

	maint, err := newMaintenance(cfg, store, logger)
	if err != nil {
		return nil, err
	}
	d.maintenance = maint
	return d, nil
}

// Start acquires the daemon lock, recovers interrupted jobs, and launches
// the workflow manager, HTTP server, and maintenance schedule.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another yoink daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	// Jobs claimed by a previous run that died mid-stage go back to pending.
	d.workflow.MarkInterrupted(d.ctx)

	if err := d.workflow.Start(d.ctx); err != nil {
		d.releaseStart()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.api.start(d.ctx); err != nil {
		d.workflow.Stop()
		d.releaseStart()
		return fmt.Errorf("start api server: %w", err)
	}
	d.maintenance.start()

	d.running.Store(true)
	d.logger.Info("yoink daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("pid", os.Getpid()))
	return nil
}

func (d *Daemon) releaseStart() {
	_ = d.lock.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
	d.ctx = nil
	d.cancel = nil
}

// Stop halts background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.maintenance.stop()
	d.api.stop()
	d.workflow.Stop()
	// Anything still claimed by a lane goes back to pending for the next run.
	d.workflow.MarkInterrupted(context.Background())
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("yoink daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the admin API listen address, or empty before Start.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Status reports the current daemon state, including workflow and external
// dependency health.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		QueueDBPath:  filepath.Join(d.cfg.Paths.LogDir, "queue.db"),
		LockFilePath: d.lockPath,
		WebhookPath:  d.cfg.WebhookPath(),
		Workflow:     d.workflow.Status(ctx),
		Dependencies: deps.CheckBinaries(deps.Requirements(d.cfg)),
	}
}
