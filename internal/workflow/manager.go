package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"yoink/internal/config"
	"yoink/internal/logging"
	"yoink/internal/notifications"
	"yoink/internal/queue"
	"yoink/internal/stage"
	"yoink/internal/telegram"
)

// ChatNotifier is the slice of the Bot API the manager uses to report
// failures back to the requesting chat.
type ChatNotifier interface {
	SendMessage(ctx context.Context, params telegram.SendMessageParams) (*telegram.Message, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string) error
}

// StageSet bundles the concrete stage handlers the manager orchestrates.
type StageSet struct {
	Fetcher    stage.Handler
	Transcoder stage.Handler
	Deliverer  stage.Handler
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	processingStatus queue.Status
	doneStatus       queue.Status
}

// Manager coordinates queue processing across worker lanes.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	logger       *slog.Logger
	notifier     notifications.Service
	messenger    ChatNotifier
	pollInterval time.Duration
	lanes        int

	heartbeat *HeartbeatMonitor

	stageByProcessing map[queue.Status]pipelineStage
	stageOrder        []pipelineStage

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	group   *errgroup.Group
	lastErr error
	lastJob *queue.Job
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service, messenger ChatNotifier) *Manager {
	lanes := cfg.Workflow.Lanes
	if lanes <= 0 {
		lanes = 1
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logging.WithComponent(logger, "workflow"),
		notifier:     notifier,
		messenger:    messenger,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		lanes:        lanes,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
	}
}

// ConfigureStages registers the pipeline handlers. Must be called before
// Start.
func (m *Manager) ConfigureStages(set StageSet) {
	stages := []pipelineStage{
		{name: "fetching", handler: set.Fetcher, processingStatus: queue.StatusFetching, doneStatus: queue.StatusFetched},
		{name: "transcoding", handler: set.Transcoder, processingStatus: queue.StatusTranscoding, doneStatus: queue.StatusTranscoded},
		{name: "delivering", handler: set.Deliverer, processingStatus: queue.StatusDelivering, doneStatus: queue.StatusCompleted},
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stageOrder = stages
	m.stageByProcessing = make(map[queue.Status]pipelineStage, len(stages))
	for _, stg := range stages {
		m.stageByProcessing[stg.processingStatus] = stg
	}
}

func (m *Manager) stageForStatus(status queue.Status) (pipelineStage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stg, ok := m.stageByProcessing[status]
	return stg, ok
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastJob(job *queue.Job) {
	m.mu.Lock()
	if job != nil {
		copy := *job
		m.lastJob = &copy
	} else {
		m.lastJob = nil
	}
	m.mu.Unlock()
}
