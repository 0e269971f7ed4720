package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"ainotes/internal/config"
	"ainotes/internal/jobs"
	"ainotes/internal/logging"
	"ainotes/internal/quality"
)

// StoppedMessage is recorded on jobs interrupted by daemon shutdown.
const StoppedMessage = "daemon stopped"

var (
	errDaemonStopped = errors.New(StoppedMessage)
	errJobDeleted    = errors.New("job deleted")
)

// Processor turns a source document into notes.
type Processor interface {
	Run(ctx context.Context, data []byte, tier quality.Tier) (string, error)
}

// Manager runs queued jobs through the notes pipeline on a pool of workers.
type Manager struct {
	cfg       *config.Config
	store     jobs.Store
	processor Processor
	logger    *slog.Logger
	spool     *spool

	workers            int
	pollInterval       time.Duration
	errorRetryInterval time.Duration
	jobTimeout         time.Duration

	wake chan struct{}

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelCauseFunc
	wg       sync.WaitGroup
	inflight map[string]context.CancelCauseFunc
	lastErr  error
	lastJob  *jobs.Job
}

// NewManager constructs a new workflow manager.
func NewManager(cfg *config.Config, store jobs.Store, processor Processor, logger *slog.Logger) *Manager {
	workers := cfg.Workflow.Workers
	if workers <= 0 {
		workers = 1
	}
	poll := time.Duration(cfg.Workflow.PollInterval) * time.Second
	if poll <= 0 {
		poll = time.Second
	}
	retry := time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second
	if retry <= 0 {
		retry = time.Second
	}
	return &Manager{
		cfg:                cfg,
		store:              store,
		processor:          processor,
		logger:             logging.NewComponentLogger(logger, "workflow"),
		spool:              &spool{dir: cfg.Paths.SpoolDir},
		workers:            workers,
		pollInterval:       poll,
		errorRetryInterval: retry,
		jobTimeout:         time.Duration(cfg.Workflow.JobTimeoutSeconds) * time.Second,
		wake:               make(chan struct{}, 1),
		inflight:           make(map[string]context.CancelCauseFunc),
	}
}

func (m *Manager) notify() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) track(id string, cancel context.CancelCauseFunc) {
	m.mu.Lock()
	m.inflight[id] = cancel
	m.mu.Unlock()
}

func (m *Manager) untrack(id string) {
	m.mu.Lock()
	delete(m.inflight, id)
	m.mu.Unlock()
}

func (m *Manager) cancelInflight(id string, cause error) bool {
	m.mu.Lock()
	cancel, ok := m.inflight[id]
	m.mu.Unlock()
	if ok {
		cancel(cause)
	}
	return ok
}
