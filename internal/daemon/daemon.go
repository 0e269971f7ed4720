package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"ainotes/internal/config"
	"ainotes/internal/export"
	"ainotes/internal/inbox"
	"ainotes/internal/jobs"
	"ainotes/internal/logging"
	"ainotes/internal/preflight"
	"ainotes/internal/quality"
	"ainotes/internal/workflow"
)

// Daemon coordinates the background processing services and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    jobs.Store
	workflow *workflow.Manager
	exporter *export.Exporter

	lockPath string
	lock     *flock.Flock

	api    *apiServer
	health *healthServer

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	bg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	StoreDriver  string
	StoreErr     error
	LockFilePath string
	InboxDir     string
	Model        string
	Workflow     workflow.StatusSummary
	Checks       []preflight.Result
	Dependencies []preflight.Dependency
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store jobs.Store, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, logger, and workflow manager")
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		exporter: export.New(logger),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	d.health = newHealthServer(cfg.API.HealthBind, logger)
	return d, nil
}

// Start acquires the daemon lock, then launches the workflow manager, the
// optional inbox watcher, and the network listeners.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := os.MkdirAll(d.cfg.Paths.DataDir, 0o755); err != nil {
		return fmt.Errorf("ensure data dir: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another ainotes daemon instance is already running")
	}

	for _, result := range preflight.Failed(preflight.RunAll(ctx, d.cfg)) {
		d.logger.Warn("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
		)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}

	if err := d.startInbox(runCtx); err != nil {
		d.workflow.Stop()
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	if err := d.api.start(); err != nil {
		d.abortStart(cancel)
		return err
	}
	if err := d.health.start(); err != nil {
		d.api.stop()
		d.abortStart(cancel)
		return err
	}

	d.cancel = cancel
	d.running.Store(true)
	d.health.setServing(true)
	d.logger.Info("ainotes daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.addr()),
		logging.String("store", d.cfg.Store.Driver),
	)
	return nil
}

func (d *Daemon) abortStart(cancel context.CancelFunc) {
	cancel()
	d.bg.Wait()
	d.workflow.Stop()
	_ = d.lock.Unlock()
}

func (d *Daemon) startInbox(ctx context.Context) error {
	if !d.cfg.Inbox.Enabled {
		return nil
	}
	tier, ok := quality.Parse(d.cfg.Inbox.Quality)
	if !ok {
		return fmt.Errorf("inbox.quality: unsupported value %q", d.cfg.Inbox.Quality)
	}
	watcher, err := inbox.New(inbox.Config{
		Dir:         d.cfg.Inbox.Dir,
		UserID:      d.cfg.Inbox.UserID,
		Quality:     tier,
		Debounce:    time.Duration(d.cfg.Inbox.DebounceMS) * time.Millisecond,
		InitialScan: d.cfg.Inbox.InitialScan,
		MaxBytes:    d.cfg.Notes.MaxUploadBytes,
	}, d.workflow, d.logger)
	if err != nil {
		return err
	}
	d.bg.Add(1)
	go func() {
		defer d.bg.Done()
		if err := watcher.Run(ctx); err != nil {
			d.logger.Error("inbox watcher stopped", logging.Error(err))
		}
	}()
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	d.health.setServing(false)
	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.bg.Wait()
	d.workflow.Stop()
	d.health.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("ainotes daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// APIAddr returns the bound HTTP address, or "" before Start.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// HealthAddr returns the bound gRPC health address, or "" when disabled.
func (d *Daemon) HealthAddr() string {
	return d.health.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		StoreDriver:  d.cfg.Store.Driver,
		LockFilePath: d.lockPath,
		Model:        d.cfg.LLM.Model,
		Workflow:     d.workflow.Status(ctx),
		Checks:       preflight.RunAll(ctx, d.cfg),
		Dependencies: preflight.CheckDependencies(d.cfg),
	}
	if d.cfg.Inbox.Enabled {
		status.InboxDir = d.cfg.Inbox.Dir
	}
	status.StoreErr = d.store.Ping(ctx)
	return status
}
