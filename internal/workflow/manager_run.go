package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ainotes/internal/jobs"
	"ainotes/internal/logging"
	"ainotes/internal/services"
)

// Start fails jobs orphaned by a previous run and begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if m.processor == nil {
		m.mu.Unlock()
		return errors.New("workflow processor not configured")
	}

	orphaned, err := m.store.FailOrphaned(ctx, StoppedMessage)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("fail orphaned jobs: %w", err)
	}
	if orphaned > 0 {
		m.logger.Warn("failed jobs left processing by a previous run",
			logging.Int64("count", orphaned),
			logging.String("error_message", StoppedMessage),
		)
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(m.workers)
	m.mu.Unlock()

	for i := 1; i <= m.workers; i++ {
		go m.runWorker(runCtx, i)
	}
	m.logger.Info("workflow started", logging.Int("workers", m.workers))
	m.notify()
	return nil
}

// Stop terminates background processing and waits for completion. Jobs
// interrupted by the stop are failed, never re-queued.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel(errDaemonStopped)
	m.wg.Wait()
	m.logger.Info("workflow stopped")
}

func (m *Manager) runWorker(ctx context.Context, worker int) {
	defer m.wg.Done()
	logger := m.logger.With(logging.Int("worker", worker))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := m.store.ClaimNext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.handleClaimError(ctx, logger, err)
			continue
		}
		if job == nil {
			m.waitForJobOrShutdown(ctx)
			continue
		}

		// Another idle worker may be able to pick up the next queued job.
		m.notify()
		m.processJob(ctx, logger, job)
	}
}

func (m *Manager) handleClaimError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	logger.Error("failed to claim next job",
		logging.Error(err),
		logging.String("error_kind", services.Kind(err)),
	)
	timer := time.NewTimer(m.errorRetryInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (m *Manager) waitForJobOrShutdown(ctx context.Context) {
	timer := time.NewTimer(m.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-m.wake:
	case <-timer.C:
	}
}

func (m *Manager) processJob(ctx context.Context, base *slog.Logger, job *jobs.Job) {
	jobCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	m.track(job.ID, cancel)
	defer m.untrack(job.ID)

	jobCtx = services.WithJobID(jobCtx, job.ID)
	jobCtx = services.WithRequestID(jobCtx, uuid.NewString())
	logger := logging.WithContext(jobCtx, base).With(logging.String(logging.FieldUserID, job.UserID))

	runCtx := jobCtx
	if m.jobTimeout > 0 {
		var stop context.CancelFunc
		runCtx, stop = context.WithTimeoutCause(jobCtx, m.jobTimeout,
			services.Wrap(services.ErrTimeout, "workflow", "run job", fmt.Sprintf("exceeded %s", m.jobTimeout), nil))
		defer stop()
	}

	logger.Info("job started",
		logging.String("quality", job.Quality.String()),
		logging.String("source_file", job.SourceFileName),
	)
	start := time.Now()

	content, err := m.run(runCtx, job)
	if err != nil {
		m.handleJobFailure(runCtx, logger, job, err)
	} else {
		m.handleJobSuccess(runCtx, logger, job, content, time.Since(start))
	}

	if err := m.spool.remove(job.ID); err != nil {
		logger.Warn("spool cleanup failed", logging.Error(err))
	}
}

func (m *Manager) run(ctx context.Context, job *jobs.Job) (string, error) {
	data, err := m.spool.read(job.ID)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "workflow", "load document", "", err)
	}
	return m.processor.Run(ctx, data, job.Quality)
}

func (m *Manager) handleJobSuccess(ctx context.Context, logger *slog.Logger, job *jobs.Job, content string, elapsed time.Duration) {
	persistCtx, cancel := persistContext(ctx)
	defer cancel()

	changed, err := m.store.Complete(persistCtx, job.ID, content)
	if err != nil {
		m.setLastError(err)
		logger.Error("failed to persist job completion", logging.Error(err))
		return
	}
	if !changed {
		logger.Info("job no longer processing; result discarded")
		return
	}

	done := *job
	done.Status = jobs.StatusCompleted
	done.Content = &content
	done.ErrorMessage = nil
	m.setLastJob(&done)
	logger.Info("job completed",
		logging.String("status", string(jobs.StatusCompleted)),
		logging.Int("content_chars", len(content)),
		logging.Duration("duration", elapsed),
	)
}

// persistContext detaches terminal writes from job cancellation so shutdown
// can still record the outcome.
func persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
}
