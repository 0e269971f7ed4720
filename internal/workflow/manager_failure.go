package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"ainotes/internal/jobs"
	"ainotes/internal/logging"
	"ainotes/internal/services"
)

func (m *Manager) handleJobFailure(ctx context.Context, logger *slog.Logger, job *jobs.Job, jobErr error) {
	message, record := classifyJobFailure(ctx, jobErr)
	if !record {
		logger.Info("job deleted during processing; outcome discarded")
		return
	}

	persistCtx, cancel := persistContext(ctx)
	defer cancel()

	changed, err := m.store.Fail(persistCtx, job.ID, message)
	if err != nil {
		m.setLastError(err)
		logger.Error("failed to persist job failure", logging.Error(err))
		return
	}
	if !changed {
		logger.Info("job no longer processing; failure discarded")
		return
	}

	failed := *job
	failed.Status = jobs.StatusFailed
	failed.Content = nil
	failed.ErrorMessage = &message
	m.setLastJob(&failed)

	attrs := []logging.Attr{
		logging.String("status", string(jobs.StatusFailed)),
		logging.String("error_message", message),
		logging.String("error_kind", services.Kind(jobErr)),
		logging.Error(jobErr),
	}
	if message == StoppedMessage {
		logger.Warn("job interrupted", logging.Args(attrs...)...)
		return
	}
	logger.Error("job failed", logging.Args(attrs...)...)
}

// classifyJobFailure picks the message to record. The second result is false
// when the job was deleted and nothing should be written.
func classifyJobFailure(ctx context.Context, jobErr error) (string, bool) {
	if ctx.Err() != nil && (errors.Is(jobErr, context.Canceled) || errors.Is(jobErr, context.DeadlineExceeded)) {
		cause := context.Cause(ctx)
		switch {
		case errors.Is(cause, errJobDeleted):
			return "", false
		case errors.Is(cause, services.ErrTimeout):
			return cause.Error(), true
		default:
			return StoppedMessage, true
		}
	}
	if jobErr == nil {
		return jobs.UnknownErrorMessage, true
	}
	message := strings.TrimSpace(jobErr.Error())
	if message == "" {
		return jobs.UnknownErrorMessage, true
	}
	return message, true
}
