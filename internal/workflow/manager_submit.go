package workflow

import (
	"context"

	"github.com/google/uuid"

	"ainotes/internal/jobs"
	"ainotes/internal/logging"
	"ainotes/internal/quality"
)

// Upload is a document submitted for notes generation.
type Upload struct {
	UserID   string
	Title    string
	Quality  quality.Tier
	FileName string
	Data     []byte
}

// Submit spools the document, records a QUEUED job, and wakes a worker. It
// returns as soon as the job is persisted.
func (m *Manager) Submit(ctx context.Context, upload Upload) (*jobs.Job, error) {
	id := uuid.NewString()
	if err := m.spool.write(id, upload.Data); err != nil {
		return nil, err
	}
	job, err := m.store.Create(ctx, jobs.NewJob{
		ID:             id,
		UserID:         upload.UserID,
		Title:          upload.Title,
		Quality:        upload.Quality,
		SourceFileName: upload.FileName,
		SourceFileSize: int64(len(upload.Data)),
	})
	if err != nil {
		if rmErr := m.spool.remove(id); rmErr != nil {
			m.logger.Warn("spool cleanup failed", logging.String(logging.FieldJobID, id), logging.Error(rmErr))
		}
		return nil, err
	}

	m.logger.Info("job queued",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldUserID, job.UserID),
		logging.String("quality", job.Quality.String()),
		logging.String("source_file", job.SourceFileName),
		logging.Int64("source_bytes", job.SourceFileSize),
	)
	m.notify()
	return job, nil
}

// Delete removes a job owned by userID regardless of status. In-flight
// processing for the job is cancelled and its spooled document removed.
func (m *Manager) Delete(ctx context.Context, id, userID string) (bool, error) {
	deleted, err := m.store.Delete(ctx, id, userID)
	if err != nil || !deleted {
		return deleted, err
	}
	logger := m.logger.With(logging.String(logging.FieldJobID, id), logging.String(logging.FieldUserID, userID))
	if m.cancelInflight(id, errJobDeleted) {
		logger.Info("cancelled in-flight job")
	}
	if err := m.spool.remove(id); err != nil {
		logger.Warn("spool cleanup failed", logging.Error(err))
	}
	logger.Info("job deleted")
	return true, nil
}
