package jobs

import (
	"strings"

	"github.com/google/uuid"

	"ainotes/internal/quality"
	"ainotes/internal/services"
)

// prepare validates a NewJob and fills defaults.
func prepare(job NewJob) (NewJob, error) {
	job.UserID = strings.TrimSpace(job.UserID)
	job.SourceFileName = strings.TrimSpace(job.SourceFileName)
	job.Title = strings.TrimSpace(job.Title)
	job.ID = strings.TrimSpace(job.ID)

	if job.UserID == "" {
		return job, services.Wrap(services.ErrValidation, "jobs", "create", "user id required", nil)
	}
	if job.SourceFileName == "" {
		return job, services.Wrap(services.ErrValidation, "jobs", "create", "source file name required", nil)
	}
	if job.SourceFileSize < 0 {
		return job, services.Wrap(services.ErrValidation, "jobs", "create", "source file size must be >= 0", nil)
	}
	tier, ok := quality.Parse(string(job.Quality))
	if !ok {
		return job, services.Wrap(services.ErrValidation, "jobs", "create", "invalid quality "+string(job.Quality), nil)
	}
	job.Quality = tier
	if job.Title == "" {
		job.Title = job.SourceFileName
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	} else if _, err := uuid.Parse(job.ID); err != nil {
		return job, services.Wrap(services.ErrValidation, "jobs", "create", "invalid job id", err)
	}
	return job, nil
}

func failureMessage(message string) string {
	if strings.TrimSpace(message) == "" {
		return UnknownErrorMessage
	}
	return message
}
