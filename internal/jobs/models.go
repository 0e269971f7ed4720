package jobs

import (
	"context"
	"time"

	"ainotes/internal/quality"
)

// Status represents the lifecycle of a notes job.
type Status string

const (
	StatusQueued     Status = "QUEUED"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// UnknownErrorMessage is stored when a failure carries no message.
const UnknownErrorMessage = "UNKNOWN_ERROR"

// AllStatuses lists statuses in lifecycle order.
func AllStatuses() []Status {
	return []Status{StatusQueued, StatusProcessing, StatusCompleted, StatusFailed}
}

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one request to turn an uploaded PDF into notes.
type Job struct {
	ID             string
	UserID         string
	Title          string
	Quality        quality.Tier
	Status         Status
	Content        *string
	ErrorMessage   *string
	SourceFileName string
	SourceFileSize int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewJob describes a job to create. ID is generated when blank; Title
// defaults to the source file name.
type NewJob struct {
	ID             string
	UserID         string
	Title          string
	Quality        quality.Tier
	SourceFileName string
	SourceFileSize int64
}

// Store persists jobs. Terminal writes are conditional on the row still being
// PROCESSING and report whether a row changed.
type Store interface {
	Create(ctx context.Context, job NewJob) (*Job, error)
	ClaimNext(ctx context.Context) (*Job, error)
	Complete(ctx context.Context, id, content string) (bool, error)
	Fail(ctx context.Context, id, message string) (bool, error)
	Get(ctx context.Context, id, userID string) (*Job, error)
	List(ctx context.Context, userID string) ([]*Job, error)
	Delete(ctx context.Context, id, userID string) (bool, error)
	FailOrphaned(ctx context.Context, message string) (int64, error)
	Stats(ctx context.Context) (map[Status]int, error)
	Ping(ctx context.Context) error
	Close() error
}
