package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ainotes/internal/quality"
)

const jobColumns = "id, user_id, title, quality, status, content, error_message, source_file_name, source_file_size, created_at, updated_at"

// Create inserts a QUEUED job.
func (s *SQLiteStore) Create(ctx context.Context, job NewJob) (*Job, error) {
	job, err := prepare(job)
	if err != nil {
		return nil, err
	}
	timestamp := formatTimestamp(time.Now())

	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO notes_jobs (
            id, user_id, title, quality, status, source_file_name, source_file_size, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.UserID,
		job.Title,
		string(job.Quality),
		string(StatusQueued),
		job.SourceFileName,
		job.SourceFileSize,
		timestamp,
		timestamp,
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return s.getByID(ctx, job.ID)
}

// ClaimNext moves the oldest QUEUED job to PROCESSING and returns it, or nil
// when the queue is empty.
func (s *SQLiteStore) ClaimNext(ctx context.Context) (*Job, error) {
	return s.claim(ctx,
		`UPDATE notes_jobs SET status = ?, updated_at = ?
         WHERE seq = (SELECT seq FROM notes_jobs WHERE status = ? ORDER BY created_at, seq LIMIT 1)
           AND status = ?
         RETURNING `+jobColumns,
		string(StatusProcessing), formatTimestamp(time.Now()), string(StatusQueued), string(StatusQueued),
	)
}

func (s *SQLiteStore) claim(ctx context.Context, query string, args ...any) (*Job, error) {
	var job *Job
	err := retryOnBusy(ctx, func() error {
		var scanErr error
		job, scanErr = scanSQLiteJob(s.db.QueryRowContext(ctx, query, args...))
		return scanErr
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return job, nil
}

// Complete stores the generated notes for a PROCESSING job.
func (s *SQLiteStore) Complete(ctx context.Context, id, content string) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE notes_jobs SET status = ?, content = ?, error_message = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		string(StatusCompleted), content, formatTimestamp(time.Now()), id, string(StatusProcessing),
	)
	if err != nil {
		return false, fmt.Errorf("complete job: %w", err)
	}
	return rowsChanged(res)
}

// Fail records a failure for a PROCESSING job.
func (s *SQLiteStore) Fail(ctx context.Context, id, message string) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE notes_jobs SET status = ?, content = NULL, error_message = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		string(StatusFailed), failureMessage(message), formatTimestamp(time.Now()), id, string(StatusProcessing),
	)
	if err != nil {
		return false, fmt.Errorf("fail job: %w", err)
	}
	return rowsChanged(res)
}

// Get fetches a job owned by userID. Missing and foreign jobs both return nil.
func (s *SQLiteStore) Get(ctx context.Context, id, userID string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM notes_jobs WHERE id = ? AND user_id = ?`, id, userID)
	job, err := scanSQLiteJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func (s *SQLiteStore) getByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM notes_jobs WHERE id = ?`, id)
	job, err := scanSQLiteJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns the user's jobs, newest first.
func (s *SQLiteStore) List(ctx context.Context, userID string) ([]*Job, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+jobColumns+` FROM notes_jobs WHERE user_id = ? ORDER BY created_at DESC, seq DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]*Job, 0)
	for rows.Next() {
		job, err := scanSQLiteJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Delete removes a job owned by userID regardless of its status.
func (s *SQLiteStore) Delete(ctx context.Context, id, userID string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM notes_jobs WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	return rowsChanged(res)
}

// FailOrphaned fails every PROCESSING job. Used at startup, when no worker can
// still own one.
func (s *SQLiteStore) FailOrphaned(ctx context.Context, message string) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE notes_jobs SET status = ?, content = NULL, error_message = ?, updated_at = ?
         WHERE status = ?`,
		string(StatusFailed), failureMessage(message), formatTimestamp(time.Now()), string(StatusProcessing),
	)
	if err != nil {
		return 0, fmt.Errorf("fail orphaned jobs: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of jobs grouped by status.
func (s *SQLiteStore) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM notes_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

func rowsChanged(res sql.Result) (bool, error) {
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func scanSQLiteJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job          Job
		qualityStr   string
		statusStr    string
		content      sql.NullString
		errorMessage sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)
	if err := scanner.Scan(
		&job.ID,
		&job.UserID,
		&job.Title,
		&qualityStr,
		&statusStr,
		&content,
		&errorMessage,
		&job.SourceFileName,
		&job.SourceFileSize,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	job.Quality = quality.Tier(qualityStr)
	job.Status = Status(statusStr)
	if content.Valid {
		job.Content = &content.String
	}
	if errorMessage.Valid {
		job.ErrorMessage = &errorMessage.String
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	return &job, nil
}
