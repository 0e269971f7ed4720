package jobs

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"ainotes/internal/logging"
	"ainotes/internal/quality"
)

//go:embed schema_postgres.sql
var postgresSchema string

const jobsTable = "notes_jobs"

var jobColumnList = []string{
	"id", "user_id", "title", "quality", "status", "content", "error_message",
	"source_file_name", "source_file_size", "created_at", "updated_at",
}

// PostgresConfig captures pool settings for the Postgres store.
type PostgresConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

var _ Store = (*PostgresStore)(nil)

// PostgresStore manages job persistence backed by a pgx pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	db     *sql.DB
	drv    *entsql.Driver
	logger *slog.Logger
}

// OpenPostgres creates a pgx pool, wraps it as *sql.DB, and ensures the schema.
func OpenPostgres(ctx context.Context, cfg PostgresConfig, logger *slog.Logger) (*PostgresStore, error) {
	logger = logging.NewComponentLogger(logger, "jobs-postgres")

	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "ainotesd"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprintf("%d", cfg.StatementTimeout.Milliseconds())
	}

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	store := &PostgresStore{
		pool:   pool,
		db:     db,
		drv:    entsql.OpenDB(dialect.Postgres, db),
		logger: logger,
	}
	if err := store.initSchema(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	logger.Info("connected to postgres job store",
		logging.Int("max_conns", int(pc.MaxConns)),
		logging.Int("min_conns", int(pc.MinConns)),
	)
	return store, nil
}

func builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.Postgres)
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	var version int
	err = tx.QueryRowContext(ctx, "SELECT version FROM notes_schema_version LIMIT 1").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, "INSERT INTO notes_schema_version (version) VALUES ($1)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case version != schemaVersion:
		return fmt.Errorf("%w: database has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s == nil {
		return nil
	}
	var err error
	if s.drv != nil {
		err = s.drv.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}

// Ping checks pool connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Create inserts a QUEUED job.
func (s *PostgresStore) Create(ctx context.Context, job NewJob) (*Job, error) {
	job, err := prepare(job)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	query, args := builder().Insert(jobsTable).
		Columns("id", "user_id", "title", "quality", "status", "source_file_name", "source_file_size", "created_at", "updated_at").
		Values(job.ID, job.UserID, job.Title, string(job.Quality), string(StatusQueued), job.SourceFileName, job.SourceFileSize, now, now).
		Returning(jobColumnList...).
		Query()
	created, err := scanPostgresJob(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return created, nil
}

// claimNextQuery selects the oldest QUEUED row, skipping rows locked by
// other claimers.
func claimNextQuery() (string, []any) {
	return builder().Select("seq").
		From(builder().Table(jobsTable)).
		Where(entsql.EQ("status", string(StatusQueued))).
		OrderBy("created_at", "seq").
		Limit(1).
		ForUpdate(entsql.WithLockAction(entsql.SkipLocked)).
		Query()
}

// ClaimNext moves the oldest QUEUED job to PROCESSING.
func (s *PostgresStore) ClaimNext(ctx context.Context) (*Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args := claimNextQuery()
	var seq int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&seq); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select next job: %w", err)
	}

	query, args = builder().Update(jobsTable).
		Set("status", string(StatusProcessing)).
		Set("updated_at", time.Now().UTC()).
		Where(entsql.EQ("seq", seq)).
		Returning(jobColumnList...).
		Query()
	job, err := scanPostgresJob(tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	return job, nil
}

// Complete stores the generated notes for a PROCESSING job.
func (s *PostgresStore) Complete(ctx context.Context, id, content string) (bool, error) {
	query, args := builder().Update(jobsTable).
		Set("status", string(StatusCompleted)).
		Set("content", content).
		SetNull("error_message").
		Set("updated_at", time.Now().UTC()).
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("status", string(StatusProcessing)))).
		Query()
	return s.execChanged(ctx, "complete job", query, args)
}

// Fail records a failure for a PROCESSING job.
func (s *PostgresStore) Fail(ctx context.Context, id, message string) (bool, error) {
	query, args := builder().Update(jobsTable).
		Set("status", string(StatusFailed)).
		SetNull("content").
		Set("error_message", failureMessage(message)).
		Set("updated_at", time.Now().UTC()).
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("status", string(StatusProcessing)))).
		Query()
	return s.execChanged(ctx, "fail job", query, args)
}

// Get fetches a job owned by userID.
func (s *PostgresStore) Get(ctx context.Context, id, userID string) (*Job, error) {
	query, args := builder().Select(jobColumnList...).
		From(builder().Table(jobsTable)).
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("user_id", userID))).
		Query()
	job, err := scanPostgresJob(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns the user's jobs, newest first.
func (s *PostgresStore) List(ctx context.Context, userID string) ([]*Job, error) {
	query, args := builder().Select(jobColumnList...).
		From(builder().Table(jobsTable)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("seq")).
		Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]*Job, 0)
	for rows.Next() {
		job, err := scanPostgresJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Delete removes a job owned by userID regardless of its status.
func (s *PostgresStore) Delete(ctx context.Context, id, userID string) (bool, error) {
	query, args := builder().Delete(jobsTable).
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("user_id", userID))).
		Query()
	return s.execChanged(ctx, "delete job", query, args)
}

// FailOrphaned fails every PROCESSING job.
func (s *PostgresStore) FailOrphaned(ctx context.Context, message string) (int64, error) {
	query, args := builder().Update(jobsTable).
		Set("status", string(StatusFailed)).
		SetNull("content").
		Set("error_message", failureMessage(message)).
		Set("updated_at", time.Now().UTC()).
		Where(entsql.EQ("status", string(StatusProcessing))).
		Query()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("fail orphaned jobs: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of jobs grouped by status.
func (s *PostgresStore) Stats(ctx context.Context) (map[Status]int, error) {
	query, args := builder().Select("status", entsql.Count("*")).
		From(builder().Table(jobsTable)).
		GroupBy("status").
		Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
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

func (s *PostgresStore) execChanged(ctx context.Context, op, query string, args []any) (bool, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return rowsChanged(res)
}

func scanPostgresJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job          Job
		qualityStr   string
		statusStr    string
		content      sql.NullString
		errorMessage sql.NullString
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
		&job.CreatedAt,
		&job.UpdatedAt,
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
	job.CreatedAt = job.CreatedAt.UTC()
	job.UpdatedAt = job.UpdatedAt.UTC()
	return &job, nil
}
