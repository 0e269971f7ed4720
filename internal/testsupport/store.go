package testsupport

import (
	"context"
	"testing"

	"ainotes/internal/config"
	"ainotes/internal/jobs"
	"ainotes/internal/quality"
)

// MustOpenStore opens the sqlite job store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.SQLiteStore {
	t.Helper()

	store, err := jobs.OpenSQLite(context.Background(), cfg.SQLitePath())
	if err != nil {
		t.Fatalf("jobs.OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob creates a queued job owned by userID.
func NewJob(t testing.TB, store jobs.Store, userID, fileName string) *jobs.Job {
	t.Helper()

	job, err := store.Create(context.Background(), jobs.NewJob{
		UserID:         userID,
		Quality:        quality.Balanced,
		SourceFileName: fileName,
		SourceFileSize: 1,
	})
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return job
}
