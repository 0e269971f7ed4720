package main

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"ainotes/internal/api"
	"ainotes/internal/jobs"
	"ainotes/internal/testsupport"
)

func TestSubmitWaitPrintsNotes(t *testing.T) {
	env := setupCLITestEnv(t)
	pdf := writePDF(t, env.baseDir, "lecture.pdf")

	out, _, err := runCLI(t, []string{"submit", pdf, "--title", "Week 1", "--quality", "simple", "--wait"}, env.configPath, testUser)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	requireContains(t, out, "# Lecture notes")

	list, err := env.store.List(context.Background(), testUser)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Title != "Week 1" || list[0].Status != jobs.StatusCompleted {
		t.Fatalf("unexpected jobs: %+v", list)
	}
}

func TestSubmitRejectsBadQualityLocally(t *testing.T) {
	env := setupCLITestEnv(t)
	pdf := writePDF(t, env.baseDir, "lecture.pdf")

	_, _, err := runCLI(t, []string{"submit", pdf, "--quality", "ultra"}, env.configPath, testUser)
	if err == nil || !strings.Contains(err.Error(), "invalid quality") {
		t.Fatalf("expected invalid quality error, got %v", err)
	}
}

func TestListAndShow(t *testing.T) {
	env := setupCLITestEnv(t)
	job := testsupport.NewJob(t, env.store, testUser, "chapter-3.pdf")
	testsupport.NewJob(t, env.store, "someone-else", "private.pdf")

	out, _, err := runCLI(t, []string{"list"}, env.configPath, testUser)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, job.ID)
	requireContains(t, out, "chapter-3.pdf")
	if strings.Contains(out, "private.pdf") {
		t.Fatalf("list leaked another user's job: %s", out)
	}

	out, _, err = runCLI(t, []string{"show", job.ID, "--json"}, env.configPath, testUser)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	var payload api.Job
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode show output: %v\n%s", err, out)
	}
	if payload.ID != job.ID || payload.SourceFileName != "chapter-3.pdf" {
		t.Fatalf("unexpected job: %+v", payload)
	}
}

func TestShowMissingJob(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"show", "00000000-0000-4000-8000-000000000000"}, env.configPath, testUser)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestDeleteCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	job := testsupport.NewJob(t, env.store, testUser, "a.pdf")

	out, _, err := runCLI(t, []string{"delete", job.ID}, env.configPath, testUser)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	requireContains(t, out, "deleted")

	out, _, err = runCLI(t, []string{"delete", job.ID}, env.configPath, testUser)
	if err == nil {
		t.Fatal("expected error deleting missing job")
	}
	requireContains(t, out, "not found")
}

func TestExportWritesWorkbook(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.NewJob(t, env.store, testUser, "a.pdf")
	target := filepath.Join(env.baseDir, "out", "notes.xlsx")
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	out, _, err := runCLI(t, []string{"export", "--output", target}, env.configPath, testUser)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	requireContains(t, out, "Wrote")

	book, err := excelize.OpenFile(target)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer book.Close()
	rows, err := book.GetRows("Notes")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header plus 1", len(rows))
	}
}

func TestStatusRunningDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.NewJob(t, env.store, testUser, "a.pdf")

	out, _, err := runCLI(t, []string{"status"}, env.configPath, testUser)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "System Status")
	requireContains(t, out, "Running (pid")
	requireContains(t, out, "Jobs")
}

func TestStatusOfflineFallsBackToStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	closedAddr := listener.Addr().String()
	listener.Close()

	store := testsupport.MustOpenStore(t, cfg)
	testsupport.NewJob(t, store, testUser, "a.pdf")
	store.Close()

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg, closedAddr)

	out, _, err := runCLI(t, []string{"status", "--json"}, configPath, testUser)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var status api.DaemonStatus
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if status.Running {
		t.Fatal("expected daemon reported as not running")
	}
	if !status.StoreHealthy || status.Workflow.JobStats[string(jobs.StatusQueued)] != 1 {
		t.Fatalf("unexpected offline status: %+v", status)
	}
}

func TestMissingUserIsReported(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("USER", "")

	_, _, err := runCLI(t, []string{"list"}, env.configPath, "")
	if err == nil || !strings.Contains(err.Error(), "no user id") {
		t.Fatalf("expected missing user error, got %v", err)
	}
}

func TestUnreachableDaemonError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := listener.Addr().String()
	listener.Close()
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg, addr)

	_, _, err = runCLI(t, []string{"list"}, configPath, testUser)
	if err == nil || !strings.Contains(err.Error(), "ainotes start") {
		t.Fatalf("expected start hint, got %v", err)
	}
}

func TestDisabledAPIError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg, "")

	_, _, err := runCLI(t, []string{"list"}, configPath, testUser)
	if err == nil || !strings.Contains(err.Error(), "api.bind is blank") {
		t.Fatalf("expected disabled api error, got %v", err)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath, "")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if !fileExists(target) {
		t.Fatalf("expected config file at %s", target)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", ""); err == nil {
		t.Fatal("expected error when config exists")
	}
}

func TestLogsFiltersByJob(t *testing.T) {
	env := setupCLITestEnv(t)
	content := `{"level":"info","msg":"job queued","job_id":"a"}
{"level":"info","msg":"job queued","job_id":"b"}
`
	testsupport.WriteFile(t, env.cfg.LogFilePath(), []byte(content))

	out, _, err := runCLI(t, []string{"logs", "--job", "b"}, env.configPath, "")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Count(strings.TrimSpace(out), "\n") != 0 || !strings.Contains(out, `"job_id":"b"`) {
		t.Fatalf("unexpected logs output: %q", out)
	}
}
