package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ainotes/internal/config"
	"ainotes/internal/daemon"
	"ainotes/internal/jobs"
	"ainotes/internal/logging"
	"ainotes/internal/quality"
	"ainotes/internal/testsupport"
	"ainotes/internal/workflow"
)

const testUser = "user-1"

type staticProcessor struct{}

func (staticProcessor) Run(context.Context, []byte, quality.Tier) (string, error) {
	return "# Lecture notes", nil
}

type cliTestEnv struct {
	cfg        *config.Config
	store      jobs.Store
	daemon     *daemon.Daemon
	configPath string
	baseDir    string
}

// setupCLITestEnv runs a daemon on an ephemeral port and writes a config file
// that points the CLI at it.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("AINOTES_USER", "")

	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, staticProcessor{}, logger)
	d, err := daemon.New(cfg, store, logger, mgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg, d.APIAddr())

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		daemon:     d,
		configPath: configPath,
		baseDir:    base,
	}
}

func runCLI(t *testing.T, args []string, configPath, user string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	if user != "" {
		flags = append(flags, "--user", user)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config, apiBind string) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
data_dir = %q
spool_dir = %q
log_dir = %q

[api]
bind = %q
health_bind = ""

[llm]
api_key = "test"

[extract]
use_pdftotext = false
`,
		cfg.Paths.DataDir,
		cfg.Paths.SpoolDir,
		cfg.Paths.LogDir,
		apiBind,
	)
	testsupport.WriteFile(t, path, []byte(content))
}

func writePDF(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	testsupport.WriteFile(t, path, testsupport.MinimalPDF)
	return path
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
