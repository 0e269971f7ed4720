package main

import (
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"ainotes/internal/config"
	"ainotes/internal/daemonrun"
	"ainotes/internal/testsupport"
)

func TestRootCommandLoadsConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	testsupport.WriteFile(t, path, []byte(`[api]
bind = "127.0.0.1:9999"

[workflow]
workers = 3
`))

	var gotCfg *config.Config
	var gotOpts daemonrun.Options
	cmd := newRootCommandWith(func(_ *cobra.Command, cfg *config.Config, opts daemonrun.Options) error {
		gotCfg = cfg
		gotOpts = opts
		return nil
	})
	cmd.SetArgs([]string{"--config", path, "--log-level", "debug", "--dev"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if gotCfg == nil || gotCfg.API.Bind != "127.0.0.1:9999" || gotCfg.Workflow.Workers != 3 {
		t.Fatalf("unexpected config: %+v", gotCfg)
	}
	if gotOpts.LogLevel != "debug" || !gotOpts.Development {
		t.Fatalf("unexpected options: %+v", gotOpts)
	}
}

func TestRootCommandRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	testsupport.WriteFile(t, path, []byte("[store]\ndriver = \"mysql\"\n"))

	cmd := newRootCommandWith(func(*cobra.Command, *config.Config, daemonrun.Options) error {
		t.Fatal("run should not be called")
		return nil
	})
	cmd.SetArgs([]string{"--config", path})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected config validation error")
	}
}
