package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"ainotes/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GEMINI_API_KEY", "GEMINI_MODEL", "MAX_CHUNK_CHARS", "AINOTES_DATABASE_URL", "AINOTES_API_TOKEN"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaultConfigUsesEnvAndExpandsPaths(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "ainotes")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.SpoolDir != filepath.Join(wantData, "spool") {
		t.Fatalf("unexpected spool dir: %q", cfg.Paths.SpoolDir)
	}
	if cfg.LLM.APIKey != "test-key" {
		t.Fatalf("expected API key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "gemini-1.5-flash" {
		t.Fatalf("unexpected default model: %q", cfg.LLM.Model)
	}
	if cfg.Notes.MaxChunkChars != 3000 {
		t.Fatalf("unexpected max chunk chars: %d", cfg.Notes.MaxChunkChars)
	}
	if cfg.Notes.MaxUploadBytes != 30*1024*1024 {
		t.Fatalf("unexpected upload limit: %d", cfg.Notes.MaxUploadBytes)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Fatalf("expected sqlite driver, got %q", cfg.Store.Driver)
	}
	if cfg.LLM.MaxAttempts != 1 {
		t.Fatalf("expected retries disabled by default, got %d attempts", cfg.LLM.MaxAttempts)
	}
	if cfg.SQLitePath() != filepath.Join(wantData, "jobs.db") {
		t.Fatalf("unexpected sqlite path: %q", cfg.SQLitePath())
	}
}

func TestLoadWithoutAPIKeySucceeds(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("expected load to succeed without an API key, got %v", err)
	}
	if cfg.LLM.APIKey != "" {
		t.Fatalf("expected empty API key, got %q", cfg.LLM.APIKey)
	}
}

func TestEnvOverridesForModelAndChunkSize(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GEMINI_MODEL", "gemini-2.0-flash")
	t.Setenv("MAX_CHUNK_CHARS", "1800")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.Model != "gemini-2.0-flash" {
		t.Fatalf("expected model from env, got %q", cfg.LLM.Model)
	}
	if cfg.Notes.MaxChunkChars != 1800 {
		t.Fatalf("expected chunk size from env, got %d", cfg.Notes.MaxChunkChars)
	}
}

func TestEnvDoesNotOverrideExplicitFileValues(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("GEMINI_MODEL", "gemini-2.0-flash")
	t.Setenv("MAX_CHUNK_CHARS", "1800")

	configPath := filepath.Join(tempHome, "config.toml")
	content := "[llm]\nmodel = \"gemini-1.5-flash\"\n\n[notes]\nmax_chunk_chars = 3000\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Notes.MaxChunkChars != 3000 {
		t.Fatalf("explicit max_chunk_chars overridden by env: %d", cfg.Notes.MaxChunkChars)
	}
	if cfg.LLM.Model != "gemini-1.5-flash" {
		t.Fatalf("explicit model overridden by env: %q", cfg.LLM.Model)
	}
}

func TestEnvAppliesWhenFileOmitsKey(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("MAX_CHUNK_CHARS", "1800")

	configPath := filepath.Join(tempHome, "config.toml")
	if err := os.WriteFile(configPath, []byte("[notes]\nmap_concurrency = 2\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Notes.MaxChunkChars != 1800 || cfg.Notes.MapConcurrency != 2 {
		t.Fatalf("unexpected notes config: %#v", cfg.Notes)
	}
}

func TestLoadCustomConfigOverridesDefaults(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(tempHome, "config.toml")
	payload := map[string]any{
		"paths": map[string]any{
			"data_dir": "~/notes-data",
		},
		"llm": map[string]any{
			"api_key": "file-key",
			"model":   "gemini-pro",
		},
		"notes": map[string]any{
			"max_chunk_chars": 2000,
			"map_concurrency": 4,
		},
		"workflow": map[string]any{
			"workers": 3,
		},
		"logging": map[string]any{
			"format": "JSON",
			"level":  "DEBUG",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal toml: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config at %q to be used, got %q (exists=%v)", configPath, resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "notes-data") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.LLM.APIKey != "file-key" || cfg.LLM.Model != "gemini-pro" {
		t.Fatalf("unexpected llm config: %#v", cfg.LLM)
	}
	if cfg.Notes.MaxChunkChars != 2000 || cfg.Notes.MapConcurrency != 4 {
		t.Fatalf("unexpected notes config: %#v", cfg.Notes)
	}
	if cfg.Workflow.Workers != 3 {
		t.Fatalf("unexpected worker count: %d", cfg.Workflow.Workers)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %#v", cfg.Logging)
	}
}

func TestValidateRejectsPostgresWithoutDSN(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(tempHome, "config.toml")
	if err := os.WriteFile(configPath, []byte("[store]\ndriver = \"postgres\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := config.Load(configPath)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "store.dsn") {
		t.Fatalf("expected error to mention store.dsn, got %v", err)
	}
}

func TestValidateInboxRequiresUser(t *testing.T) {
	cfg := config.Default()
	cfg.Inbox.Enabled = true
	cfg.Inbox.Quality = "BALANCED"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "inbox.user_id") {
		t.Fatalf("expected inbox.user_id error, got %v", err)
	}
	cfg.Inbox.UserID = "user-1"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	target := filepath.Join(tempHome, "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(target)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.API.Bind != "127.0.0.1:7490" {
		t.Fatalf("unexpected api bind: %q", cfg.API.Bind)
	}
}

func TestAPIBaseURL(t *testing.T) {
	cfg := config.Default()
	cfg.API.Bind = ":8080"
	if got := cfg.APIBaseURL(); got != "http://127.0.0.1:8080" {
		t.Fatalf("unexpected base url %q", got)
	}
	cfg.API.Bind = "http://notes.internal:9000/"
	if got := cfg.APIBaseURL(); got != "http://notes.internal:9000" {
		t.Fatalf("unexpected base url %q", got)
	}
	cfg.API.Bind = ""
	if got := cfg.APIBaseURL(); got != "" {
		t.Fatalf("expected empty base url for disabled api, got %q", got)
	}
}

func TestLoadKeepsBlankAPIBind(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(tempHome, "config.toml")
	if err := os.WriteFile(configPath, []byte("[api]\nbind = \"\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.API.Bind != "" {
		t.Fatalf("expected blank bind to disable the api, got %q", cfg.API.Bind)
	}

	if err := os.WriteFile(configPath, []byte("[api]\ntoken = \"t\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err = config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.API.Bind != "127.0.0.1:7490" {
		t.Fatalf("expected default bind when the key is absent, got %q", cfg.API.Bind)
	}
}

func TestLoadFallsBackToProjectFile(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	project := t.TempDir()
	t.Chdir(project)

	if err := os.WriteFile(filepath.Join(project, "ainotes.toml"), []byte("[workflow]\nworkers = 5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || filepath.Base(resolved) != "ainotes.toml" {
		t.Fatalf("expected project config, got %q (exists=%v)", resolved, exists)
	}
	if cfg.Workflow.Workers != 5 {
		t.Fatalf("expected workers from project file, got %d", cfg.Workflow.Workers)
	}
}
