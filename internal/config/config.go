package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	SpoolDir string `toml:"spool_dir"`
	LogDir   string `toml:"log_dir"`
}

// API contains the daemon HTTP and health endpoints.
type API struct {
	Bind       string `toml:"bind"`
	Token      string `toml:"token"`
	HealthBind string `toml:"health_bind"`
}

// Store selects and tunes the job store backend.
type Store struct {
	Driver                  string `toml:"driver"`
	DSN                     string `toml:"dsn"`
	MaxConns                int32  `toml:"max_conns"`
	MinConns                int32  `toml:"min_conns"`
	ConnMaxLifetimeSeconds  int    `toml:"conn_max_lifetime_seconds"`
	ConnMaxIdleSeconds      int    `toml:"conn_max_idle_seconds"`
	DialTimeoutSeconds      int    `toml:"dial_timeout_seconds"`
	StatementTimeoutSeconds int    `toml:"statement_timeout_seconds"`
}

// LLM contains generative-language API connection settings.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxAttempts    int    `toml:"max_attempts"`
}

// Notes contains pipeline tuning knobs.
type Notes struct {
	MaxChunkChars  int   `toml:"max_chunk_chars"`
	MapConcurrency int   `toml:"map_concurrency"`
	MaxUploadBytes int64 `toml:"max_upload_bytes"`
}

// Extract contains text extraction settings.
type Extract struct {
	Pdftotext    string `toml:"pdftotext"`
	UsePdftotext bool   `toml:"use_pdftotext"`
}

// Workflow contains configuration for background processing.
type Workflow struct {
	Workers            int `toml:"workers"`
	PollInterval       int `toml:"poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	JobTimeoutSeconds  int `toml:"job_timeout_seconds"`
}

// Inbox contains configuration for the watched drop folder.
type Inbox struct {
	Enabled     bool   `toml:"enabled"`
	Dir         string `toml:"dir"`
	UserID      string `toml:"user_id"`
	Quality     string `toml:"quality"`
	DebounceMS  int    `toml:"debounce_ms"`
	InitialScan bool   `toml:"initial_scan"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format      string `toml:"format"`
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// Config encapsulates all configuration values for ainotes.
//
// Configuration sections by subsystem:
//   - Paths: data, spool, and log directories
//   - API: HTTP bind address, shared token, gRPC health bind
//   - Store: sqlite or postgres job store
//   - LLM: generative-language API credentials and model
//   - Notes: chunk size, map concurrency, upload limit
//   - Extract: pdftotext fallback
//   - Workflow: worker count and polling intervals
//   - Inbox: watched folder ingestion
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	API      API      `toml:"api"`
	Store    Store    `toml:"store"`
	LLM      LLM      `toml:"llm"`
	Notes    Notes    `toml:"notes"`
	Extract  Extract  `toml:"extract"`
	Workflow Workflow `toml:"workflow"`
	Inbox    Inbox    `toml:"inbox"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads the first configuration file found (explicit path, then
// ~/.config/ainotes/config.toml, then ./ainotes.toml), applies defaults,
// normalizes and validates it. It returns the config, the file path in effect,
// and whether that file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	source, found, err := locateConfig(path)
	if err != nil {
		return nil, "", false, err
	}
	var set fileKeys
	if found {
		if set, err = decodeFile(source, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(set); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, source, found, nil
}

// fileKeys records the "section.key" names present in a config file.
type fileKeys map[string]bool

func decodeFile(path string, cfg *Config) (fileKeys, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	if err := toml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	var tables map[string]any
	if err := toml.Unmarshal(raw, &tables); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	set := fileKeys{}
	for section, value := range tables {
		table, ok := value.(map[string]any)
		if !ok {
			continue
		}
		for key := range table {
			set[section+"."+key] = true
		}
	}
	return set, nil
}

// locateConfig returns the first existing candidate. An explicit path is the
// only candidate when given; with nothing found the default location is
// reported so `config init` knows where to write.
func locateConfig(explicit string) (string, bool, error) {
	var candidates []string
	if explicit != "" {
		candidates = []string{explicit}
	} else {
		candidates = []string{defaultConfigPath, "ainotes.toml"}
	}

	first := ""
	for _, candidate := range candidates {
		resolved, err := expandPath(candidate)
		if err != nil {
			return "", false, err
		}
		if first == "" {
			first = resolved
		}
		info, err := os.Stat(resolved)
		switch {
		case err == nil && !info.IsDir():
			return resolved, true, nil
		case err == nil, errors.Is(err, fs.ErrNotExist):
			continue
		default:
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}
	return first, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.SpoolDir, c.Paths.LogDir}
	if c.Inbox.Enabled {
		dirs = append(dirs, c.Inbox.Dir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SQLitePath returns the location of the sqlite job database.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.Paths.DataDir, "jobs.db")
}

// LockPath returns the daemon lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "ainotesd.lock")
}

// PIDPath returns the daemon pid file location.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.DataDir, "ainotesd.pid")
}

// LogFilePath returns the daemon log file location.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, "ainotesd.log")
}

// APIBaseURL returns the HTTP base URL clients use to reach the daemon, or ""
// when the API is disabled.
func (c *Config) APIBaseURL() string {
	bind := strings.TrimSpace(c.API.Bind)
	if bind == "" {
		return ""
	}
	if strings.HasPrefix(bind, "http://") || strings.HasPrefix(bind, "https://") {
		return strings.TrimRight(bind, "/")
	}
	if strings.HasPrefix(bind, ":") {
		bind = "127.0.0.1" + bind
	}
	return "http://" + bind
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the settings needed to build a generative-language client.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
	MaxAttempts    int
}

// GetLLM returns the LLM connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
		MaxAttempts:    c.LLM.MaxAttempts,
	}
}
