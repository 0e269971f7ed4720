package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// normalize fills defaults and applies environment overrides. Variables that
// override a defaulted setting only apply when set lacks the key.
func (c *Config) normalize(set fileKeys) error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeStore()
	c.normalizeLLM(set)
	c.normalizeNotes(set)
	c.normalizeExtract()
	c.normalizeWorkflow()
	if err := c.normalizeInbox(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SpoolDir) == "" {
		c.Paths.SpoolDir = defaultSpoolDir
	}
	if c.Paths.SpoolDir, err = expandPath(c.Paths.SpoolDir); err != nil {
		return fmt.Errorf("paths.spool_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() {
	// A blank bind disables the HTTP API; an absent key keeps the default.
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	c.API.HealthBind = strings.TrimSpace(c.API.HealthBind)
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv("AINOTES_API_TOKEN"); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeStore() {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case "", "sqlite", "sqlite3":
		c.Store.Driver = "sqlite"
	case "postgresql", "pg":
		c.Store.Driver = "postgres"
	}
	c.Store.DSN = strings.TrimSpace(c.Store.DSN)
	if c.Store.DSN == "" {
		if value, ok := os.LookupEnv("AINOTES_DATABASE_URL"); ok {
			c.Store.DSN = strings.TrimSpace(value)
		}
	}
	if c.Store.MaxConns <= 0 {
		c.Store.MaxConns = defaultMaxConns
	}
	if c.Store.MinConns < 0 {
		c.Store.MinConns = 0
	}
	if c.Store.ConnMaxLifetimeSeconds <= 0 {
		c.Store.ConnMaxLifetimeSeconds = defaultConnMaxLifetime
	}
	if c.Store.ConnMaxIdleSeconds <= 0 {
		c.Store.ConnMaxIdleSeconds = defaultConnMaxIdle
	}
	if c.Store.DialTimeoutSeconds <= 0 {
		c.Store.DialTimeoutSeconds = defaultDialTimeout
	}
	if c.Store.StatementTimeoutSeconds < 0 {
		c.Store.StatementTimeoutSeconds = 0
	}
}

func (c *Config) normalizeLLM(set fileKeys) {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("GEMINI_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(c.LLM.BaseURL), "/")
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if value := strings.TrimSpace(os.Getenv("GEMINI_MODEL")); value != "" && !set["llm.model"] {
		c.LLM.Model = value
	}
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds < 0 {
		c.LLM.TimeoutSeconds = 0
	}
	if c.LLM.MaxAttempts <= 0 {
		c.LLM.MaxAttempts = defaultLLMMaxAttempts
	}
}

func (c *Config) normalizeNotes(set fileKeys) {
	if !set["notes.max_chunk_chars"] {
		if parsed, err := strconv.Atoi(strings.TrimSpace(os.Getenv("MAX_CHUNK_CHARS"))); err == nil && parsed > 0 {
			c.Notes.MaxChunkChars = parsed
		}
	}
	if c.Notes.MaxChunkChars <= 0 {
		c.Notes.MaxChunkChars = defaultMaxChunkChars
	}
	if c.Notes.MapConcurrency <= 0 {
		c.Notes.MapConcurrency = defaultMapConcurrency
	}
	if c.Notes.MaxUploadBytes <= 0 {
		c.Notes.MaxUploadBytes = defaultMaxUploadBytes
	}
}

func (c *Config) normalizeExtract() {
	c.Extract.Pdftotext = strings.TrimSpace(c.Extract.Pdftotext)
	if c.Extract.Pdftotext == "" {
		c.Extract.Pdftotext = defaultPdftotext
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.Workers <= 0 {
		c.Workflow.Workers = defaultWorkers
	}
	if c.Workflow.PollInterval < 0 {
		c.Workflow.PollInterval = 0
	}
	if c.Workflow.ErrorRetryInterval < 0 {
		c.Workflow.ErrorRetryInterval = 0
	}
	if c.Workflow.JobTimeoutSeconds < 0 {
		c.Workflow.JobTimeoutSeconds = 0
	}
}

func (c *Config) normalizeInbox() error {
	var err error
	if strings.TrimSpace(c.Inbox.Dir) == "" {
		c.Inbox.Dir = defaultInboxDir
	}
	if c.Inbox.Dir, err = expandPath(c.Inbox.Dir); err != nil {
		return fmt.Errorf("inbox.dir: %w", err)
	}
	c.Inbox.UserID = strings.TrimSpace(c.Inbox.UserID)
	c.Inbox.Quality = strings.ToUpper(strings.TrimSpace(c.Inbox.Quality))
	if c.Inbox.Quality == "" {
		c.Inbox.Quality = defaultInboxQuality
	}
	if c.Inbox.DebounceMS < 0 {
		c.Inbox.DebounceMS = 0
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
