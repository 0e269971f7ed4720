package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var validQualities = map[string]struct{}{
	"SIMPLE":   {},
	"BALANCED": {},
	"DETAILED": {},
}

// Validate ensures the configuration is usable. A missing LLM API key is not a
// validation failure: jobs are still accepted and fail on their first LLM call.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateNotes(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateInbox(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case "sqlite":
		return nil
	case "postgres":
		if c.Store.DSN == "" {
			return errors.New("store.dsn is required when store.driver is postgres (or set AINOTES_DATABASE_URL)")
		}
		if c.Store.MinConns > c.Store.MaxConns {
			return errors.New("store.min_conns must not exceed store.max_conns")
		}
		return nil
	default:
		return fmt.Errorf("store.driver must be sqlite or postgres, got %q", c.Store.Driver)
	}
}

func (c *Config) validateLLM() error {
	parsed, err := url.Parse(c.LLM.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("llm.base_url must be an absolute URL, got %q", c.LLM.BaseURL)
	}
	if strings.ContainsAny(c.LLM.Model, "/?# ") {
		return fmt.Errorf("llm.model contains invalid characters: %q", c.LLM.Model)
	}
	return nil
}

func (c *Config) validateNotes() error {
	if c.Notes.MaxChunkChars < 100 {
		return errors.New("notes.max_chunk_chars must be at least 100")
	}
	if c.Notes.MapConcurrency > 32 {
		return errors.New("notes.map_concurrency must be 32 or less")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.Workers > 64 {
		return errors.New("workflow.workers must be 64 or less")
	}
	return nil
}

func (c *Config) validateInbox() error {
	if !c.Inbox.Enabled {
		return nil
	}
	if c.Inbox.UserID == "" {
		return errors.New("inbox.user_id must be set when inbox.enabled is true")
	}
	if _, ok := validQualities[c.Inbox.Quality]; !ok {
		return fmt.Errorf("inbox.quality must be SIMPLE, BALANCED, or DETAILED, got %q", c.Inbox.Quality)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
}
