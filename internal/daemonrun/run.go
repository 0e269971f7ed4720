package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"ainotes/internal/config"
	"ainotes/internal/daemon"
	"ainotes/internal/jobs"
	"ainotes/internal/logging"
	"ainotes/internal/notes"
	"ainotes/internal/services/gemini"
	"ainotes/internal/textextract"
	"ainotes/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the ainotes daemon and blocks until the context is cancelled or
// the process receives SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		cfg.Logging.Level = level
	}
	if opts.Development {
		cfg.Logging.Development = true
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(logger, cfg)

	store, err := jobs.Open(signalCtx, cfg, logger)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		return err
	}

	workflowManager := workflow.NewManager(cfg, store, buildPipeline(cfg, logger), logger)
	d, err := daemon.New(cfg, store, logger, workflowManager)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logger.Error("daemon start failed",
			logging.Error(err),
			logging.String("hint", "check configuration, the data directory lock, and store access"),
		)
		return err
	}

	// The pid file is only claimed while holding the instance lock.
	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer removePIDFile(pidPath, logger)

	<-signalCtx.Done()
	logger.Info("ainotes daemon shutting down")
	return nil
}

func buildPipeline(cfg *config.Config, logger *slog.Logger) *notes.Pipeline {
	llm := cfg.GetLLM()
	client := gemini.NewClient(gemini.Config{
		APIKey:         llm.APIKey,
		BaseURL:        llm.BaseURL,
		Model:          llm.Model,
		TimeoutSeconds: llm.TimeoutSeconds,
		MaxAttempts:    llm.MaxAttempts,
	})
	extractor := textextract.New(textextract.Config{
		Pdftotext:    cfg.Extract.Pdftotext,
		UsePdftotext: cfg.Extract.UsePdftotext,
	}, logger)
	return notes.NewPipeline(extractor, client, notes.Options{
		MaxChunkChars:  cfg.Notes.MaxChunkChars,
		MapConcurrency: cfg.Notes.MapConcurrency,
	}, logger)
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

// removePIDFile deletes path when it still names this process.
func removePIDFile(path string, logger *slog.Logger) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	if strings.TrimSpace(string(data)) != strconv.Itoa(os.Getpid()) {
		logger.Warn("pid file taken over; leaving it in place", logging.String("path", path))
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("remove pid file", logging.String("path", path), logging.Error(err))
	}
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	pdftotext := strings.TrimSpace(cfg.Extract.Pdftotext)
	logger.Info("dependency snapshot",
		logging.Bool("llm_key_present", strings.TrimSpace(cfg.LLM.APIKey) != ""),
		logging.String("llm_model", cfg.LLM.Model),
		logging.String("store_driver", cfg.Store.Driver),
		logging.Bool("pdftotext_enabled", cfg.Extract.UsePdftotext),
		logging.Bool("pdftotext_available", binaryAvailable(pdftotext)),
		logging.String("pdftotext_binary", pdftotext),
		logging.Bool("inbox_enabled", cfg.Inbox.Enabled),
	)
}

func binaryAvailable(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}
