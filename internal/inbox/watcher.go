package inbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"ainotes/internal/jobs"
	"ainotes/internal/logging"
	"ainotes/internal/quality"
	"ainotes/internal/services"
	"ainotes/internal/workflow"
)

// Subdirectories receiving handled files.
const (
	ProcessedDir = "processed"
	RejectedDir  = "rejected"
)

var pdfMagic = []byte("%PDF-")

const (
	defaultRetryDelay = 5 * time.Second
	maxRetryDelay     = time.Minute
)

// Submitter accepts documents for processing.
type Submitter interface {
	Submit(ctx context.Context, upload workflow.Upload) (*jobs.Job, error)
}

// Config controls a Watcher.
type Config struct {
	Dir         string
	UserID      string
	Quality     quality.Tier
	Debounce    time.Duration
	InitialScan bool
	MaxBytes    int64
	// RetryDelay is the first wait after a transient submit failure; it
	// doubles per attempt up to a minute.
	RetryDelay time.Duration
}

// Watcher submits PDFs dropped into a directory.
type Watcher struct {
	cfg       Config
	submitter Submitter
	logger    *slog.Logger
	ready     chan struct{}
}

// New validates cfg and constructs a Watcher.
func New(cfg Config, submitter Submitter, logger *slog.Logger) (*Watcher, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, errors.New("inbox: dir required")
	}
	if strings.TrimSpace(cfg.UserID) == "" {
		return nil, errors.New("inbox: user id required")
	}
	if submitter == nil {
		return nil, errors.New("inbox: submitter required")
	}
	if cfg.Quality == "" {
		cfg.Quality = quality.Default
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	return &Watcher{
		cfg:       cfg,
		submitter: submitter,
		logger:    logging.NewComponentLogger(logger, "inbox"),
		ready:     make(chan struct{}),
	}, nil
}

// Ready is closed once the directory is watched and the initial scan queued.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches the inbox until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	for _, dir := range []string{w.cfg.Dir, filepath.Join(w.cfg.Dir, ProcessedDir), filepath.Join(w.cfg.Dir, RejectedDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("inbox: ensure %s: %w", dir, err)
		}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("inbox: create watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("inbox: watch %s: %w", w.cfg.Dir, err)
	}

	pending := map[string]struct{}{}
	if w.cfg.InitialScan {
		existing, err := w.scan()
		if err != nil {
			w.logger.Warn("inbox initial scan failed", logging.Error(err))
		}
		for _, path := range existing {
			pending[path] = struct{}{}
		}
	}
	close(w.ready)
	w.logger.Info("inbox watching",
		logging.String("dir", w.cfg.Dir),
		logging.String(logging.FieldUserID, w.cfg.UserID),
		logging.String("quality", w.cfg.Quality.String()),
	)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	schedule := func(delay time.Duration) {
		if timer == nil {
			timer = time.NewTimer(delay)
		} else {
			timer.Stop()
			timer.Reset(delay)
		}
		fire = timer.C
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	if len(pending) > 0 {
		schedule(w.cfg.Debounce)
	}
	attempts := map[string]int{}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.candidate(event.Name) {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			pending[event.Name] = struct{}{}
			schedule(w.cfg.Debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("inbox watcher error", logging.Error(err))
		case <-fire:
			fire = nil
			var failed []string
			for path := range pending {
				delete(pending, path)
				if w.ingest(ctx, path) && ctx.Err() == nil {
					failed = append(failed, path)
					continue
				}
				delete(attempts, path)
			}
			if len(failed) == 0 {
				continue
			}
			worst := 0
			for _, path := range failed {
				pending[path] = struct{}{}
				attempts[path]++
				worst = max(worst, attempts[path])
			}
			schedule(w.retryDelay(worst))
		}
	}
}

func (w *Watcher) scan() ([]string, error) {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.cfg.Dir, entry.Name())
		if w.candidate(path) {
			out = append(out, path)
		}
	}
	return out, nil
}

func (w *Watcher) candidate(path string) bool {
	if filepath.Dir(path) != filepath.Clean(w.cfg.Dir) {
		return false
	}
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// retryDelay backs off exponentially with the number of failed attempts.
func (w *Watcher) retryDelay(attempt int) time.Duration {
	delay := w.cfg.RetryDelay
	for i := 1; i < attempt && delay < maxRetryDelay; i++ {
		delay *= 2
	}
	return min(delay, maxRetryDelay)
}

// ingest handles one inbox file and reports whether it should be tried again.
func (w *Watcher) ingest(ctx context.Context, path string) bool {
	logger := w.logger.With(logging.String("file", filepath.Base(path)))

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	if err != nil {
		logger.Warn("inbox stat failed", logging.Error(err))
		return true
	}
	if !info.Mode().IsRegular() {
		return false
	}
	if w.cfg.MaxBytes > 0 && info.Size() > w.cfg.MaxBytes {
		w.reject(logger, path, fmt.Sprintf("file exceeds %d bytes", w.cfg.MaxBytes))
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("inbox read failed", logging.Error(err))
		return true
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		w.reject(logger, path, "not a PDF document")
		return false
	}

	name := filepath.Base(path)
	job, err := w.submitter.Submit(ctx, workflow.Upload{
		UserID:   w.cfg.UserID,
		Title:    strings.TrimSuffix(name, filepath.Ext(name)),
		Quality:  w.cfg.Quality,
		FileName: name,
		Data:     data,
	})
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			w.reject(logger, path, err.Error())
			return false
		}
		logger.Error("inbox submit failed; will retry", logging.Error(err))
		return true
	}

	dest, err := move(path, filepath.Join(w.cfg.Dir, ProcessedDir))
	if err != nil {
		logger.Warn("inbox move failed", logging.Error(err))
	}
	logger.Info("inbox file submitted",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("moved_to", dest),
	)
	return false
}

func (w *Watcher) reject(logger *slog.Logger, path, reason string) {
	dest, err := move(path, filepath.Join(w.cfg.Dir, RejectedDir))
	if err != nil {
		logger.Warn("inbox move failed", logging.Error(err))
	}
	logger.Warn("inbox file rejected", logging.String("reason", reason), logging.String("moved_to", dest))
}

// move renames path into dir, suffixing the name when a file already exists.
func move(path, dir string) (string, error) {
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	dest := filepath.Join(dir, name)
	for i := 1; ; i++ {
		if _, err := os.Lstat(dest); errors.Is(err, fs.ErrNotExist) {
			break
		}
		dest = filepath.Join(dir, stem+"-"+strconv.Itoa(i)+ext)
	}
	if err := os.Rename(path, dest); err != nil {
		return "", err
	}
	return dest, nil
}
