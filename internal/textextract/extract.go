package textextract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/ledongthuc/pdf"

	"ainotes/internal/logging"
	"ainotes/internal/services"
)

const stageName = "extract"

// Config controls the extraction strategy.
type Config struct {
	// Pdftotext is the poppler binary tried before the built-in parser.
	Pdftotext    string
	UsePdftotext bool
}

// Extractor turns raw PDF bytes into normalized plain text.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithRunner overrides the command runner used for pdftotext.
func WithRunner(r Runner) Option {
	return func(e *Extractor) {
		if r != nil {
			e.runner = r
		}
	}
}

// New constructs an Extractor.
func New(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		cfg:    cfg,
		runner: execRunner{},
		logger: logging.NewComponentLogger(logger, "textextract"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the normalized text of a PDF. pdftotext -layout runs first
// when enabled; if it is missing, fails, or prints nothing, the built-in
// parser rebuilds lines from glyph positions. A document without extractable
// text yields an empty string and no error.
func (e *Extractor) Extract(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", services.Wrap(services.ErrExtraction, stageName, "parse pdf", "empty document", nil)
	}
	logger := logging.WithContext(ctx, e.logger)

	if e.pdftotextEnabled() {
		text, err := e.pdfToText(ctx, data)
		switch {
		case err == nil && strings.TrimSpace(text) != "":
			logger.Debug("pdf text extracted", logging.String("method", "pdftotext"), logging.Int("chars", len(text)))
			return NormalizeWhitespace(text), nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return "", err
		case errors.Is(err, exec.ErrNotFound):
			logger.Debug("pdftotext not installed; using built-in parser")
		case err != nil:
			logger.Warn("pdftotext failed; using built-in parser", logging.Error(err))
		}
	}

	text, err := parseNative(data)
	if err != nil {
		return "", services.Wrap(services.ErrExtraction, stageName, "parse pdf", err.Error(), nil)
	}
	logger.Debug("pdf text extracted", logging.String("method", "native"), logging.Int("chars", len(text)))
	return NormalizeWhitespace(text), nil
}

func (e *Extractor) pdftotextEnabled() bool {
	return e.cfg.UsePdftotext && strings.TrimSpace(e.cfg.Pdftotext) != ""
}

// parseNative reads every page with the built-in parser. Pages are separated
// by a blank line.
func parseNative(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		if body := pageText(page.Content().Text); body != "" {
			pages = append(pages, body)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

func (e *Extractor) pdfToText(ctx context.Context, data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "ainotes-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp pdf: %w", err)
	}
	path := tmp.Name()
	defer os.Remove(path)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp pdf: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp pdf: %w", err)
	}

	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if stderr := strings.TrimSpace(string(errb)); stderr != "" {
			return "", fmt.Errorf("%s: %w: %s", e.cfg.Pdftotext, err, truncate(stderr, 512))
		}
		return "", fmt.Errorf("%s: %w", e.cfg.Pdftotext, err)
	}
	return string(out), nil
}
