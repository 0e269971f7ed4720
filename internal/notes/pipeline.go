package notes

import (
	"context"
	"log/slog"
	"time"

	"ainotes/internal/chunk"
	"ainotes/internal/logging"
	"ainotes/internal/quality"
	"ainotes/internal/services"
)

// Stage names used in logs and error context.
const (
	StageExtract = "extract"
	StageChunk   = "chunk"
	StageMap     = "map"
	StageReduce  = "reduce"
)

// Extractor converts raw document bytes to text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// Options tunes the pipeline.
type Options struct {
	MaxChunkChars  int
	MapConcurrency int
}

// Pipeline runs extract, chunk, map and reduce for one document.
type Pipeline struct {
	extractor Extractor
	generator Generator
	opts      Options
	logger    *slog.Logger
}

// NewPipeline wires the pipeline stages.
func NewPipeline(extractor Extractor, generator Generator, opts Options, logger *slog.Logger) *Pipeline {
	if opts.MaxChunkChars <= 0 {
		opts.MaxChunkChars = chunk.DefaultMaxChars
	}
	if opts.MapConcurrency <= 0 {
		opts.MapConcurrency = 1
	}
	return &Pipeline{
		extractor: extractor,
		generator: generator,
		opts:      opts,
		logger:    logging.NewComponentLogger(logger, "notes"),
	}
}

// Run produces the Markdown notes for a PDF.
func (p *Pipeline) Run(ctx context.Context, data []byte, tier quality.Tier) (string, error) {
	start := time.Now()

	stageCtx := services.WithStage(ctx, StageExtract)
	text, err := p.extractor.Extract(stageCtx, data)
	if err != nil {
		return "", err
	}

	chunks := chunk.Split(text, p.opts.MaxChunkChars)
	logging.WithContext(services.WithStage(ctx, StageChunk), p.logger).Debug(
		"document chunked",
		logging.Int("text_chars", len([]rune(text))),
		logging.Int("chunks", len(chunks)),
		logging.Int("max_chunk_chars", p.opts.MaxChunkChars),
	)

	stageCtx = services.WithStage(ctx, StageMap)
	mapStart := time.Now()
	summaries, err := Map(stageCtx, p.generator, chunks, tier, p.opts.MapConcurrency)
	if err != nil {
		return "", err
	}
	logging.WithContext(stageCtx, p.logger).Debug(
		"chunks summarized",
		logging.Int("chunks", len(summaries)),
		logging.Duration("duration", time.Since(mapStart)),
	)

	stageCtx = services.WithStage(ctx, StageReduce)
	content, err := Reduce(stageCtx, p.generator, summaries, tier)
	if err != nil {
		return "", err
	}
	logging.WithContext(ctx, p.logger).Info(
		"notes generated",
		logging.String("quality", tier.String()),
		logging.Int("chunks", len(chunks)),
		logging.Int("content_chars", len(content)),
		logging.Duration("duration", time.Since(start)),
	)
	return content, nil
}
