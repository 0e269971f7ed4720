package notes

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"ainotes/internal/quality"
)

// Generator produces model text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Map summarizes each chunk and returns trimmed summaries in chunk order.
// At most concurrency calls run at once; the first failure cancels the rest
// and no partial results are returned.
func Map(ctx context.Context, gen Generator, chunks []string, tier quality.Tier, concurrency int) ([]string, error) {
	if len(chunks) == 0 {
		return []string{}, nil
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	summaries := make([]string, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := gen.Generate(gctx, MapPrompt(chunk, tier))
			if err != nil {
				return fmt.Errorf("map chunk %d/%d: %w", i+1, len(chunks), err)
			}
			summaries[i] = strings.TrimSpace(out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

// Reduce merges chunk summaries into the final Markdown document. It always
// issues exactly one call, including when there are no summaries.
func Reduce(ctx context.Context, gen Generator, summaries []string, tier quality.Tier) (string, error) {
	out, err := gen.Generate(ctx, ReducePrompt(summaries, tier))
	if err != nil {
		return "", fmt.Errorf("reduce: %w", err)
	}
	return strings.TrimSpace(out), nil
}
