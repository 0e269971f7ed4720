package testsupport

import (
	"context"
	"strings"
	"sync"
)

// FakeGenerator records prompts and answers from a canned function.
type FakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	Respond func(prompt string) (string, error)
}

// Generate implements notes.Generator.
func (g *FakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	if g.Respond == nil {
		return "ok", nil
	}
	return g.Respond(prompt)
}

// Prompts returns a copy of the prompts seen so far.
func (g *FakeGenerator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// FakeExtractor returns fixed text, or Err when set.
type FakeExtractor struct {
	Text string
	Err  error
}

// Extract implements notes.Extractor.
func (e FakeExtractor) Extract(ctx context.Context, _ []byte) (string, error) {
	if e.Err != nil {
		return "", e.Err
	}
	return strings.Clone(e.Text), ctx.Err()
}
