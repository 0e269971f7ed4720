package notes

import (
	"strings"

	"ainotes/internal/quality"
)

const (
	mapSystemPrompt    = "You are a helpful teaching assistant who writes faithful notes from provided content. Avoid hallucinations."
	reduceSystemPrompt = "You are a helpful teaching assistant who merges notes into a coherent Markdown document."
	mergeInstruction   = "Merge the following chunked notes into one coherent Markdown document with clear headings and bullets."
	summarySeparator   = "\n\n---\n\n"
)

// MapPrompt builds the per-chunk summarization prompt.
func MapPrompt(chunk string, tier quality.Tier) string {
	return mapSystemPrompt + "\n\n" + quality.Instruction(tier) + "\n\nSource:\n" + chunk
}

// ReducePrompt builds the merge prompt over all chunk summaries.
func ReducePrompt(summaries []string, tier quality.Tier) string {
	merged := strings.Join(summaries, summarySeparator)
	return reduceSystemPrompt + "\n\n" + quality.Instruction(tier) + "\n\n" + mergeInstruction + "\n\n" + merged
}
