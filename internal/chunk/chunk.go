// Package chunk splits extracted document text into bounded, paragraph-aligned
// pieces for the map stage.
package chunk

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxChars is used when callers pass a non-positive limit.
const DefaultMaxChars = 3000

const joiner = "\n\n"

var paragraphBreak = regexp.MustCompile(`\n{2,}`)

// Split partitions text into chunks of at most maxChars characters (runes).
// Paragraphs are packed greedily, and a paragraph longer than maxChars is
// hard-split into fixed slices. Empty paragraphs are dropped.
func Split(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	var (
		chunks     []string
		current    strings.Builder
		currentLen int
	)
	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, current.String())
		}
		current.Reset()
		currentLen = 0
	}

	for _, raw := range paragraphBreak.Split(text, -1) {
		para := strings.TrimSpace(raw)
		if para == "" {
			continue
		}
		paraLen := utf8.RuneCountInString(para)

		if currentLen+len(joiner)+paraLen > maxChars {
			flush()
			if paraLen > maxChars {
				chunks = append(chunks, hardSplit(para, maxChars)...)
				continue
			}
			current.WriteString(para)
			currentLen = paraLen
			continue
		}

		if currentLen > 0 {
			current.WriteString(joiner)
			currentLen += len(joiner)
		}
		current.WriteString(para)
		currentLen += paraLen
	}
	flush()
	return chunks
}

func hardSplit(para string, maxChars int) []string {
	runes := []rune(para)
	out := make([]string, 0, (len(runes)+maxChars-1)/maxChars)
	for start := 0; start < len(runes); start += maxChars {
		end := min(start+maxChars, len(runes))
		out = append(out, string(runes[start:end]))
	}
	return out
}
