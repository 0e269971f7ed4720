package textextract

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

var whitespaceReplacer = strings.NewReplacer(
	"\r", "",
	"\t", " ",
	"\u00a0", " ",
)

// NormalizeWhitespace removes carriage returns, maps tabs and no-break spaces
// to a plain space, and composes the result to NFC.
func NormalizeWhitespace(text string) string {
	return norm.NFC.String(whitespaceReplacer.Replace(text))
}
