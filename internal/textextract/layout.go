package textextract

import (
	"math"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	// fallbackFontSize applies to glyphs whose size the parser could not derive.
	fallbackFontSize = 10.0
	// baselineTolerance is the vertical drift, in font sizes, still read as
	// the same line.
	baselineTolerance = 0.3
	// paragraphGap is the line advance, in font sizes, above which a blank
	// line is emitted.
	paragraphGap = 1.5
	// wordGap is the horizontal gap, in font sizes, read as a space.
	wordGap = 0.25
)

// pageText rebuilds reading order from positioned glyphs in content-stream
// order. A new baseline starts a new line; a wide drop or any upward jump
// starts a new paragraph.
func pageText(glyphs []pdf.Text) string {
	var (
		out     strings.Builder
		line    strings.Builder
		pending string
		prev    pdf.Text
		have    bool
	)
	// endLine moves the current line to out. next is the separator owed
	// before whatever line comes after it.
	endLine := func(next string) {
		s := strings.Trim(line.String(), " ")
		line.Reset()
		if s == "" {
			if next == "\n\n" {
				pending = next
			}
			return
		}
		if out.Len() > 0 {
			out.WriteString(pending)
		}
		out.WriteString(s)
		pending = next
	}

	for _, g := range glyphs {
		if g.S == "" || g.S == "\n" || g.S == "\r" {
			continue
		}
		if !have {
			line.WriteString(g.S)
			prev, have = g, true
			continue
		}

		size := math.Max(fontSize(prev), fontSize(g))
		drop := prev.Y - g.Y
		switch {
		case math.Abs(drop) <= baselineTolerance*size:
			gap := g.X - (prev.X + prev.W)
			if gap > wordGap*size && g.S != " " && !strings.HasSuffix(line.String(), " ") {
				line.WriteByte(' ')
			}
		case drop > paragraphGap*size || drop < 0:
			endLine("\n\n")
		default:
			endLine("\n")
		}
		line.WriteString(g.S)
		prev = g
	}
	endLine("")
	return out.String()
}

func fontSize(g pdf.Text) float64 {
	if g.FontSize > 0 {
		return g.FontSize
	}
	return fallbackFontSize
}
