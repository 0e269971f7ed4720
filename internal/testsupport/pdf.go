package testsupport

import (
	"bytes"
	"fmt"
	"strings"
)

// TextPDF builds a small Helvetica PDF. Each page is a list of paragraphs and
// each paragraph a list of lines. Lines are placed with relative Td moves:
// 14pt apart inside a paragraph, 28pt between paragraphs, 12pt type.
func TextPDF(pages ...[][]string) []byte {
	streams := make([]string, len(pages))
	for i, paragraphs := range pages {
		streams[i] = pageStream(paragraphs)
	}
	return StreamPDF(streams...)
}

// StreamPDF builds a PDF with one page per content stream. Font /F1 is
// Helvetica with WinAnsi encoding.
func StreamPDF(streams ...string) []byte {
	var objects []string
	add := func(body string) int {
		objects = append(objects, body)
		return len(objects)
	}

	catalog := add("") // filled once the page tree exists
	tree := add("")
	font := add("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	kids := make([]string, 0, len(streams))
	for _, stream := range streams {
		contents := add(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
		page := add(fmt.Sprintf(
			"<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>",
			tree, font, contents))
		kids = append(kids, fmt.Sprintf("%d 0 R", page))
	}
	objects[catalog-1] = fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", tree)
	objects[tree-1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(kids))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, catalog, xref)
	return buf.Bytes()
}

func pageStream(paragraphs [][]string) string {
	var b strings.Builder
	b.WriteString("BT\n/F1 12 Tf\n")
	first := true
	for p, lines := range paragraphs {
		for l, text := range lines {
			switch {
			case first:
				b.WriteString("72 720 Td\n")
				first = false
			case p > 0 && l == 0:
				b.WriteString("0 -28 Td\n")
			default:
				b.WriteString("0 -14 Td\n")
			}
			fmt.Fprintf(&b, "(%s) Tj\n", pdfEscape(text))
		}
	}
	b.WriteString("ET")
	return b.String()
}

var pdfEscaper = strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`)

func pdfEscape(s string) string { return pdfEscaper.Replace(s) }
