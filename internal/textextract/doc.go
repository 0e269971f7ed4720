// Package textextract converts uploaded PDF bytes into normalized plain text.
//
// The poppler pdftotext binary runs first when enabled, through a stubbable
// Runner. Without it, github.com/ledongthuc/pdf supplies positioned glyphs and
// lines and paragraphs are rebuilt from their baselines.
package textextract
