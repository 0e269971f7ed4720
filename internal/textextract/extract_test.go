package textextract_test

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"ainotes/internal/chunk"
	"ainotes/internal/services"
	"ainotes/internal/testsupport"
	"ainotes/internal/textextract"
)

var lectureDoc = [][][]string{
	{
		{"First paragraph line one", "line two ends here."},
		{"Second paragraph starts."},
	},
	{
		{"Page two text."},
	},
}

type stubRunner struct {
	stdout []byte
	stderr []byte
	err    error
	calls  int
	name   string
	args   []string
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls++
	s.name = name
	s.args = append([]string(nil), args...)
	return s.stdout, s.stderr, s.err
}

func TestNormalizeWhitespace(t *testing.T) {
	got := textextract.NormalizeWhitespace("a\tb\r\nc\u00a0d e\u0301")
	want := "a b\nc d \u00e9"
	if got != want {
		t.Fatalf("NormalizeWhitespace = %q, want %q", got, want)
	}
}

func TestExtractGarbageFailsWithExtractionError(t *testing.T) {
	runner := &stubRunner{}
	extractor := textextract.New(textextract.Config{UsePdftotext: false}, nil, textextract.WithRunner(runner))

	_, err := extractor.Extract(context.Background(), []byte("definitely not a pdf"))
	if err == nil {
		t.Fatal("expected extraction error")
	}
	if !errors.Is(err, services.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
	if runner.calls != 0 {
		t.Fatalf("runner should not be called when pdftotext is disabled, got %d calls", runner.calls)
	}
}

func TestExtractEmptyInputFails(t *testing.T) {
	extractor := textextract.New(textextract.Config{}, nil)
	if _, err := extractor.Extract(context.Background(), nil); !errors.Is(err, services.ErrExtraction) {
		t.Fatalf("expected ErrExtraction for empty input, got %v", err)
	}
}

func TestExtractPrefersPdftotext(t *testing.T) {
	runner := &stubRunner{stdout: []byte("Intro\tparagraph\r\n\nSecond one\n")}
	extractor := textextract.New(
		textextract.Config{Pdftotext: "pdftotext", UsePdftotext: true},
		nil,
		textextract.WithRunner(runner),
	)

	text, err := extractor.Extract(context.Background(), []byte("%PDF-garbage"))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if text != "Intro paragraph\n\nSecond one\n" {
		t.Fatalf("unexpected text %q", text)
	}
	if runner.name != "pdftotext" {
		t.Fatalf("expected pdftotext to run, got %q", runner.name)
	}
	if len(runner.args) == 0 || runner.args[len(runner.args)-1] != "-" {
		t.Fatalf("expected output to stdout, args=%v", runner.args)
	}
	if !strings.HasSuffix(runner.args[len(runner.args)-2], ".pdf") {
		t.Fatalf("expected temp pdf path argument, args=%v", runner.args)
	}
}

func TestExtractPdftotextFailureReportsParserError(t *testing.T) {
	runner := &stubRunner{err: errors.New("exit status 1"), stderr: []byte("Syntax Error")}
	extractor := textextract.New(
		textextract.Config{Pdftotext: "pdftotext", UsePdftotext: true},
		nil,
		textextract.WithRunner(runner),
	)

	_, err := extractor.Extract(context.Background(), []byte("not a pdf"))
	if !errors.Is(err, services.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
	if strings.Contains(err.Error(), "Syntax Error") {
		t.Fatalf("expected parser message, not pdftotext stderr: %v", err)
	}
}

func TestExtractBuiltInParserKeepsLinesAndParagraphs(t *testing.T) {
	extractor := textextract.New(textextract.Config{}, nil)

	text, err := extractor.Extract(context.Background(), testsupport.TextPDF(lectureDoc...))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	want := "First paragraph line one\nline two ends here.\n\nSecond paragraph starts.\n\nPage two text."
	if text != want {
		t.Fatalf("Extract = %q, want %q", text, want)
	}

	chunks := chunk.Split(text, 50)
	wantChunks := []string{
		"First paragraph line one\nline two ends here.",
		"Second paragraph starts.\n\nPage two text.",
	}
	if len(chunks) != len(wantChunks) {
		t.Fatalf("Split = %q, want %q", chunks, wantChunks)
	}
	for i := range chunks {
		if chunks[i] != wantChunks[i] {
			t.Fatalf("chunk %d = %q, want %q", i, chunks[i], wantChunks[i])
		}
	}
}

func TestExtractUsesBuiltInParserWhenPdftotextMissing(t *testing.T) {
	runner := &stubRunner{err: &exec.Error{Name: "pdftotext", Err: exec.ErrNotFound}}
	extractor := textextract.New(
		textextract.Config{Pdftotext: "pdftotext", UsePdftotext: true},
		nil,
		textextract.WithRunner(runner),
	)

	text, err := extractor.Extract(context.Background(), testsupport.TextPDF(lectureDoc...))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if runner.calls != 1 {
		t.Fatalf("expected pdftotext to be tried once, got %d", runner.calls)
	}
	if !strings.HasPrefix(text, "First paragraph line one\nline two") {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestExtractUsesBuiltInParserWhenPdftotextPrintsNothing(t *testing.T) {
	runner := &stubRunner{stdout: []byte("\f\n")}
	extractor := textextract.New(
		textextract.Config{Pdftotext: "pdftotext", UsePdftotext: true},
		nil,
		textextract.WithRunner(runner),
	)

	text, err := extractor.Extract(context.Background(), testsupport.TextPDF([][]string{{"Only line."}}))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if text != "Only line." {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestExtractSeparatesWordsAcrossTextRuns(t *testing.T) {
	// Two runs on one baseline, the second moved right: a single line with a
	// space between them.
	doc := testsupport.StreamPDF("BT\n/F1 12 Tf\n72 720 Td\n(alpha) Tj\n40 0 Td\n(beta) Tj\nET")

	text, err := textextract.New(textextract.Config{}, nil).Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if text != "alpha beta" {
		t.Fatalf("unexpected text %q", text)
	}
}
