package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// MinimalPDF is a bare header that passes magic-byte checks. It has no pages;
// use TextPDF when the extractor must read text.
var MinimalPDF = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

// WriteFile writes data to path, creating parent directories.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
