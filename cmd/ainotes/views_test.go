package main

import (
	"testing"
	"time"

	"ainotes/internal/api"
)

func TestBuildJobRowsNewestFirst(t *testing.T) {
	rows := buildJobRows([]api.Job{
		{ID: "a", Title: "Old", Status: "COMPLETED", Quality: "SIMPLE", CreatedAt: "2024-01-01T10:00:00.000Z"},
		{ID: "b", SourceFileName: "new.pdf", Status: "QUEUED", Quality: "BALANCED", CreatedAt: "2024-01-02T10:00:00.000Z"},
	})
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0][0] != "b" || rows[0][1] != "new.pdf" || rows[0][2] != "Queued" {
		t.Fatalf("unexpected first row: %v", rows[0])
	}
	if rows[1][3] != "Simple" {
		t.Fatalf("unexpected quality label: %v", rows[1])
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdefghij", 6); got != "abc..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
}

func TestFormatBytes(t *testing.T) {
	cases := map[int64]string{
		512:         "512 B",
		2048:        "2.0 KiB",
		5 * 1 << 20: "5.0 MiB",
	}
	for in, want := range cases {
		if got := formatBytes(in); got != want {
			t.Fatalf("formatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	if got := formatAge("2024-01-01T11:59:30.000Z", now); got != "30s" {
		t.Fatalf("formatAge = %q", got)
	}
	if got := formatAge("", now); got != "" {
		t.Fatalf("formatAge empty = %q", got)
	}
}

func TestRenderStatusLinePlain(t *testing.T) {
	line := renderStatusLine("Store", statusOK, "sqlite", false)
	if line != "  Store:             [OK] sqlite" {
		t.Fatalf("unexpected line: %q", line)
	}
}
