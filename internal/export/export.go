package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"ainotes/internal/jobs"
	"ainotes/internal/logging"
)

// SheetName is the worksheet holding exported jobs.
const SheetName = "Notes"

// maxCellChars is the XLSX limit on characters per cell.
const maxCellChars = 32767

// Headers lists the exported columns in order.
var Headers = []string{
	"Title",
	"Status",
	"Quality",
	"Source File",
	"Size (bytes)",
	"Created",
	"Updated",
	"Error",
	"Notes",
}

// Exporter renders job lists as XLSX workbooks.
type Exporter struct {
	logger *slog.Logger
}

// New constructs an Exporter.
func New(logger *slog.Logger) *Exporter {
	return &Exporter{logger: logging.NewComponentLogger(logger, "export")}
}

// JobsXLSX returns an XLSX workbook (as bytes) with one row per job.
func (e *Exporter) JobsXLSX(ctx context.Context, list []*jobs.Job) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}
	index, err := f.GetSheetIndex(SheetName)
	if err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}
	f.SetActiveSheet(index)

	for i, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return nil, fmt.Errorf("xlsx header: %w", err)
		}
	}

	row := 2
	for _, job := range list {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if job == nil {
			continue
		}
		values := []any{
			job.Title,
			string(job.Status),
			job.Quality.String(),
			job.SourceFileName,
			job.SourceFileSize,
			formatTime(job.CreatedAt),
			formatTime(job.UpdatedAt),
			truncate(deref(job.ErrorMessage), maxCellChars),
			truncate(deref(job.Content), maxCellChars),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return nil, fmt.Errorf("xlsx row %d: %w", row, err)
			}
		}
		row++
	}

	_ = f.SetColWidth(SheetName, "A", "A", 32)
	_ = f.SetColWidth(SheetName, "B", "C", 12)
	_ = f.SetColWidth(SheetName, "D", "D", 28)
	_ = f.SetColWidth(SheetName, "E", "E", 14)
	_ = f.SetColWidth(SheetName, "F", "G", 20)
	_ = f.SetColWidth(SheetName, "H", "H", 40)
	_ = f.SetColWidth(SheetName, "I", "I", 80)
	if err := f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, fmt.Errorf("xlsx panes: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	e.logger.Info("jobs exported",
		logging.Int("rows", row-2),
		logging.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return buf.Bytes(), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if n <= 0 || len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
