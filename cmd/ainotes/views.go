package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"ainotes/internal/api"
)

const titleWidth = 40

func buildJobRows(items []api.Job) [][]string {
	sorted := api.SortJobsNewestFirst(items)
	rows := make([][]string, 0, len(sorted))
	for _, job := range sorted {
		title := strings.TrimSpace(job.Title)
		if title == "" {
			title = job.SourceFileName
		}
		rows = append(rows, []string{
			job.ID,
			truncate(title, titleWidth),
			formatStatusLabel(job.Status),
			formatStatusLabel(job.Quality),
			formatDisplayTime(job.CreatedAt),
		})
	}
	return rows
}

func buildStatsRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatStatusLabel(key), fmt.Sprintf("%d", stats[key])})
	}
	return rows
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	lower := strings.ToLower(strings.ReplaceAll(status, "_", " "))
	return strings.ToUpper(lower[:1]) + lower[1:]
}

func formatDisplayTime(value string) string {
	t := api.ParseJobTime(value)
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func formatAge(value string, now time.Time) string {
	t := api.ParseJobTime(value)
	if t.IsZero() {
		return ""
	}
	d := now.Sub(t).Round(time.Second)
	if d < 0 {
		d = 0
	}
	return d.String()
}

func truncate(value string, width int) string {
	runes := []rune(value)
	if width <= 0 || len(runes) <= width {
		return value
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
