package api

import (
	"sort"
	"time"
)

// SortJobsNewestFirst orders jobs by CreatedAt descending, breaking ties by ID descending.
func SortJobsNewestFirst(items []Job) []Job {
	if len(items) == 0 {
		return nil
	}
	sorted := make([]Job, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti := parseJobTime(sorted[i].CreatedAt)
		tj := parseJobTime(sorted[j].CreatedAt)
		if ti.Equal(tj) {
			return sorted[i].ID > sorted[j].ID
		}
		return ti.After(tj)
	})
	return sorted
}

func parseJobTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}

// ParseJobTime exposes job timestamp parsing for consumers that need display formatting.
func ParseJobTime(value string) time.Time {
	return parseJobTime(value)
}
