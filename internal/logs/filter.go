package logs

import (
	"encoding/json"
	"strings"

	"ainotes/internal/logging"
)

// Filter reports whether a log line should be shown.
type Filter func(line string) bool

// Match describes which daemon log entries to keep. Zero fields match
// everything.
type Match struct {
	JobID     string
	Component string
	MinLevel  string
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// Filter builds a line filter over the JSON log file. Lines that are not
// JSON only pass when the match is empty.
func (m Match) Filter() Filter {
	jobID := strings.TrimSpace(m.JobID)
	component := strings.TrimSpace(m.Component)
	minRank, hasLevel := levelRank[strings.ToLower(strings.TrimSpace(m.MinLevel))]
	if jobID == "" && component == "" && !hasLevel {
		return nil
	}
	return func(line string) bool {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return false
		}
		if jobID != "" && stringField(entry, logging.FieldJobID) != jobID {
			return false
		}
		if component != "" && stringField(entry, logging.FieldComponent) != component {
			return false
		}
		if hasLevel {
			rank, ok := levelRank[stringField(entry, logging.KeyLevel)]
			if !ok || rank < minRank {
				return false
			}
		}
		return true
	}
}

func stringField(entry map[string]any, key string) string {
	value, _ := entry[key].(string)
	return value
}
