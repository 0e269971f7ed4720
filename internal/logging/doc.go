// Package logging assembles the structured slog loggers used by the notes
// daemon and CLI.
//
// It owns the console and JSON handlers, the stdout plus log file fan-out,
// and context helpers that tag log lines with job IDs, pipeline stages, and
// correlation IDs.
package logging
