// Package logs tails the daemon's JSON log file for the CLI.
//
// Negative offsets read the last N lines, follow mode polls for new lines
// until a wait deadline, and a Match narrows output to a single job,
// component, or minimum level.
package logs
