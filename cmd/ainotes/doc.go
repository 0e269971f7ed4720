// Command ainotes is the command-line client for the ainotes daemon.
//
// It submits PDFs for note generation, lists and inspects jobs, exports job
// history to XLSX, tails the daemon log, and starts or stops ainotesd. Job
// commands talk to the daemon over its HTTP API; the caller identity comes
// from --user (or AINOTES_USER, falling back to $USER).
package main
