// Package api defines wire-format types and converters for the HTTP API
// layer. It translates internal job models into transport-friendly DTOs that
// the CLI and other consumers can render without coupling to internal types.
//
// # Key Types
//
// Job: transport representation of a notes job, including nullable content
// and error message.
//
// WorkflowStatus: worker pool state, per-status job counts, and last job.
//
// DaemonStatus: aggregated runtime information including preflight checks
// and dependencies.
//
// ErrorResponse: {"error": CODE, "message": detail} body used for every
// non-2xx response.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Statuses and quality tiers are exposed as the
// upper-case strings stored in the job store. Timestamps use RFC3339 with
// milliseconds.
package api
