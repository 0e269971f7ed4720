// Package preflight provides readiness checks for the filesystem paths and
// external tools ainotes depends on.
//
// The daemon runs RunAll at startup and logs failures; the /api/status
// endpoint and the CLI "ainotes status" command report the same results
// together with CheckDependencies. Each check is gated by its config toggle.
package preflight
