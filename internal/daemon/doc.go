// Package daemon coordinates the long-running ainotesd process.
//
// It wires configuration, the job store, the workflow manager, and the
// optional inbox watcher into a single lifecycle with flock-based locking to
// prevent multiple instances. The daemon serves the notes HTTP API, exports
// job history to XLSX, reports dependency health, and publishes the standard
// gRPC health service for supervisors.
//
// Keep orchestration logic here: extraction and generation live in their
// respective packages while the daemon focuses on startup, shutdown, and the
// request surface.
package daemon
