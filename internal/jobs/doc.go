// Package jobs persists notes jobs and their QUEUED -> PROCESSING ->
// COMPLETED|FAILED lifecycle.
//
// Two Store implementations exist: SQLiteStore (the default, a single file
// under paths.data_dir) and PostgresStore (a pgx pool with queries built by
// ent's SQL builder). Claims are atomic in both, and terminal writes only
// apply to rows that are still PROCESSING, so a deleted or already-finished
// job is never overwritten.
package jobs
