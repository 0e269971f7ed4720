// Package workflow turns queued notes jobs into finished notes.
//
// The Manager spools uploaded documents, records QUEUED jobs in the job
// store, and runs a fixed pool of workers that claim the oldest queued job,
// run it through the notes pipeline, and write exactly one terminal state
// (COMPLETED with content or FAILED with a message). Idle workers wait on a
// wake signal from Submit or the configured poll interval.
//
// Terminal writes only apply while a job is still PROCESSING, so a job
// deleted mid-flight stays deleted. Jobs interrupted by shutdown, or left
// PROCESSING by a crash, are failed with "daemon stopped" rather than
// re-queued.
package workflow
