// Package services defines shared utilities consumed by the notes pipeline and
// its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures from the
//     extractor, the LLM client, and configuration checks can be classified
//     after they reach the workflow manager.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
