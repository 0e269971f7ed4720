// Package notes turns extracted document text into Markdown study notes with
// a map/reduce pass over the configured generator.
//
// Map summarizes each chunk independently and preserves chunk order. Reduce
// merges the summaries with one final call.
package notes
