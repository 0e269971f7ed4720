// Package inbox turns a watched drop folder into job submissions.
//
// PDFs created or written directly inside the folder are debounced, checked
// for a PDF header and the upload size limit, and submitted for the
// configured user and quality. Submitted files move to processed/, invalid
// ones to rejected/. Files whose submission fails for other reasons stay in
// place and are retried on their next change.
package inbox
