// Package logtail reads the end of appdeck's log file for the console's log
// view.
//
// Read extracts the last N lines with a ring buffer, so memory use is bounded
// by N and not by the file size. Lines come back in file order. A missing
// file is not an error; the console simply shows an empty view until the
// first entry is written.
//
// Parse decodes the JSON lines written by internal/logging, using the same
// key names, and Entry.Format renders them as a single readable line:
//
//	12:00:05 WARN  lifecycle: refresh failed; retrying next tick app=lnd attempt=2
//
// Tail combines the two. Anything that does not decode, such as a half
// written line at the end of the file, is shown as-is.
package logtail
