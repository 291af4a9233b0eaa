// Package logtail reads the bridge's JSON log file for the logs command and
// the terminal UI.
//
// Read keeps a ring buffer of maxLines entries, so the last lines of a large
// file come back in one pass with memory bounded by maxLines. Parse turns a
// zerolog JSON line into an Entry; anything that is not a JSON object is kept
// verbatim. Format renders an entry on one line, optionally colored with
// lipgloss.
//
// A missing log file is not an error: Read returns no lines.
package logtail
