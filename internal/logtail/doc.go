// Package logtail reads the tail of the dronewatch log and renders its zap
// JSON lines for a terminal.
//
// # Reading Log Files
//
// Tail scans the file once, decoding each line and keeping only the newest
// entries that match a Query:
//
//	entries, err := logtail.Tail(cfg.LogFile, logtail.Query{
//		Lines:    200,
//		MinLevel: "warn",
//		Logger:   "droneapi",
//	})
//
// A missing file is not an error; the log simply has not been written yet.
// Lines that are not JSON objects are kept verbatim in Entry.Raw and only
// survive a query without level or logger filters.
//
// # Formatting
//
// Format renders entries as
//
//	2025-10-08T21:01:05.000Z WARN [droneapi] retrying fetch endpoint=drones attempt=1
//
// with optional lipgloss colors for the level, timestamp and logger name.
// Extra fields keep their order in the source line. caller and stacktrace
// are dropped.
package logtail
