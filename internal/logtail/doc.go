// Package logtail reads back the application's own log file for the activity
// pane.
//
// Read extracts the last N lines with a ring buffer, so memory use is bounded
// by N rather than by the file size. Parse decodes a zerolog JSON line into an
// Entry and Format renders it for display:
//
//	entries, err := logtail.ReadEntries(cfg.LogFile, 200, zerolog.InfoLevel)
//	for _, e := range entries {
//		fmt.Println(e.Format())
//	}
//
// Lines that are not JSON (for example a panic trace appended by the runtime)
// are kept verbatim with Raw set.
package logtail
