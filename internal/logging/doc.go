// Package logging configures the process-wide slog logger. Records are
// written as JSON to a size-rotated file under ~/.amansearch/logs, with an
// optional copy on stderr for --debug runs.
package logging
